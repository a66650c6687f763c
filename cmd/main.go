package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"gopkg.in/yaml.v3"

	classmodel "github.com/Facepunch/react-class-model"
	"github.com/Facepunch/react-class-model/examples"
	"github.com/Facepunch/react-class-model/store"
	"github.com/Facepunch/react-class-model/utils"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("new"),
	readline.PcItem("merge"),
	readline.PcItem("show"),
	readline.PcItem("list"),
	readline.PcItem("log"),
	readline.PcItem("watch"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

type Config struct {
	Dir      string `yaml:"dir"`
	LogLevel string `yaml:"log_level"`
}

func loadConfig(path string) (cfg Config, err error) {
	cfg = Config{Dir: "clans.db", LogLevel: "info"}
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	err = yaml.Unmarshal(data, &cfg)
	return
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const usage = `commands:
  new {json}        create a clan document, print its id
  merge ID {json}   merge a plain JSON object into a clan
  show ID           print a clan as JSON
  list              list stored clan ids
  log               print the changelog
  watch ID          print a line whenever the clan changes
  exit              quit`

func showClan(db *store.Store, id string) error {
	obj, err := db.Load(id, &examples.Clan{})
	if err != nil {
		return err
	}
	data, err := classmodel.Serialize(obj)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func mergeClan(db *store.Store, id string, jsn []byte) error {
	var parsed any
	if err := json.Unmarshal(jsn, &parsed); err != nil {
		return err
	}
	incoming, ok := parsed.(map[string]any)
	if !ok {
		return fmt.Errorf("merge wants a JSON object")
	}
	if _, err := db.Load(id, &examples.Clan{}); err != nil {
		return err
	}
	changed, err := db.Merge(id, incoming)
	if err != nil {
		return err
	}
	fmt.Printf("changed: %v\n", changed)
	return nil
}

func watchClan(db *store.Store, hub *classmodel.Hub, id string) error {
	obj, err := db.Load(id, &examples.Clan{})
	if err != nil {
		return err
	}
	hub.AddListener(obj, &classmodel.Listener{Notify: func(version uint64) {
		fmt.Printf("%s changed, version %d\n", id, version)
	}})
	fmt.Printf("watching %s\n", id)
	return nil
}

func main() {
	configPath := flag.String("config", "", "yaml config file")
	dir := flag.String("dir", "", "database directory")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-2)
	}
	if *dir != "" {
		cfg.Dir = *dir
	}
	log := utils.NewDefaultLogger(logLevel(cfg.LogLevel))

	examples.RegisterTypes()
	hub := classmodel.NewHub(nil, log)
	engine := &classmodel.Engine{Hub: hub}

	db, err := store.Open(engine, store.Options{
		Path:      cfg.Dir,
		Logger:    log,
		Changelog: true,
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/classmodel.tmp",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		err = nil
		switch cmd {
		case "":
		case "help":
			fmt.Println(usage)
		case "exit", "quit":
			ex := 0
			if err = db.Close(); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err.Error())
				ex = -1
			}
			os.Exit(ex)
		case "new":
			var clan *examples.Clan
			clan, err = classmodel.FromJSON[examples.Clan]([]byte(rest))
			if err == nil {
				var id string
				id, err = db.Put("", clan)
				if err == nil {
					fmt.Println(id)
				}
			}
		case "merge":
			id, jsn, _ := strings.Cut(rest, " ")
			err = mergeClan(db, id, []byte(jsn))
		case "show":
			err = showClan(db, rest)
		case "list":
			var ids []string
			ids, err = db.Keys()
			for _, id := range ids {
				fmt.Println(id)
			}
		case "log":
			var entries []store.LogEntry
			entries, err = db.Changelog(0)
			for _, e := range entries {
				fmt.Printf("%d\t%s\t%s\n", e.Seq, e.ID, string(e.Data))
			}
		case "watch":
			err = watchClan(db, hub, rest)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
		}

		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", cmd, err.Error())
		}
	}
}
