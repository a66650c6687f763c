package classmodel

import (
	"context"
	"log/slog"

	"github.com/Facepunch/react-class-model/utils"
)

// Scheduler is the host's defer-to-next-tick facility. Tasks from one
// source run asynchronously, at least once, in FIFO order.
type Scheduler interface {
	Defer(task func())
}

// TickScheduler runs deferred tasks on a single goroutine, in the
// order they were scheduled. It is the default host facility when the
// embedding application does not bring its own.
type TickScheduler struct {
	queue *utils.FDQueue[func()]
	log   utils.Logger
}

func NewTickScheduler(log utils.Logger) *TickScheduler {
	if log == nil {
		log = utils.NewDefaultLogger(slog.LevelInfo)
	}
	s := &TickScheduler{
		queue: utils.NewFDQueue[func()](4096, 64),
		log:   log,
	}
	go s.run()
	return s
}

func (s *TickScheduler) run() {
	ctx := context.Background()
	for {
		tasks, err := s.queue.Feed(ctx)
		if err != nil {
			return
		}
		for _, task := range tasks {
			task()
		}
	}
}

func (s *TickScheduler) Defer(task func()) {
	if err := s.queue.Drain(context.Background(), []func(){task}); err != nil {
		s.log.Error("dropped deferred task", "err", err)
	}
}

// Close stops the run loop; tasks already fed still run.
func (s *TickScheduler) Close() error {
	return s.queue.Close()
}
