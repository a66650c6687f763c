package store

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/pkg/errors"

	classmodel "github.com/Facepunch/react-class-model"
	"github.com/Facepunch/react-class-model/classmodel_errors"
	"github.com/Facepunch/react-class-model/utils"
)

// Key layout: 'O'+id holds the serialized document, 'L'+seq holds one
// changelog record. The changelog and the broadcast queues carry the
// same TLV records.
const (
	objectKeyPrefix = 'O'
	logKeyPrefix    = 'L'
)

type Options struct {
	Path      string
	Logger    utils.Logger
	CacheSize int  // live-instance cache entries, default 1024
	Changelog bool // append merge records under 'L' keys
}

// Store persists model documents in a pebble database. Live instances
// stay cached so repeated merges against the same document preserve
// object identity, which is what makes change detection meaningful.
type Store struct {
	db   *pebble.DB
	dir  string
	log  utils.Logger
	eng  *classmodel.Engine
	opts Options

	cache *lru.Cache[string, any]

	hlock  sync.Mutex
	hashes map[string]uint64

	seqlock sync.Mutex
	seq     uint64

	// queues receiving every persisted change record
	outq    map[string]toyqueue.DrainCloser
	outlock sync.Mutex

	closed bool
	lock   sync.Mutex
}

func Open(engine *classmodel.Engine, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 1024
	}
	if engine == nil {
		engine = classmodel.DefaultEngine()
	}
	db, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	cache, err := lru.New[string, any](opts.CacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{
		db:     db,
		dir:    opts.Path,
		log:    opts.Logger,
		eng:    engine,
		opts:   opts,
		cache:  cache,
		hashes: make(map[string]uint64),
		outq:   make(map[string]toyqueue.DrainCloser),
	}
	s.seq, err = s.lastLogSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info("store open", "path", opts.Path, "seq", s.seq)
	return s, nil
}

func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.outlock.Lock()
	for name, q := range s.outq {
		if err := q.Close(); err != nil {
			s.log.Warn("closing broadcast queue", "name", name, "err", err)
		}
	}
	s.outq = make(map[string]toyqueue.DrainCloser)
	s.outlock.Unlock()
	return s.db.Close()
}

// DB exposes the underlying pebble handle, mostly for the collector.
func (s *Store) DB() *pebble.DB { return s.db }

func objectKey(id string) []byte {
	key := make([]byte, 0, len(id)+1)
	key = append(key, objectKeyPrefix)
	return append(key, id...)
}

func logKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = logKeyPrefix
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

// Put serializes obj and persists it under id; an empty id allocates a
// fresh one. The instance becomes the live copy for future merges.
func (s *Store) Put(id string, obj any) (string, error) {
	if s.isClosed() {
		return "", classmodel_errors.ErrClosed
	}
	if id == "" {
		id = uuid.New().String()
	}
	data, err := classmodel.Serialize(obj)
	if err != nil {
		return "", err
	}
	if err := s.persist(id, data); err != nil {
		return "", err
	}
	s.cache.Add(id, obj)
	return id, nil
}

// Load returns the live instance for id, deserializing into blank on a
// cache miss. blank must be a registered model instance.
func (s *Store) Load(id string, blank any) (any, error) {
	if s.isClosed() {
		return nil, classmodel_errors.ErrClosed
	}
	if obj, ok := s.cache.Get(id); ok {
		return obj, nil
	}
	data, closer, err := s.db.Get(objectKey(id))
	if err == pebble.ErrNotFound {
		return nil, errors.Wrapf(classmodel_errors.ErrObjectUnknown, "%q", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: get")
	}
	_, err = s.eng.DeserializeInto(blank, data)
	hash := xxhash.Sum64(data)
	_ = closer.Close()
	if err != nil {
		return nil, err
	}
	s.hlock.Lock()
	s.hashes[id] = hash
	s.hlock.Unlock()
	s.cache.Add(id, blank)
	return blank, nil
}

// Merge applies an incoming plain-data object to the live instance of
// id and persists the result only when something actually changed.
func (s *Store) Merge(id string, incoming map[string]any) (changed bool, err error) {
	if s.isClosed() {
		return false, classmodel_errors.ErrClosed
	}
	obj, ok := s.cache.Get(id)
	if !ok {
		return false, errors.Wrapf(classmodel_errors.ErrObjectUnknown, "%q not loaded", id)
	}
	changed, err = s.eng.MergePlain(obj, incoming)
	if err != nil {
		return changed, err
	}
	MergeCount.WithLabelValues(changedLabel(changed)).Inc()
	if !changed {
		return false, nil
	}
	data, err := classmodel.Serialize(obj)
	if err != nil {
		return true, err
	}
	return true, s.persist(id, data)
}

// persist writes the document, appends a changelog record and fans the
// record out, skipping the write when the content hash is unchanged.
func (s *Store) persist(id string, data []byte) error {
	hash := xxhash.Sum64(data)
	s.hlock.Lock()
	prev, seen := s.hashes[id]
	s.hlock.Unlock()
	if seen && prev == hash {
		SkippedWriteCount.Inc()
		return nil
	}

	batch := s.db.NewBatch()
	if err := batch.Set(objectKey(id), data, nil); err != nil {
		return errors.Wrap(err, "store: batch set")
	}
	rec := changeRecord(id, data)
	if s.opts.Changelog {
		s.seqlock.Lock()
		s.seq++
		seq := s.seq
		s.seqlock.Unlock()
		if err := batch.Set(logKey(seq), rec, nil); err != nil {
			return errors.Wrap(err, "store: batch log")
		}
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return errors.Wrap(err, "store: apply")
	}
	WriteCount.Inc()

	s.hlock.Lock()
	s.hashes[id] = hash
	s.hlock.Unlock()

	s.broadcast(rec)
	return nil
}

// Broadcast registers a queue to receive every persisted change record.
func (s *Store) Broadcast(name string, drain toyqueue.DrainCloser) {
	s.outlock.Lock()
	s.outq[name] = drain
	s.outlock.Unlock()
}

func (s *Store) RemoveBroadcast(name string) {
	s.outlock.Lock()
	delete(s.outq, name)
	s.outlock.Unlock()
}

func (s *Store) broadcast(rec []byte) {
	s.outlock.Lock()
	defer s.outlock.Unlock()
	for name, q := range s.outq {
		if err := q.Drain(toyqueue.Records{rec}); err != nil {
			BroadcastErrorCount.Inc()
			s.log.Warn("dropping broadcast queue", "name", name, "err", err)
			delete(s.outq, name)
		}
	}
}

// Keys lists every stored document id.
func (s *Store) Keys() (ids []string, err error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{objectKeyPrefix},
		UpperBound: []byte{objectKeyPrefix + 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "store: iterator")
	}
	for it.First(); it.Valid(); it.Next() {
		ids = append(ids, string(it.Key()[1:]))
	}
	err = it.Close()
	return
}

func (s *Store) lastLogSeq() (uint64, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{logKeyPrefix},
		UpperBound: []byte{logKeyPrefix + 1},
	})
	if err != nil {
		return 0, errors.Wrap(err, "store: iterator")
	}
	var seq uint64
	if it.Last() && it.Valid() && len(it.Key()) == 9 {
		seq = binary.BigEndian.Uint64(it.Key()[1:])
	}
	return seq, it.Close()
}

func (s *Store) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

func changedLabel(changed bool) string {
	if changed {
		return "true"
	}
	return "false"
}
