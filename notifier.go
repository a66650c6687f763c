package classmodel

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/Facepunch/react-class-model/classmodel_errors"
	"github.com/Facepunch/react-class-model/utils"
)

// VersionBound caps the per-object version counter; past it the
// counter wraps back to 1, staying distinguishable within a cycle.
const VersionBound = 100000

// DefaultListenerLimit is a leak-detection heuristic, not a hard cap.
// Crossing it routes ErrListenerLimit to the hub's error hook.
const DefaultListenerLimit = 100

// Listener receives coalesced change notifications for one instance.
// With a non-empty Fields filter it is only called when the dirty set
// intersects the filter (or the whole object was marked dirty).
type Listener struct {
	Fields []string
	Notify func(version uint64)
}

type objState struct {
	lock      sync.Mutex
	version   uint64
	dirty     map[string]struct{}
	wildcard  bool
	listeners []*Listener
}

func (st *objState) pending() bool {
	return st.wildcard || len(st.dirty) > 0
}

// Hub tracks per-instance listeners and dirty fields, and batches
// change dispatch onto a scheduler tick.
type Hub struct {
	sched  Scheduler
	limit  int
	log    utils.Logger
	states utils.CMap[any, *objState]

	// OnError receives listener panics and the listener-limit warning.
	// Overridable; the default logs and moves on.
	OnError func(obj any, err error)
}

func NewHub(sched Scheduler, log utils.Logger) *Hub {
	if log == nil {
		log = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if sched == nil {
		sched = NewTickScheduler(log)
	}
	h := &Hub{
		sched: sched,
		limit: DefaultListenerLimit,
		log:   log,
	}
	h.OnError = func(obj any, err error) {
		h.log.Error("listener dispatch", "err", err, "obj", obj)
	}
	return h
}

// SetListenerLimit overrides the leak-detection threshold.
func (h *Hub) SetListenerLimit(limit int) { h.limit = limit }

func (h *Hub) state(obj any) *objState {
	st, _ := h.states.LoadOrStore(obj, &objState{version: 0, dirty: map[string]struct{}{}})
	return st
}

// Version returns the instance's current notification version.
func (h *Hub) Version(obj any) uint64 {
	st, ok := h.states.Load(obj)
	if !ok {
		return 0
	}
	st.lock.Lock()
	defer st.lock.Unlock()
	return st.version
}

func (h *Hub) AddListener(obj any, l *Listener) {
	st := h.state(obj)
	st.lock.Lock()
	st.listeners = append(st.listeners, l)
	count := len(st.listeners)
	st.lock.Unlock()
	if count > h.limit {
		h.OnError(obj, errors.Wrapf(classmodel_errors.ErrListenerLimit, "%d listeners", count))
	}
}

// RemoveListener drops a listener; the last one to go also releases
// the instance's state entry so the hub stops pinning the instance.
func (h *Hub) RemoveListener(obj any, l *Listener) {
	st, ok := h.states.Load(obj)
	if !ok {
		return
	}
	st.lock.Lock()
	lstns := st.listeners
	for n := 0; n < len(lstns); n++ {
		if lstns[n] == l {
			lstns[n] = lstns[len(lstns)-1]
			lstns = lstns[:len(lstns)-1]
			n--
		}
	}
	st.listeners = lstns
	abandoned := len(lstns) == 0 && !st.pending()
	st.lock.Unlock()
	if abandoned {
		h.states.CompareAndDelete(obj, st)
	}
}

// Notify marks fields dirty and arms one deferred flush per cycle.
// With no field names the whole object is marked dirty (wildcard).
// Calls landing while a flush is already armed only augment the dirty
// set; bursts of changes within one turn coalesce into a single flush.
func (h *Hub) Notify(obj any, fields ...string) {
	st := h.state(obj)
	st.lock.Lock()
	wasPending := st.pending()
	if len(fields) == 0 {
		st.wildcard = true
	} else {
		for _, name := range fields {
			st.dirty[name] = struct{}{}
		}
	}
	if wasPending {
		st.lock.Unlock()
		return
	}
	st.version++
	if st.version > VersionBound {
		st.version = 1
	}
	st.lock.Unlock()
	h.sched.Defer(func() { h.flush(obj, st) })
}

// objectChanged is the merge engine's entry point; unlike Notify it
// ignores instances nobody ever subscribed to.
func (h *Hub) objectChanged(obj any, fields ...string) {
	if _, tracked := h.states.Load(obj); !tracked {
		return
	}
	h.Notify(obj, fields...)
}

// flush delivers the pending version to every interested listener.
// The dirty set is taken and cleared before delivery so a Notify fired
// from inside a listener arms a fresh flush instead of being absorbed
// into the one already draining.
func (h *Hub) flush(obj any, st *objState) {
	st.lock.Lock()
	version := st.version
	wildcard := st.wildcard
	dirty := st.dirty
	st.wildcard = false
	st.dirty = map[string]struct{}{}
	listeners := make([]*Listener, len(st.listeners))
	copy(listeners, st.listeners)
	st.lock.Unlock()

	kind := "fields"
	if wildcard {
		kind = "wildcard"
	}
	NotifyFlushCount.WithLabelValues(kind).Inc()

	for _, l := range listeners {
		if len(l.Fields) > 0 && !wildcard && !intersects(dirty, l.Fields) {
			continue
		}
		h.deliver(obj, l, version)
	}
}

// deliver runs one listener; a panic there must not starve the rest.
func (h *Hub) deliver(obj any, l *Listener, version uint64) {
	defer func() {
		if r := recover(); r != nil {
			ListenerErrorCount.Inc()
			h.OnError(obj, errors.Wrapf(classmodel_errors.ErrListenerPanic, "%v", r))
		}
	}()
	l.Notify(version)
}

var defaultHubOnce sync.Once

// DefaultHub lazily builds the hub behind the package-level listener
// API and attaches it to the default engine.
func DefaultHub() *Hub {
	defaultHubOnce.Do(func() {
		if defaultEngine.Hub == nil {
			defaultEngine.Hub = NewHub(nil, nil)
		}
	})
	return defaultEngine.Hub
}

func AddListener(obj any, l *Listener) { DefaultHub().AddListener(obj, l) }

func RemoveListener(obj any, l *Listener) { DefaultHub().RemoveListener(obj, l) }

func Notify(obj any, fields ...string) { DefaultHub().Notify(obj, fields...) }

func intersects(dirty map[string]struct{}, filter []string) bool {
	for _, name := range filter {
		if _, hit := dirty[name]; hit {
			return true
		}
	}
	return false
}
