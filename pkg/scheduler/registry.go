package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Handle identifies one registered trigger. Only the registry issues handles.
type Handle struct {
	key      int64
	entry    cron.EntryID
	token    uint64
	schedule cron.Schedule
}

// Key returns the definition key the handle was registered for.
func (h Handle) Key() int64 {
	return h.key
}

// Registry owns the recurring triggers, at most one per key.
type Registry struct {
	cron    *cron.Cron
	loc     *time.Location
	logger  *zap.Logger
	mu      sync.Mutex
	handles map[int64]Handle
	seq     uint64
}

// NewRegistry creates a registry evaluating cron specs in loc.
func NewRegistry(loc *time.Location, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := zapCronLogger{logger: logger.Sugar()}
	return &Registry{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		loc:     loc,
		logger:  logger,
		handles: make(map[int64]Handle),
	}
}

// Start begins firing triggers.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts the engine and returns a context that is done once running callbacks finish.
func (r *Registry) Stop() context.Context {
	return r.cron.Stop()
}

// Register installs fn under spec for key, replacing any trigger previously registered for key.
func (r *Registry) Register(key int64, spec string, fn func()) (Handle, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return Handle{}, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handles[key]; ok {
		r.cron.Remove(existing.entry)
		delete(r.handles, key)
	}
	entry := r.cron.Schedule(schedule, cron.FuncJob(fn))
	r.seq++
	handle := Handle{key: key, entry: entry, token: r.seq, schedule: schedule}
	r.handles[key] = handle
	return handle, nil
}

// Deregister removes the trigger identified by h. Stale handles are ignored and report false.
func (r *Registry) Deregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.handles[h.key]
	if !ok || current.token != h.token {
		return false
	}
	r.cron.Remove(current.entry)
	delete(r.handles, h.key)
	return true
}

// Lookup returns the active handle for key.
func (r *Registry) Lookup(key int64) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[key]
	return h, ok
}

// Next reports when the trigger fires after from, evaluated in the registry location.
// A handle the registry did not issue yields the zero time.
func (r *Registry) Next(h Handle, from time.Time) time.Time {
	if h.schedule == nil {
		return time.Time{}
	}
	return h.schedule.Next(from.In(r.loc))
}

// Len returns the number of registered triggers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

type zapCronLogger struct {
	logger *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
