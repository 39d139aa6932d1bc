package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"petrodash/internal/infrastructure"
	"petrodash/internal/series"
)

// ErrSuperseded is returned by Load when a newer request for the same view
// was issued before this one finished. The caller still gets its own result.
var ErrSuperseded = errors.New("superseded by a newer request")

// State is what a view currently shows
type State struct {
	View      string            `json:"view"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	Frame     series.Frame      `json:"frame"`
	Seq       uint64            `json:"seq"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// LoaderFunc produces a fresh frame for a filter selection
type LoaderFunc func(ctx context.Context) (series.Frame, error)

// Registry tracks applied state for every view key
type Registry struct {
	seq     *Sequencer
	mu      sync.RWMutex
	states  map[string]*State
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	now     func() time.Time
}

// NewRegistry creates a registry
func NewRegistry(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		seq:     NewSequencer(),
		states:  make(map[string]*State),
		logger:  logger.With(slog.String("component", "fetch")),
		metrics: metrics,
		now:     time.Now,
	}
}

// Key scopes view state to one user
func Key(view, userID string) string {
	if userID == "" {
		return view
	}
	return view + "@" + userID
}

// Begin issues a ticket for key and marks the view loading
func (r *Registry) Begin(key, view string, filters map[string]string) Ticket {
	t := r.seq.Next(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.stateLocked(key, view)
	st.Loading = true
	st.Filters = filters
	return t
}

// Complete applies frame if t is still current. Stale results are discarded.
func (r *Registry) Complete(ctx context.Context, t Ticket, frame series.Frame) bool {
	return r.apply(ctx, t, func(st *State) {
		st.Frame = frame
		st.Error = ""
	})
}

// Fail records err if t is still current; the view's data is reset to empty
func (r *Registry) Fail(ctx context.Context, t Ticket, err error) bool {
	return r.apply(ctx, t, func(st *State) {
		st.Frame = series.Frame{Axis: []series.DateKey{}, Series: []series.AlignedSeries{}, Envelope: []series.Band{}}
		st.Error = err.Error()
	})
}

func (r *Registry) apply(ctx context.Context, t Ticket, update func(*State)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seq.Current(t) {
		st := r.states[t.Key]
		view := t.Key
		if st != nil {
			view = st.View
		}
		r.metrics.RecordStale(ctx, view)
		r.logger.DebugContext(ctx, "discarding stale response",
			slog.String("key", t.Key),
			slog.Uint64("seq", t.Seq),
			slog.Uint64("latest", r.seq.Latest(t.Key)))
		return false
	}

	st := r.stateLocked(t.Key, t.Key)
	update(st)
	st.Loading = false
	st.Seq = t.Seq
	st.UpdatedAt = r.now()
	return true
}

func (r *Registry) stateLocked(key, view string) *State {
	st, ok := r.states[key]
	if !ok {
		st = &State{View: view}
		r.states[key] = st
	}
	return st
}

// Load runs loader under a fresh ticket and applies its outcome. The loader's
// own result is always returned; ErrSuperseded (joined with any loader error)
// tells the caller that the shared state kept a newer result.
func (r *Registry) Load(ctx context.Context, key, view string, filters map[string]string, loader LoaderFunc) (series.Frame, error) {
	t := r.Begin(key, view, filters)

	frame, err := loader(ctx)
	if err != nil {
		if !r.Fail(ctx, t, err) {
			return frame, errors.Join(err, ErrSuperseded)
		}
		return frame, err
	}

	if !r.Complete(ctx, t, frame) {
		return frame, ErrSuperseded
	}
	return frame, nil
}

// Snapshot returns a copy of the state for key
func (r *Registry) Snapshot(key string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.states[key]
	if !ok {
		return State{}, false
	}
	out := *st
	return out, true
}
