package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// HealthState is the coarse health of an upstream.
type HealthState string

// Health states derived from the circuit breaker.
const (
	HealthOK       HealthState = "OK"
	HealthDegraded HealthState = "DEGRADED"
	HealthFail     HealthState = "FAIL"
)

// UpstreamHealth is a point-in-time view of one upstream.
type UpstreamHealth struct {
	Name          string
	State         HealthState
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// stateFor maps a breaker state onto a health state.
func stateFor(s gobreaker.State) HealthState {
	switch s {
	case gobreaker.StateOpen:
		return HealthFail
	case gobreaker.StateHalfOpen:
		return HealthDegraded
	default:
		return HealthOK
	}
}

// Registry tracks upstream clients and their last outcomes.
type Registry struct {
	mu        sync.RWMutex
	upstreams map[string]*tracked
	now       func() time.Time
}

type tracked struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		upstreams: make(map[string]*tracked),
		now:       time.Now,
	}
}

// Register adds or replaces an upstream client.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upstreams[name] = &tracked{client: client}
}

// RecordSuccess notes a successful call for name.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := r.now()
		u.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed call for name.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := r.now()
		u.lastFailureAt = &now
		if err != nil {
			u.lastError = err.Error()
		}
	}
}

// Health returns the health of one upstream, or false if it is unknown.
func (r *Registry) Health(name string) (UpstreamHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.upstreams[name]
	if !ok {
		return UpstreamHealth{}, false
	}
	return u.snapshot(name), true
}

// Snapshot returns the health of every upstream, sorted by name.
func (r *Registry) Snapshot() []UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UpstreamHealth, 0, len(r.upstreams))
	for name, u := range r.upstreams {
		out = append(out, u.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Overall folds every upstream into one state: FAIL only when all are
// failing, DEGRADED when any is not OK.
func (r *Registry) Overall() HealthState {
	snap := r.Snapshot()
	if len(snap) == 0 {
		return HealthOK
	}

	failing, degraded := 0, 0
	for _, h := range snap {
		switch h.State {
		case HealthFail:
			failing++
		case HealthDegraded:
			degraded++
		}
	}

	switch {
	case failing == len(snap):
		return HealthFail
	case failing > 0 || degraded > 0:
		return HealthDegraded
	default:
		return HealthOK
	}
}

func (u *tracked) snapshot(name string) UpstreamHealth {
	cs := u.client.State()
	return UpstreamHealth{
		Name:          name,
		State:         stateFor(cs),
		CircuitState:  cs,
		Counts:        u.client.Counts(),
		LastSuccessAt: u.lastSuccessAt,
		LastFailureAt: u.lastFailureAt,
		LastError:     u.lastError,
	}
}
