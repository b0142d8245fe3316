package carrier

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknownCarrier means a carrier code has no registered tracker.
// It is a configuration fault and is never retried.
var ErrUnknownCarrier = errors.New("unknown carrier")

// Registry maps carrier codes to trackers. It is filled once at startup and
// read concurrently afterwards.
type Registry struct {
	trackers map[string]Tracker
}

func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]Tracker)}
}

func (r *Registry) Register(code string, t Tracker) *Registry {
	r.trackers[code] = t
	return r
}

func (r *Registry) IsCourierValid(code string) bool {
	_, ok := r.trackers[code]
	return ok
}

func (r *Registry) Tracker(code string) (Tracker, error) {
	t, ok := r.trackers[code]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCarrier, "carrier %q", code)
	}
	return t, nil
}

func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.trackers))
	for c := range r.trackers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
