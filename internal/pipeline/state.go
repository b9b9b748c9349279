package pipeline

import (
	"fmt"
	"sync"
)

// State is a step of a generation request.
type State int

const (
	Received State = iota
	Validated
	ProfileBuilt
	FeaturesGenerated
	Assembled
	Exported
	Responded
	Failed
)

var stateNames = [...]string{
	Received:          "Received",
	Validated:         "Validated",
	ProfileBuilt:      "ProfileBuilt",
	FeaturesGenerated: "FeaturesGenerated",
	Assembled:         "Assembled",
	Exported:          "Exported",
	Responded:         "Responded",
	Failed:            "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Responded || s == Failed }

// next reports whether to may follow from. Stages advance one at a time, a
// cached result jumps from Validated to Exported and any live state may fail.
func (from State) next(to State) bool {
	switch {
	case from.Terminal():
		return false
	case to == Failed:
		return true
	case to == from+1:
		return true
	case from == Validated && to == Exported:
		return true
	}
	return false
}

// Transition is reported to the OnTransition hook.
type Transition struct {
	RequestID string
	From, To  State
	// Cached is set when the result came from the cache or a concurrent
	// computation and the geometry stages were skipped.
	Cached bool
	Err    error
}

// run tracks the state of one request. The geometry stages run on the
// computation goroutine and may outlive a request that already timed out,
// so transitions out of a terminal state are dropped.
type run struct {
	id   string
	hook func(Transition)

	mu    sync.Mutex
	state State
}

func (r *run) to(s State, cached bool, err error) {
	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return
	}
	if !r.state.next(s) {
		r.mu.Unlock()
		panic(fmt.Sprintf("pipeline: illegal transition %v -> %v", r.state, s))
	}
	t := Transition{RequestID: r.id, From: r.state, To: s, Cached: cached, Err: err}
	r.state = s
	r.mu.Unlock()
	if r.hook != nil {
		r.hook(t)
	}
}

func (r *run) fail(err error) error {
	r.to(Failed, false, err)
	return err
}

func (r *run) current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
