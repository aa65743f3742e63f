package performance

import (
	"context"
	stderrors "errors"
	"sync"
)

// ErrSuperseded is returned for work that a newer call with the same key replaced
var ErrSuperseded = stderrors.New("superseded by a newer request")

type generation struct {
	seq    uint64
	cancel context.CancelFunc
}

// Superseder keeps only the latest call per key alive. Starting a new call
// cancels the context of the previous one.
type Superseder struct {
	mutex   sync.Mutex
	seq     uint64
	current map[string]generation
}

// NewSuperseder creates an empty superseder
func NewSuperseder() *Superseder {
	return &Superseder{current: make(map[string]generation)}
}

// Begin starts a new call for key. The returned finish func releases the
// call and reports whether it was still the latest one.
func (s *Superseder) Begin(parent context.Context, key string) (context.Context, func() bool) {
	ctx, cancel := context.WithCancel(parent)

	s.mutex.Lock()
	s.seq++
	mine := s.seq
	if prev, ok := s.current[key]; ok {
		prev.cancel()
	}
	s.current[key] = generation{seq: mine, cancel: cancel}
	s.mutex.Unlock()

	finish := func() bool {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		cancel()
		if g, ok := s.current[key]; ok && g.seq == mine {
			delete(s.current, key)
			return true
		}
		return false
	}
	return ctx, finish
}

// InFlight returns the number of keys with a running call
func (s *Superseder) InFlight() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.current)
}

// Supersede runs fn as the latest call for key. If a newer call for the same
// key starts before fn returns, the result is discarded and ErrSuperseded is
// returned.
func Supersede[T any](ctx context.Context, s *Superseder, key string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, finish := s.Begin(ctx, key)
	result, err := fn(callCtx)
	if !finish() {
		var zero T
		return zero, ErrSuperseded
	}
	return result, err
}
