package session

import (
	"time"

	"github.com/cardroom/landlord/internal/engine"
)

// Scheduler turns timed effects into cancellable callbacks that loop
// back into the session inbox. Every scheduled unit is stamped with the
// generation current at arm time; bumping the generation (on phase
// change, restart, or snapshot resync) invalidates everything still in
// flight, so a stale timer can never mutate state the match has already
// moved past.
//
// All methods are called from the session loop only; no locking needed.
type Scheduler struct {
	gen     uint64
	deliver func(Msg)
	timers  []*time.Timer
}

func newScheduler(deliver func(Msg)) *Scheduler {
	return &Scheduler{deliver: deliver}
}

// Generation returns the current generation.
func (sc *Scheduler) Generation() uint64 { return sc.gen }

// Bump invalidates all outstanding scheduled effects.
func (sc *Scheduler) Bump() {
	sc.gen++
	for _, t := range sc.timers {
		t.Stop()
	}
	sc.timers = sc.timers[:0]
}

// After arms a timer that re-enters the session with ev unless the
// generation has moved on by the time it fires.
func (sc *Scheduler) After(d time.Duration, ev engine.Event) {
	gen := sc.gen
	t := time.AfterFunc(d, func() {
		sc.deliver(timerFired{Gen: gen, Ev: ev})
	})
	sc.timers = append(sc.timers, t)
}

// Stop cancels every outstanding timer without bumping the generation.
func (sc *Scheduler) Stop() {
	for _, t := range sc.timers {
		t.Stop()
	}
	sc.timers = sc.timers[:0]
}
