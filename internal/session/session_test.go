package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/card"
	"github.com/cardroom/landlord/internal/engine"
	"github.com/cardroom/landlord/internal/rule"
)

// recorder is a fake Outbound that remembers every request.
type recorder struct {
	mu       sync.Mutex
	bids     []int
	plays    [][]card.ID
	restarts int
	resyncs  int
}

func (r *recorder) SendBid(call int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids = append(r.bids, call)
	return nil
}

func (r *recorder) SendPlay(cards []card.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays = append(r.plays, cards)
	return nil
}

func (r *recorder) SendRestart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarts++
	return nil
}

func (r *recorder) SendResync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resyncs++
	return nil
}

func (r *recorder) counts() (bids, plays, restarts, resyncs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bids), len(r.plays), r.restarts, r.resyncs
}

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func getView(t *testing.T, s *Session, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func testPlayers() [engine.NumSeats]engine.Player {
	return [engine.NumSeats]engine.Player{
		{ID: "p0", Seat: 0}, {ID: "p1", Seat: 1}, {ID: "p2", Seat: 2},
	}
}

func testHand() []card.ID {
	hand := make([]card.ID, card.HandSize)
	for i := range hand {
		hand[i] = card.ID(i + 1)
	}
	return hand
}

func newTestSession(t *testing.T, out Outbound, hooks Hooks) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng := engine.New(rule.New(), 5*time.Millisecond, 5*time.Millisecond)
	return New(ctx, eng, out, hooks, zap.NewNop())
}

func TestSubscribeDeliversCurrentSnapshotAndVersions(t *testing.T) {
	s := newTestSession(t, &recorder{}, Hooks{})

	out := make(chan Snapshot, 4)
	s.Inbox() <- Subscribe{ID: "ui", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("on subscribe: want version 0, got %d", first.Version)
	}
	if first.State.Phase != engine.PhaseJoining {
		t.Fatalf("on subscribe: phase %s", first.State.Phase)
	}

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}

	next := recvSnapshot(t, out, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after join: want version 1, got %d", next.Version)
	}
	if next.State.Phase != engine.PhaseDealt {
		t.Fatalf("after join: phase %s, want %s", next.State.Phase, engine.PhaseDealt)
	}
}

func TestRejectedEventLeavesVersionAndState(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, rec, Hooks{})

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	// A deal with the wrong card count must be rejected wholesale.
	s.Inbox() <- Deliver{Ev: engine.Dealt{Hand: testHand()[:5], FirstBidder: 0}}

	v := getView(t, s, 100*time.Millisecond)
	if v.Version != 1 {
		t.Fatalf("rejected event advanced version: %d", v.Version)
	}
	if v.State.Phase != engine.PhaseDealt {
		t.Fatalf("rejected event changed phase: %s", v.State.Phase)
	}

	// A protocol violation asks the authority for a fresh snapshot.
	_, _, _, resyncs := rec.counts()
	if resyncs != 1 {
		t.Fatalf("want 1 resync request, got %d", resyncs)
	}
}

func TestLocalRejectionHookFires(t *testing.T) {
	rejected := make(chan error, 1)
	rec := &recorder{}
	s := newTestSession(t, rec, Hooks{
		OnReject: func(err error) { rejected <- err },
	})

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	s.Inbox() <- Deliver{Ev: engine.Dealt{Hand: testHand(), FirstBidder: 1}}
	// Not our turn: fast local rejection, no wire traffic.
	s.Inbox() <- Deliver{Ev: engine.LocalBidRequested{Call: 2}}

	select {
	case <-rejected:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for rejection hook")
	}
	bids, _, _, resyncs := rec.counts()
	if bids != 0 || resyncs != 0 {
		t.Fatalf("local rejection reached the wire: bids=%d resyncs=%d", bids, resyncs)
	}
}

func TestTurnReadyHookOnFirstBid(t *testing.T) {
	ready := make(chan engine.Seat, 1)
	s := newTestSession(t, &recorder{}, Hooks{
		OnTurnReady: func(seat engine.Seat) { ready <- seat },
	})

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	s.Inbox() <- Deliver{Ev: engine.Dealt{Hand: testHand(), FirstBidder: 0}}

	select {
	case seat := <-ready:
		if seat != 0 {
			t.Fatalf("turn ready for seat %d, want 0", seat)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for turn-ready hook")
	}
}

func TestScheduledRevealFiresThroughInbox(t *testing.T) {
	s := newTestSession(t, &recorder{}, Hooks{})

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	s.Inbox() <- Deliver{Ev: engine.Dealt{Hand: testHand(), FirstBidder: 0}}
	s.Inbox() <- Deliver{Ev: engine.BidResolved{
		Seat: 0, Call: 3, Landlord: 0,
		Bottom: []card.ID{18, 19, 20}, BaseScore: 3,
	}}

	// The reveal timer (5ms) loops back and merges the bottom.
	deadline := time.After(500 * time.Millisecond)
	for {
		v := getView(t, s, 100*time.Millisecond)
		if !v.State.PendingReveal && v.State.Hand.Len() == card.HandSize+card.BottomSize {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("bottom never revealed: %+v", v.State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	s := newTestSession(t, &recorder{}, Hooks{})

	// Capacity 1: the subscribe-time snapshot fills it, so the next
	// broadcast finds it full and drops the subscriber.
	out := make(chan Snapshot, 1)
	s.Inbox() <- Subscribe{ID: "slow", Outbox: out}
	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}

	deadline := time.After(500 * time.Millisecond)
	for {
		v := getView(t, s, 100*time.Millisecond)
		if v.NumSubs == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("slow subscriber never dropped")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestResyncSnapshotInvalidatesArmedTimers(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	// Long reveal delay so the snapshot arrives while the timer is armed.
	eng := engine.New(rule.New(), 50*time.Millisecond, 50*time.Millisecond)
	s := New(ctx, eng, rec, Hooks{}, zap.NewNop())

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	s.Inbox() <- Deliver{Ev: engine.Dealt{Hand: testHand(), FirstBidder: 0}}
	s.Inbox() <- Deliver{Ev: engine.BidResolved{
		Seat: 0, Call: 3, Landlord: 0,
		Bottom: []card.ID{18, 19, 20}, BaseScore: 3,
	}}

	// The authority resyncs us mid-match with the bottom already merged.
	// Same phase (PLAYING), but the armed reveal timer belongs to the
	// replaced state and must never fire against this one.
	resumeHand := append(testHand(), 18, 19, 20)
	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{
		Players:    testPlayers(),
		Landlord:   0,
		Hand:       resumeHand,
		HandCounts: [engine.NumSeats]int{len(resumeHand), card.HandSize, card.HandSize},
		WhoseTurn:  0,
		BaseScore:  3,
	}}

	time.Sleep(150 * time.Millisecond)

	v := getView(t, s, 100*time.Millisecond)
	if v.State.PendingReveal {
		t.Fatalf("resynced state still pending reveal")
	}
	_, _, _, resyncs := rec.counts()
	if resyncs != 0 {
		t.Fatalf("stale timer triggered %d resync requests, want 0", resyncs)
	}
}

func TestEarlyLandlordLeadDisarmsRevealTimer(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng := engine.New(rule.New(), 50*time.Millisecond, 50*time.Millisecond)
	s := New(ctx, eng, rec, Hooks{}, zap.NewNop())

	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	s.Inbox() <- Deliver{Ev: engine.Dealt{Hand: testHand(), FirstBidder: 2}}
	s.Inbox() <- Deliver{Ev: engine.BidResolved{
		Seat: 2, Call: 3, Landlord: 2,
		Bottom: []card.ID{50, 51, 52}, BaseScore: 3,
	}}
	// The authority's landlord leads before our reveal delay elapses.
	// The lead folds the reveal in, and the now-moot timer must not
	// fire against the merged state later.
	s.Inbox() <- Deliver{Ev: engine.PeerPlayed{Seat: 2, Cards: []card.ID{49}}}

	time.Sleep(150 * time.Millisecond)

	v := getView(t, s, 100*time.Millisecond)
	if v.State.PendingReveal {
		t.Fatalf("reveal still pending after landlord lead")
	}
	_, _, _, resyncs := rec.counts()
	if resyncs != 0 {
		t.Fatalf("moot reveal timer triggered %d resync requests, want 0", resyncs)
	}
}

func TestGenerationBumpOnPhaseChange(t *testing.T) {
	s := newTestSession(t, &recorder{}, Hooks{})

	before := getView(t, s, 100*time.Millisecond).Generation
	s.Inbox() <- Deliver{Ev: engine.JoinAccepted{Players: testPlayers(), Landlord: engine.NoSeat}}
	after := getView(t, s, 100*time.Millisecond).Generation

	if after <= before {
		t.Fatalf("phase change did not bump generation: %d -> %d", before, after)
	}
}

func TestSchedulerDropsStaleGenerations(t *testing.T) {
	var mu sync.Mutex
	var delivered []Msg
	sc := newScheduler(func(m Msg) {
		mu.Lock()
		delivered = append(delivered, m)
		mu.Unlock()
	})

	sc.After(5*time.Millisecond, engine.RevealBottom{})
	sc.Bump() // invalidates the armed timer

	sc.After(5*time.Millisecond, engine.RestartTimerFired{})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// The bumped timer was stopped outright; only the second fires, and
	// it carries the post-bump generation.
	if len(delivered) != 1 {
		t.Fatalf("delivered %d callbacks, want 1", len(delivered))
	}
	tf, ok := delivered[0].(timerFired)
	if !ok {
		t.Fatalf("unexpected message %T", delivered[0])
	}
	if tf.Gen != sc.Generation() {
		t.Fatalf("gen %d, want %d", tf.Gen, sc.Generation())
	}
	if _, ok := tf.Ev.(engine.RestartTimerFired); !ok {
		t.Fatalf("unexpected event %T", tf.Ev)
	}
}
