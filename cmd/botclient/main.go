// Command botclient joins a table and plays it with the built-in
// strategy. It is both a load driver and the reference wiring of the
// session core: channel adapter feeding the session actor, turn-ready
// hooks feeding local input back in.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardroom/landlord/internal/bot"
	"github.com/cardroom/landlord/internal/channel"
	"github.com/cardroom/landlord/internal/config"
	"github.com/cardroom/landlord/internal/engine"
	"github.com/cardroom/landlord/internal/rule"
	"github.com/cardroom/landlord/internal/session"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	table := flag.String("table", "", "table code to join (required)")
	name := flag.String("name", "bot", "display name")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *table == "" {
		log.Fatal("missing -table")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	identity := channel.Identity{
		ID:    uuid.NewString(),
		Name:  *name,
		Table: *table,
	}

	// The adapter buffers into a channel so the session can be built
	// after the dial without losing early events.
	events := make(chan engine.Event, 64)
	turnReady := make(chan struct{}, 1)

	handlers := channel.Handlers{
		OnEvent: func(ev engine.Event) { events <- ev },
		OnError: func(err error) {
			log.Error("connection lost", zap.Error(err))
			cancel()
		},
	}

	endpoint := *url + "?table=" + *table + "&id=" + identity.ID + "&name=" + *name
	client, err := channel.Dial(ctx, endpoint, identity, handlers, log)
	if err != nil {
		log.Fatal("dial failed", zap.Error(err))
	}
	defer client.Close()

	hooks := session.Hooks{
		OnTurnReady: func(engine.Seat) {
			select {
			case turnReady <- struct{}{}:
			default:
			}
		},
		OnReject: func(err error) {
			log.Warn("move rejected", zap.Error(err))
		},
	}
	cfg := config.Load()
	sess := session.New(ctx, engine.New(rule.New(), cfg.RevealDelay, cfg.RestartDelay), client, hooks, log)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				sess.Inbox() <- session.Deliver{Ev: ev}
			}
		}
	}()
	go runBrain(ctx, sess, bot.NewIdiot(), turnReady)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	sess.Inbox() <- session.Shutdown{}
}

// runBrain waits for turn-ready signals, inspects the current state,
// and feeds a decision back through the session inbox.
func runBrain(ctx context.Context, sess *session.Session, brain bot.Strategy, turnReady <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-turnReady:
		}

		reply := make(chan session.View, 1)
		sess.Inbox() <- session.GetState{Reply: reply}
		var view session.View
		select {
		case <-ctx.Done():
			return
		case view = <-reply:
		}
		st := view.State
		if !st.LocalTurn() {
			continue
		}

		switch st.Phase {
		case engine.PhaseBidding:
			call := brain.DecideBid(st.Hand.IDs(), nil)
			sess.Inbox() <- session.Deliver{Ev: engine.LocalBidRequested{Call: call}}

		case engine.PhasePlaying:
			if st.PendingReveal {
				continue
			}
			move := brain.DecidePlay(bot.PlayView{
				Hand:       st.Hand.IDs(),
				Trick:      st.Trick.Cards,
				FreeLead:   st.Trick.Empty(),
				IsLandlord: st.Landlord == 0,
			})
			if move.Pass && st.Trick.Empty() {
				move = bot.Move{Cards: st.Hand.IDs()[:1]}
			}
			cards := move.Cards
			if move.Pass {
				cards = nil
			}
			sess.Inbox() <- session.Deliver{Ev: engine.LocalPlayRequested{Cards: cards}}
		}
	}
}
