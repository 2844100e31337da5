package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
)

const notifyTimeout = 10 * time.Second

// Notifier receives engine events after the transition that produced them has committed.
type Notifier interface {
	Notify(ctx context.Context, event brackets.Event)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, event brackets.Event)

func (f NotifierFunc) Notify(ctx context.Context, event brackets.Event) { f(ctx, event) }

type hubNotifier struct {
	hub *brackets.Hub
}

// NewHubNotifier pushes every event to the websocket room of its tournament.
func NewHubNotifier(hub *brackets.Hub) Notifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) Notify(_ context.Context, event brackets.Event) {
	n.hub.Publish(event)
}

// MultiNotifier fans an event out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event brackets.Event) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}

// dispatchEvents delivers events in the background. The caller never waits for it
// and a failing notifier cannot affect the committed state.
func dispatchEvents(logger *slog.Logger, notifier Notifier, events []brackets.Event) {
	if notifier == nil || len(events) == 0 {
		return
	}
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("notifier panicked", slog.Any("panic", p))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, e := range events {
			notifier.Notify(ctx, e)
		}
	}()
}
