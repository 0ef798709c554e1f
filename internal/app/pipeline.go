package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/trainiq/internal/session"
)

// subscriberBuffer is the number of frames queued per subscriber before the
// oldest is dropped.
const subscriberBuffer = 2

// Update is one pipeline frame delivered to subscribers. Exactly one of
// Result and Err is set.
type Update struct {
	Result *session.Result
	Err    error
}

// Subscribe registers a push channel consumer. The returned channel is closed
// by Unsubscribe.
func (a *App) Subscribe() (int, <-chan Update) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	id := a.nextID
	a.nextID++
	ch := make(chan Update, subscriberBuffer)
	a.subs[id] = ch
	a.metrics.StreamClients.Add(1)

	a.logger.Debug("stream subscriber added", "id", id, "total", len(a.subs))
	return id, ch
}

// Unsubscribe removes a consumer and closes its channel.
func (a *App) Unsubscribe(id int) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	ch, ok := a.subs[id]
	if !ok {
		return
	}
	delete(a.subs, id)
	close(ch)
	a.metrics.StreamClients.Add(-1)

	a.logger.Debug("stream subscriber removed", "id", id, "total", len(a.subs))
}

// Subscribers returns the number of active consumers.
func (a *App) Subscribers() int {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()
	return len(a.subs)
}

// publish hands u to every subscriber without blocking. A slow consumer
// loses its oldest queued frame rather than stalling the loop.
func (a *App) publish(u Update) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	for _, ch := range a.subs {
		select {
		case ch <- u:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}

// Start begins the frame loop that feeds subscribers. It is a no-op when
// already running.
func (a *App) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.logger.Info("frame loop started", "interval", a.config.StreamInterval)
}

// Stop halts the frame loop and ends the active session, if any.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
		a.logger.Info("frame loop stopped")
	}

	if _, err := a.EndSession(); err != nil && !errors.Is(err, session.ErrNotInitialized) {
		a.logger.Error("ending session on shutdown", "err", err)
	}
}

// runPipeline is the single streaming caller of ProcessFrame. It ticks at
// the stream interval and only captures while a session is active and at
// least one subscriber is listening.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(a.config.StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if a.Subscribers() == 0 {
				continue
			}

			res, err := a.ProcessFrame(ctx)
			if errors.Is(err, session.ErrNotInitialized) {
				continue
			}
			if err != nil {
				a.logger.Debug("stream frame failed", "err", err)
				a.publish(Update{Err: err})
				continue
			}
			a.publish(Update{Result: res})
		}
	}
}
