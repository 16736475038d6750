package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
	v1 "github.com/smart-student/stats-engine/internal/api/v1"
	"github.com/smart-student/stats-engine/internal/core/records"
)

const (
	listenerPingInterval = 90 * time.Second

	// defaultDrainTimeout bounds how long Run waits on in-flight triggers
	// after cancellation. Those triggers keep running; their outcome is on
	// the control record.
	defaultDrainTimeout = 30 * time.Second
)

// Notifier receives write triggers.
type Notifier interface {
	Trigger(ctx context.Context, year int) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, year int) error

func (f NotifierFunc) Trigger(ctx context.Context, year int) error { return f(ctx, year) }

// Listener turns PostgreSQL NOTIFY messages emitted on attendance inserts
// into write triggers.
type Listener struct {
	dsn      string
	channel  string
	notifier Notifier
	loc      *time.Location
	now      func() time.Time

	drainTimeout time.Duration
}

// NewListener creates a listener on channel.
func NewListener(dsn, channel string, notifier Notifier, loc *time.Location) *Listener {
	if loc == nil {
		loc = time.UTC
	}
	return &Listener{
		dsn:      dsn,
		channel:  channel,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,

		drainTimeout: defaultDrainTimeout,
	}
}

// attendanceNotification is the payload written by the notify trigger.
type attendanceNotification struct {
	ID       string      `json:"id"`
	CourseID string      `json:"courseId"`
	Year     interface{} `json:"year"`
}

// yearFromPayload extracts the academic year of a notification. Payloads
// without a usable year fall back to the current year.
func yearFromPayload(payload string, fallback int) (int, error) {
	var n attendanceNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return 0, fmt.Errorf("decode notification: %w", err)
	}
	year, ok := records.ParseYear(n.Year)
	if !ok || v1.ValidateYear(year) != nil {
		return fallback, nil
	}
	return year, nil
}

// Run listens until ctx is cancelled. Each notification is handled in its own
// goroutine; the debounce in the controller collapses bursts.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			slog.Info("[Listener] Connected", "channel", l.channel)
		case pq.ListenerEventDisconnected:
			slog.Warn("[Listener] Disconnected", "channel", l.channel, "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("[Listener] Reconnected", "channel", l.channel)
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Error("[Listener] Connection attempt failed", "channel", l.channel, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	slog.Info("[Listener] Listening for attendance writes", "channel", l.channel)

	var wg sync.WaitGroup
	defer l.drain(&wg)

	for {
		select {
		case <-ctx.Done():
			slog.Info("[Listener] Stopping (context cancelled)")
			return nil

		case n := <-listener.Notify:
			if n == nil {
				// Connection was re-established; notifications sent meanwhile are lost.
				continue
			}
			year, err := yearFromPayload(n.Extra, l.now().In(l.loc).Year())
			if err != nil {
				slog.Warn("[Listener] Ignoring malformed notification", "payload", n.Extra, "error", err)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := l.notifier.Trigger(context.WithoutCancel(ctx), year); err != nil {
					slog.Error("[Listener] Write trigger failed", "year", year, "error", err)
				}
			}()

		case <-time.After(listenerPingInterval):
			if err := listener.Ping(); err != nil {
				slog.Warn("[Listener] Ping failed", "error", err)
			}
		}
	}
}

// drain waits for in-flight triggers up to the drain timeout and reports
// whether all of them returned.
func (l *Listener) drain(wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(l.drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		slog.Warn("[Listener] Stopped before in-flight triggers returned", "waited", l.drainTimeout)
		return false
	}
}
