// Package notify is the user-facing notification bus. Operations publish short
// success or error messages; the front end subscribes and shows them.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDedupeWindow is how long an error announced by the API observer
// suppresses a caller announcing the same error with the same message.
const DefaultDedupeWindow = 2 * time.Second

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Notification struct {
	ID      uuid.UUID
	Level   Level
	Message string
	Time    time.Time
}

// Handler receives published notifications. It runs on the publisher's
// goroutine and must not publish on the same bus.
type Handler func(Notification)

// reported is an error the API observer announced.
type reported struct {
	err     error
	message string
	at      time.Time
}

// Bus fans notifications out to subscribers. A failed call is seen by the API
// observer and usually by the operation that made it; Failure drops the
// second announcement of the same error value with the same message.
type Bus struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
	reported []reported
}

type Option func(*Bus)

// WithDedupeWindow overrides DefaultDedupeWindow. Zero disables deduplication.
func WithDedupeWindow(window time.Duration) Option {
	return func(b *Bus) {
		b.window = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}

func NewBus(options ...Option) *Bus {
	b := &Bus{
		window:   DefaultDedupeWindow,
		now:      time.Now,
		handlers: make(map[int]Handler),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Subscribe registers h and returns the function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
		})
	}
}

// Publish delivers a notification to every subscriber. It reports false when
// the message was empty.
func (b *Bus) Publish(level Level, message string) (Notification, bool) {
	if message == "" {
		return Notification{}, false
	}

	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	n := Notification{
		ID:      uuid.New(),
		Level:   level,
		Message: message,
		Time:    b.now(),
	}
	for _, h := range handlers {
		h(n)
	}
	return n, true
}

func (b *Bus) Success(message string) { b.Publish(LevelSuccess, message) }
func (b *Bus) Error(message string)   { b.Publish(LevelError, message) }
func (b *Bus) Info(message string)    { b.Publish(LevelInfo, message) }

// Failure publishes message as an error unless the API observer already
// announced err, or an error err wraps, with the same message inside the
// dedupe window.
func (b *Bus) Failure(err error, message string) {
	if err != nil && b.announced(err, message) {
		return
	}
	b.Error(message)
}

// report publishes message for err and remembers the pair for Failure.
func (b *Bus) report(err error, message string) {
	if _, ok := b.Publish(LevelError, message); !ok || b.window <= 0 {
		return
	}
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(now)
	b.reported = append(b.reported, reported{err: err, message: message, at: now})
}

func (b *Bus) announced(err error, message string) bool {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(now)
	for _, r := range b.reported {
		if r.message == message && errors.Is(err, r.err) {
			return true
		}
	}
	return false
}

func (b *Bus) pruneLocked(now time.Time) {
	kept := b.reported[:0]
	for _, r := range b.reported {
		if now.Sub(r.at) < b.window {
			kept = append(kept, r)
		}
	}
	clear(b.reported[len(kept):])
	b.reported = kept
}
