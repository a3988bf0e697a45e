// Package notify carries transient notifications (toasts) from the console
// workflows to whatever front end renders them.
package notify

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// GenericFailure is shown when a failed call carries no usable message
const GenericFailure = "Something went wrong. Please try again."

// Notification is one transient message
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier receives notifications
type Notifier interface {
	Notify(Notification)
}

// Func adapts a function to Notifier
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification
var Discard Notifier = Func(func(Notification) {})

// Send stamps and delivers a notification. A nil notifier is ignored.
func Send(n Notifier, level Level, message string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: level, Message: message, At: time.Now()})
}

// Success, Warning and Error are shorthands for Send
func Success(n Notifier, message string) { Send(n, LevelSuccess, message) }
func Warning(n Notifier, message string) { Send(n, LevelWarning, message) }
func Error(n Notifier, message string)   { Send(n, LevelError, message) }

// Failure reports a failed call, using the backend message when the error
// carries one.
func Failure(n Notifier, err error, fallback string) {
	Send(n, LevelError, MessageFor(err, fallback))
}

// BackendMessage is implemented by errors that carry a message meant for
// the admin (for example an API error body).
type BackendMessage interface {
	BackendMessage() string
}

// MessageFor returns the backend-provided message of err when there is one,
// else fallback, else GenericFailure.
func MessageFor(err error, fallback string) string {
	var bm BackendMessage
	if errors.As(err, &bm) {
		if msg := strings.TrimSpace(bm.BackendMessage()); msg != "" {
			return msg
		}
	}
	if fallback != "" {
		return fallback
	}
	return GenericFailure
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// LogNotifier writes notifications to a logger and counts them
type LogNotifier struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

func (l LogNotifier) Notify(n Notification) {
	l.Metrics.ObserveNotification(string(n.Level))
	if l.Logger == nil {
		return
	}
	entry := l.Logger.WithField("notification", string(n.Level))
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	case LevelWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Multi fans a notification out to several notifiers
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, target := range notifiers {
			if target != nil {
				target.Notify(n)
			}
		}
	})
}
