// Package notify is the inline message surface of a form: validation
// warnings, errors and acknowledgements shown next to the inputs.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
)

// Severity classifies a notification.
type Severity int

const (
	Error Severity = iota
	Warning
	Success
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Success:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalText lets severities appear by name in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = Error
	case "warning":
		*s = Warning
	case "success":
		*s = Success
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Notifier receives notifications from a form.
type Notifier interface {
	Insert(message string, severity Severity)
	Clear()
}

// Notification is one message shown by a Bar.
type Notification struct {
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Bar is a Notifier that keeps notifications in insertion order and mirrors
// them to a logger at debug level.
type Bar struct {
	mu     sync.Mutex
	items  []Notification
	logger *slog.Logger
}

// NewBar creates an empty bar. A nil logger uses slog.Default().
func NewBar(logger *slog.Logger) *Bar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bar{logger: logger}
}

func (b *Bar) Insert(message string, severity Severity) {
	b.mu.Lock()
	b.items = append(b.items, Notification{Message: message, Severity: severity})
	b.mu.Unlock()
	b.logger.Debug("notification", "severity", severity.String(), "message", message)
}

func (b *Bar) Clear() {
	b.mu.Lock()
	b.items = nil
	b.mu.Unlock()
}

// Notifications returns a copy of the current notifications.
func (b *Bar) Notifications() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Messages returns the messages with the given severity, in order.
func (b *Bar) Messages(severity Severity) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, n := range b.items {
		if n.Severity == severity {
			out = append(out, n.Message)
		}
	}
	return out
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Insert(string, Severity) {}
func (discard) Clear()                  {}
