// Package toast implements the in-app notification surface: transient
// toasts in four severities and a more prominent alert surface. A Center
// fans each notification out to registered sinks exactly once.
package toast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Severity of a toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Haptic is an optional hint for device feedback accompanying a toast.
type Haptic string

const (
	HapticNone    Haptic = ""
	HapticLight   Haptic = "light"
	HapticMedium  Haptic = "medium"
	HapticHeavy   Haptic = "heavy"
	HapticSuccess Haptic = "success"
	HapticError   Haptic = "error"
)

// AlertPreset selects the visual treatment of an alert.
type AlertPreset string

const (
	PresetDone  AlertPreset = "done"
	PresetError AlertPreset = "error"
	PresetNone  AlertPreset = "none"
)

// DefaultDuration is used when a notification carries no explicit duration.
const DefaultDuration = 4 * time.Second

// Toast is a single transient notification.
type Toast struct {
	Severity Severity
	Message  string
	Duration time.Duration
	Haptic   Haptic
}

// Alert is the prominent notification surface.
type Alert struct {
	Title    string
	Message  string
	Duration time.Duration
	Preset   AlertPreset
}

// Option customizes a single notification.
type Option func(*Toast)

// WithDuration overrides the display duration.
func WithDuration(d time.Duration) Option {
	return func(t *Toast) { t.Duration = d }
}

// WithHaptic attaches a haptic hint.
func WithHaptic(h Haptic) Option {
	return func(t *Toast) { t.Haptic = h }
}

// Notifier is the command surface consumers depend on.
type Notifier interface {
	Success(message string, opts ...Option)
	Error(message string, opts ...Option)
	Info(message string, opts ...Option)
	Warning(message string, opts ...Option)
	Alert(title, message string, duration time.Duration, preset AlertPreset)
}

// Sink receives dispatched notifications, e.g. a UI bridge or a logger.
type Sink interface {
	ShowToast(t Toast)
	ShowAlert(a Alert)
}

// Center dispatches notifications to its sinks. Safe for concurrent use.
type Center struct {
	mu    sync.RWMutex
	sinks []Sink
}

var _ Notifier = (*Center)(nil)

// NewCenter creates a Center with the given sinks.
func NewCenter(sinks ...Sink) *Center {
	return &Center{sinks: sinks}
}

// Register adds a sink.
func (c *Center) Register(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

func (c *Center) show(sev Severity, message string, opts []Option) {
	t := Toast{Severity: sev, Message: message, Duration: DefaultDuration}
	for _, opt := range opts {
		opt(&t)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sinks {
		s.ShowToast(t)
	}
}

func (c *Center) Success(message string, opts ...Option) { c.show(SeveritySuccess, message, opts) }
func (c *Center) Error(message string, opts ...Option)   { c.show(SeverityError, message, opts) }
func (c *Center) Info(message string, opts ...Option)    { c.show(SeverityInfo, message, opts) }
func (c *Center) Warning(message string, opts ...Option) { c.show(SeverityWarning, message, opts) }

// Alert dispatches to the prominent surface.
func (c *Center) Alert(title, message string, duration time.Duration, preset AlertPreset) {
	if duration <= 0 {
		duration = DefaultDuration
	}
	a := Alert{Title: title, Message: message, Duration: duration, Preset: preset}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sinks {
		s.ShowAlert(a)
	}
}

// LogSink writes notifications to a zerolog logger. Used headless, where
// no UI bridge is attached.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) ShowToast(t Toast) {
	evt := s.Log.Info()
	if t.Severity == SeverityError {
		evt = s.Log.Warn()
	}
	evt.Str("severity", string(t.Severity)).
		Dur("duration", t.Duration).
		Msg(t.Message)
}

func (s LogSink) ShowAlert(a Alert) {
	s.Log.Info().
		Str("preset", string(a.Preset)).
		Str("title", a.Title).
		Msg(a.Message)
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	Toasts []Toast
	Alerts []Alert
}

func (r *Recorder) ShowToast(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Toasts = append(r.Toasts, t)
}

func (r *Recorder) ShowAlert(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, a)
}

// BySeverity returns recorded toasts matching sev.
func (r *Recorder) BySeverity(sev Severity) []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Toast
	for _, t := range r.Toasts {
		if t.Severity == sev {
			out = append(out, t)
		}
	}
	return out
}
