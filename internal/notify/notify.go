// Package notify builds user-facing notifications from risk verdicts and
// dispatches them to a pluggable sink. The core selects the template and
// fills parameters; rendering and delivery belong to the sink.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	emitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smsguard",
		Subsystem: "notify",
		Name:      "emit_total",
		Help:      "Total notification emit attempts by template kind.",
	}, []string{"kind"})

	emitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smsguard",
		Subsystem: "notify",
		Name:      "emit_errors_total",
		Help:      "Total notification emit failures by template kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(emitTotal, emitErrors)
}

// Kind identifies one of the four notification templates.
type Kind string

const (
	KindStandard     Kind = "standard"
	KindSuspicious   Kind = "suspicious"
	KindPaymentAlert Kind = "payment_alert"
	KindForgery      Kind = "forgery_warning"
)

// Notification is a filled template, ready for a sink to deliver.
type Notification struct {
	Kind     Kind           `json:"kind"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Priority string         `json:"priority"` // "default" or "high"
	Data     map[string]any `json:"data,omitempty"`
}

// Standard fills the standard-code template.
func Standard(messageText string) *Notification {
	return &Notification{
		Kind:     KindStandard,
		Title:    "Standard code",
		Body:     "This appears to be a standard login/verification code.",
		Priority: "default",
		Data:     map[string]any{"originalMessage": messageText},
	}
}

// Suspicious fills the suspicious-with-reason template.
func Suspicious(reason, messageText string) *Notification {
	return &Notification{
		Kind:     KindSuspicious,
		Title:    "Suspicious OTP detected",
		Body:     fmt.Sprintf("Reason: %s.", reason),
		Priority: "high",
		Data:     map[string]any{"reason": reason, "originalMessage": messageText},
	}
}

// PaymentAlert fills the payment-alert template.
func PaymentAlert(amount, messageText string) *Notification {
	return &Notification{
		Kind:     KindPaymentAlert,
		Title:    "Payment alert",
		Body:     fmt.Sprintf("This OTP will authorize a payment of Rs.%s.", amount),
		Priority: "high",
		Data:     map[string]any{"amount": amount, "originalMessage": messageText},
	}
}

// Forgery fills the forged-sender warning template.
func Forgery(messageText string) *Notification {
	return &Notification{
		Kind:     KindForgery,
		Title:    "Sender warning",
		Body:     "This message appears to be a forgery. Do NOT trust this OTP.",
		Priority: "high",
		Data:     map[string]any{"originalMessage": messageText},
	}
}

// Notifier delivers a filled notification. Implementations own rendering and
// transport.
type Notifier interface {
	Send(ctx context.Context, n *Notification) error
}

// LogNotifier writes notifications to the structured log. It is the default
// sink when no delivery channel is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Send(_ context.Context, n *Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"kind", string(n.Kind),
		"title", n.Title,
		"body", n.Body,
		"priority", n.Priority,
	)
	return nil
}

// Dispatcher wraps a Notifier with fire-and-forget semantics: delivery
// failures are counted and logged, never returned to the pipeline.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given sink.
func NewDispatcher(notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Emit sends the notification through the sink. Errors are swallowed after
// logging; a lost notification must not fail an analysis.
func (d *Dispatcher) Emit(ctx context.Context, n *Notification) {
	if d == nil || d.notifier == nil || n == nil {
		return
	}
	emitTotal.WithLabelValues(string(n.Kind)).Inc()
	if err := d.notifier.Send(ctx, n); err != nil {
		emitErrors.WithLabelValues(string(n.Kind)).Inc()
		if d.logger != nil {
			d.logger.Warn("notification emit failed", "kind", n.Kind, "error", err)
		}
	}
}
