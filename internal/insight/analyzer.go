package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/smsguard/internal/content"
	"github.com/mbd888/smsguard/internal/idgen"
	"github.com/mbd888/smsguard/internal/logging"
	"github.com/mbd888/smsguard/internal/metrics"
	"github.com/mbd888/smsguard/internal/notify"
	"github.com/mbd888/smsguard/internal/scorer"
	"github.com/mbd888/smsguard/internal/sender"
	"github.com/mbd888/smsguard/internal/tracker"
	"github.com/mbd888/smsguard/internal/traces"
)

// largePaymentThreshold is the amount above which an outgoing payment counts
// as a concerning factor on its own.
var largePaymentThreshold = decimal.NewFromInt(10000)

// fraudConfidenceCritical is the scorer confidence above which a fraud
// verdict alone escalates to CRITICAL.
const fraudConfidenceCritical = 0.8

// Analyzer runs the full pipeline over single messages. Safe for concurrent
// use; the tracker is the only shared mutable state.
type Analyzer struct {
	verifier *sender.Verifier
	engine   *scorer.Engine
	tracker  *tracker.Tracker
	store    Store              // nil disables the audit trail
	notifier *notify.Dispatcher // nil disables notifications
	logger   *slog.Logger

	contextThreshold time.Duration
	attackWindow     time.Duration
	maxInWindow      int
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithStore enables the assessment audit trail.
func WithStore(store Store) Option {
	return func(a *Analyzer) { a.store = store }
}

// WithNotifier enables notification dispatch.
func WithNotifier(d *notify.Dispatcher) Option {
	return func(a *Analyzer) { a.notifier = d }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithContextThreshold overrides how long after the last interaction an OTP
// arrival counts as out-of-context.
func WithContextThreshold(d time.Duration) Option {
	return func(a *Analyzer) { a.contextThreshold = d }
}

// WithAttackWindow overrides the OTP-flood window and its allowed maximum.
func WithAttackWindow(window time.Duration, maxInWindow int) Option {
	return func(a *Analyzer) {
		a.attackWindow = window
		a.maxInWindow = maxInWindow
	}
}

// NewAnalyzer wires the pipeline components. The caller owns the tracker and
// may share it across analyzers for multi-source setups.
func NewAnalyzer(verifier *sender.Verifier, engine *scorer.Engine, trk *tracker.Tracker, opts ...Option) *Analyzer {
	a := &Analyzer{
		verifier:         verifier,
		engine:           engine,
		tracker:          trk,
		logger:           slog.Default(),
		contextThreshold: tracker.DefaultContextThreshold,
		attackWindow:     tracker.DefaultAttackWindow,
		maxInWindow:      tracker.DefaultMaxInWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one message through the pipeline and returns the verdict.
//
// Empty or whitespace-only text is rejected before anything runs. Any
// unexpected failure inside a sub-step surfaces as ErrAnalysisFailed; it is
// never silently mapped to a safe verdict, and a failed message is never
// recorded as an OTP event.
func (a *Analyzer) Analyze(ctx context.Context, msg Message) (result *Result, err error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, ErrEmptyMessage
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	if msg.Sender == "" {
		msg.Sender = sender.SenderUnknownApp
	}

	ctx, span := traces.StartSpan(ctx, "insight.analyze")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("analysis panicked", "panic", r)
			metrics.AnalysisFailures.Inc()
			result = nil
			err = fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
		}
	}()

	text := strings.TrimSpace(msg.Text)

	senderVerdict := a.verifier.Verify(msg.Sender, text)
	contentAnalysis := content.Extract(text)

	hint := ""
	if !sender.IsManualSource(msg.Sender) {
		hint = msg.Sender
	}
	fraudVerdict, err := a.engine.Score(text, hint)
	if err != nil {
		metrics.AnalysisFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	// The current message must count toward its own attack-window check, so
	// the event is recorded before the tracker is read.
	a.tracker.RecordOTPEvent(ctx, msg.ReceivedAt)
	flags := ContextFlags{
		Suspicious: a.tracker.ContextSuspicious(msg.ReceivedAt, a.contextThreshold),
		PossibleAttack: a.tracker.PossibleAttack(
			msg.ReceivedAt, a.attackWindow, a.maxInWindow),
	}

	level, factors := aggregate(senderVerdict, contentAnalysis, fraudVerdict, flags)

	result = &Result{
		ID:             idgen.WithPrefix("ana_"),
		RiskLevel:      level,
		Sender:         senderVerdict,
		Content:        contentAnalysis,
		Fraud:          fraudVerdict,
		Context:        flags,
		Factors:        factors,
		Recommendation: recommendation(level),
		AnalyzedAt:     msg.ReceivedAt,
	}

	span.SetAttributes(
		traces.RiskLevel(level.String()),
		traces.SenderRisk(string(senderVerdict.Risk)),
	)

	metrics.AnalysesTotal.WithLabelValues(level.String()).Inc()
	logging.L(ctx).Info("message analyzed",
		"id", result.ID,
		"risk_level", level.String(),
		"sender_risk", string(senderVerdict.Risk),
		"is_fraud", fraudVerdict.IsFraud,
		"factors", len(factors),
	)

	// Audit trail is best-effort and off the hot path.
	if a.store != nil {
		stored := *result
		go func() {
			_ = a.store.Record(context.Background(), &stored)
		}()
	}

	a.notify(ctx, result, text)

	return result, nil
}

// aggregate folds the component signals into one risk level. Forged channel
// trust is conclusive; otherwise high-confidence fraud is conclusive;
// otherwise the count of concerning factors maps to a level.
func aggregate(sv sender.Verdict, ca content.Analysis, fv scorer.Verdict, flags ContextFlags) (RiskLevel, []string) {
	if sv.Risk == sender.RiskForgery {
		return RiskCritical, []string{"sender forgery detected"}
	}
	if fv.IsFraud && fv.Confidence > fraudConfidenceCritical {
		return RiskCritical, []string{"high-confidence fraud verdict"}
	}

	var factors []string
	if sv.Risk == sender.RiskSuspect {
		factors = append(factors, "suspicious sender")
	}
	if fv.IsFraud {
		factors = append(factors, "fraud verdict")
	}
	if flags.Suspicious {
		factors = append(factors, "no recent user interaction")
	}
	if flags.PossibleAttack {
		factors = append(factors, "OTP flood in attack window")
	}
	if ca.Direction == content.DirectionPaymentOut && ca.HasAmount() &&
		ca.AmountValue.GreaterThan(largePaymentThreshold) {
		factors = append(factors, "large outgoing payment")
	}

	switch {
	case len(factors) >= 3:
		return RiskCritical, factors
	case len(factors) == 2:
		return RiskHigh, factors
	case len(factors) == 1:
		return RiskSuspicious, factors
	default:
		return RiskSafe, nil
	}
}

func recommendation(level RiskLevel) string {
	switch level {
	case RiskCritical:
		return "Block immediately - do not follow any instructions in this message"
	case RiskHigh:
		return "Verify carefully - contact your bank or service directly"
	case RiskSuspicious:
		return "Exercise caution - verify the sender independently"
	default:
		return "Message appears safe to proceed"
	}
}

// notify selects the template for the result and dispatches it.
func (a *Analyzer) notify(ctx context.Context, result *Result, text string) {
	if a.notifier == nil {
		return
	}

	var n *notify.Notification
	switch {
	case result.Sender.Risk == sender.RiskForgery:
		n = notify.Forgery(text)
	case result.Content.Direction == content.DirectionPaymentOut && result.Content.HasAmount():
		n = notify.PaymentAlert(result.Content.Amount, text)
	case result.RiskLevel >= RiskSuspicious:
		reason := "multiple risk factors"
		if len(result.Factors) > 0 {
			reason = strings.Join(result.Factors, ", ")
		}
		n = notify.Suspicious(reason, text)
	default:
		n = notify.Standard(text)
	}
	a.notifier.Emit(ctx, n)
}

// RecordInteraction forwards a user-interaction event to the tracker so that
// subsequent OTP arrivals are judged against it.
func (a *Analyzer) RecordInteraction(ctx context.Context, now time.Time) {
	a.tracker.RecordInteraction(ctx, now)
}
