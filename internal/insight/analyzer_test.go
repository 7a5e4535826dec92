package insight

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/smsguard/internal/content"
	"github.com/mbd888/smsguard/internal/notify"
	"github.com/mbd888/smsguard/internal/scorer"
	"github.com/mbd888/smsguard/internal/sender"
	"github.com/mbd888/smsguard/internal/tracker"
	"github.com/mbd888/smsguard/internal/trustlist"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// captureNotifier records every notification it receives.
type captureNotifier struct {
	sent []*notify.Notification
}

func (c *captureNotifier) Send(_ context.Context, n *notify.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func newTestAnalyzer(t *testing.T, trk *tracker.Tracker, opts ...Option) *Analyzer {
	t.Helper()
	engine := scorer.NewEngine()
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("engine load failed: %v", err)
	}
	if trk == nil {
		trk = tracker.New()
	}
	return NewAnalyzer(sender.NewVerifier(trustlist.Default()), engine, trk, opts...)
}

func TestAnalyzeLegitimateBankMessage(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	result, err := a.Analyze(context.Background(), Message{
		Text:       "Dear Customer, Rs.5000 credited to your account ending 1234. Available balance: Rs.12,000.",
		Sender:     "SBIINB",
		ReceivedAt: base,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if result.RiskLevel != RiskSafe {
		t.Errorf("risk level: got %s, want SAFE (factors: %v)", result.RiskLevel, result.Factors)
	}
	if result.Sender.Risk != sender.RiskSafe {
		t.Errorf("sender risk: got %s, want SAFE", result.Sender.Risk)
	}
	if result.Fraud.IsFraud {
		t.Error("legitimate bank message scored as fraud")
	}
	if result.Content.Direction != content.DirectionPaymentIn {
		t.Errorf("direction: got %q, want PAYMENT_IN", result.Content.Direction)
	}
	if result.Content.Amount != "5000" {
		t.Errorf("amount: got %q, want 5000", result.Content.Amount)
	}
	if len(result.Factors) != 0 {
		t.Errorf("expected no concerning factors, got %v", result.Factors)
	}
	if result.Recommendation != "Message appears safe to proceed" {
		t.Errorf("unexpected recommendation: %q", result.Recommendation)
	}
	if result.ID == "" || !result.AnalyzedAt.Equal(base) {
		t.Errorf("result metadata incomplete: id=%q analyzedAt=%v", result.ID, result.AnalyzedAt)
	}
}

func TestAnalyzeForgedSenderIsCritical(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	// Unregistered short-code-shaped header linking off the whitelist.
	result, err := a.Analyze(context.Background(), Message{
		Text:       "Your account needs verification, visit http://sbi-verify.tk/kyc now",
		Sender:     "SBI12345",
		ReceivedAt: base,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if result.RiskLevel != RiskCritical {
		t.Errorf("risk level: got %s, want CRITICAL", result.RiskLevel)
	}
	if result.Sender.Risk != sender.RiskForgery {
		t.Errorf("sender risk: got %s, want HIGH_RISK_FORGERY", result.Sender.Risk)
	}
	if len(result.Factors) != 1 || result.Factors[0] != "sender forgery detected" {
		t.Errorf("factors: got %v", result.Factors)
	}
	if result.Recommendation != "Block immediately - do not follow any instructions in this message" {
		t.Errorf("unexpected recommendation: %q", result.Recommendation)
	}
}

func TestAnalyzeEmptyMessageRejected(t *testing.T) {
	trk := tracker.New()
	a := newTestAnalyzer(t, trk)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := a.Analyze(context.Background(), Message{Text: text, Sender: "SBIINB"})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Analyze(%q): expected ErrEmptyMessage, got %v", text, err)
		}
	}
	if got := trk.EventCount(); got != 0 {
		t.Errorf("rejected messages must not be recorded, got %d events", got)
	}
}

func TestAnalyzeScorerNotReady(t *testing.T) {
	trk := tracker.New()
	// Engine deliberately not loaded.
	a := NewAnalyzer(sender.NewVerifier(trustlist.Default()), scorer.NewEngine(), trk)

	_, err := a.Analyze(context.Background(), Message{Text: "hello there", Sender: "SBIINB"})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if got := trk.EventCount(); got != 0 {
		t.Errorf("failed analysis must not record an OTP event, got %d", got)
	}
}

func TestAnalyzeCountsTowardOwnAttackWindow(t *testing.T) {
	ctx := context.Background()
	trk := tracker.New()
	for i := 0; i < tracker.DefaultMaxInWindow; i++ {
		trk.RecordOTPEvent(ctx, base.Add(time.Duration(i)*30*time.Second))
	}
	a := newTestAnalyzer(t, trk)

	// The analyzed message is the (max+1)th event in the window, so it must
	// trip the flood check itself.
	result, err := a.Analyze(ctx, Message{
		Text:       "Dear Customer, your OTP is 123456, do not share this OTP.",
		Sender:     "SBIINB",
		ReceivedAt: base.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if !result.Context.PossibleAttack {
		t.Error("expected possible-attack flag")
	}
	if result.RiskLevel != RiskSuspicious {
		t.Errorf("risk level: got %s, want SUSPICIOUS (factors: %v)", result.RiskLevel, result.Factors)
	}
}

func TestAnalyzeContextSuspicious(t *testing.T) {
	ctx := context.Background()
	trk := tracker.New()
	a := newTestAnalyzer(t, trk)

	a.RecordInteraction(ctx, base)

	result, err := a.Analyze(ctx, Message{
		Text:       "Dear Customer, your OTP is 123456, do not share this OTP.",
		Sender:     "SBIINB",
		ReceivedAt: base.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !result.Context.Suspicious {
		t.Error("expected out-of-context flag after 10 minutes idle")
	}
	if result.RiskLevel != RiskSuspicious {
		t.Errorf("risk level: got %s, want SUSPICIOUS (factors: %v)", result.RiskLevel, result.Factors)
	}
}

func TestAggregateFactorCounts(t *testing.T) {
	safeSender := sender.Verdict{Risk: sender.RiskSafe}
	suspectSender := sender.Verdict{Risk: sender.RiskSuspect}
	safeFraud := scorer.Verdict{IsFraud: false, Confidence: 0.9}
	fraud := scorer.Verdict{IsFraud: true, Confidence: 0.8}

	tests := []struct {
		name  string
		sv    sender.Verdict
		ca    content.Analysis
		fv    scorer.Verdict
		flags ContextFlags
		want  RiskLevel
	}{
		{"no factors", safeSender, content.Analysis{}, safeFraud, ContextFlags{}, RiskSafe},
		{"one factor", suspectSender, content.Analysis{}, safeFraud, ContextFlags{}, RiskSuspicious},
		{"two factors", suspectSender, content.Analysis{}, safeFraud, ContextFlags{Suspicious: true}, RiskHigh},
		{"three factors", suspectSender, content.Analysis{}, safeFraud,
			ContextFlags{Suspicious: true, PossibleAttack: true}, RiskCritical},
		{"forgery conclusive", sender.Verdict{Risk: sender.RiskForgery}, content.Analysis{},
			safeFraud, ContextFlags{}, RiskCritical},
		{"high-confidence fraud conclusive", safeSender, content.Analysis{},
			scorer.Verdict{IsFraud: true, Confidence: 0.9}, ContextFlags{}, RiskCritical},
		{"threshold fraud counts as one factor", safeSender, content.Analysis{},
			fraud, ContextFlags{}, RiskSuspicious},
		{"large outgoing payment", safeSender,
			content.Analysis{Direction: content.DirectionPaymentOut, Amount: "15000",
				AmountValue: decimal.NewFromInt(15000)},
			safeFraud, ContextFlags{}, RiskSuspicious},
		{"payment at threshold not large", safeSender,
			content.Analysis{Direction: content.DirectionPaymentOut, Amount: "10000",
				AmountValue: decimal.NewFromInt(10000)},
			safeFraud, ContextFlags{}, RiskSafe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, factors := aggregate(tt.sv, tt.ca, tt.fv, tt.flags)
			if got != tt.want {
				t.Errorf("got %s (factors %v), want %s", got, factors, tt.want)
			}
		})
	}
}

func TestNotificationTemplateSelection(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		sender string
		want   notify.Kind
	}{
		{"forged sender", "Verify at http://fake-bank.tk/login", "SBI12345", notify.KindForgery},
		{"outgoing payment", "Rs.15,000 debited for purchase, OTP 123456", "SBIINB", notify.KindPaymentAlert},
		{"suspicious sender", "Your order has shipped", "AB12CD", notify.KindSuspicious},
		{"clean message", "Dear Customer, your OTP is 123456, do not share this OTP.", "SBIINB", notify.KindStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := &captureNotifier{}
			a := newTestAnalyzer(t, nil,
				WithNotifier(notify.NewDispatcher(capture, slog.Default())))

			_, err := a.Analyze(context.Background(), Message{
				Text: tt.text, Sender: tt.sender, ReceivedAt: base,
			})
			if err != nil {
				t.Fatalf("analyze failed: %v", err)
			}
			if len(capture.sent) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(capture.sent))
			}
			if capture.sent[0].Kind != tt.want {
				t.Errorf("kind: got %s, want %s", capture.sent[0].Kind, tt.want)
			}
		})
	}
}

func TestAnalyzeUnknownSenderDefaultsToManual(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	// Empty sender means the text was pasted in, not received over SMS: the
	// header heuristics must not run.
	result, err := a.Analyze(context.Background(), Message{
		Text:       "congratulations you won, claim your prize",
		ReceivedAt: base,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Sender.Risk != sender.RiskSafe {
		t.Errorf("manual source without URLs should verify SAFE, got %s", result.Sender.Risk)
	}
}
