package scorer

import (
	"context"
	"errors"
	"math"
	"testing"
)

func loadedEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return e
}

func TestScoreBeforeLoad(t *testing.T) {
	e := NewEngine()
	_, err := e.Score("hello", "")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestLoadIdempotent(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 3; i++ {
		if err := e.Load(context.Background()); err != nil {
			t.Fatalf("load %d failed: %v", i, err)
		}
	}
	if !e.Ready() {
		t.Fatal("engine not ready after load")
	}
}

func TestLoadRetryableAfterContextError(t *testing.T) {
	e := NewEngine()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Load(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.Ready() {
		t.Fatal("engine must not be ready after a failed load")
	}

	// A context error must not stick: a retry with a live context loads.
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("retry after cancelled load failed: %v", err)
	}
	if !e.Ready() {
		t.Fatal("engine not ready after successful retry")
	}
}

func TestConversationalShortCircuit(t *testing.T) {
	e := loadedEngine(t)

	v, err := e.Score("ok thanks, see you at 6", "")
	if err != nil {
		t.Fatal(err)
	}
	if v.IsFraud {
		t.Errorf("conversational message flagged as fraud: %+v", v)
	}
	if v.Score != -1 {
		t.Errorf("expected score -1 for conversational message, got %f", v.Score)
	}
	if v.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", v.Confidence)
	}
}

func TestLegitimateBankingReduction(t *testing.T) {
	e := loadedEngine(t)

	// Multiple legitimate patterns and no critical phrases should bottom out
	// at the safe end of the scale.
	v, err := e.Score("Dear Customer, Rs.5000 credited to your account ending 1234. Available balance: Rs.12,000.", "")
	if err != nil {
		t.Fatal(err)
	}
	if v.IsFraud {
		t.Errorf("legitimate bank message flagged as fraud: %+v", v)
	}
	if v.Score != -1 {
		t.Errorf("expected score -1, got %f", v.Score)
	}
	if v.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", v.Confidence)
	}
}

func TestMultipleCriticalsWithShortenedURL(t *testing.T) {
	e := loadedEngine(t)

	v, err := e.Score("URGENT ACTION REQUIRED: account suspended. verify immediately at bit.ly/a1b2 or face legal action", "")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsFraud {
		t.Errorf("expected fraud verdict, got %+v", v)
	}
	if v.Score != 1 {
		t.Errorf("expected score clamped to 1, got %f", v.Score)
	}
	if v.Confidence != 1 {
		t.Errorf("fraud confidence should equal the adjusted score, got %f", v.Confidence)
	}
}

func TestTrustedSenderHintSuppressesFraud(t *testing.T) {
	e := loadedEngine(t)
	msg := "Your account suspended, verify immediately"

	without, err := e.Score(msg, "")
	if err != nil {
		t.Fatal(err)
	}
	if !without.IsFraud {
		t.Errorf("expected fraud without sender hint, got %+v", without)
	}

	with, err := e.Score(msg, "SBIINB")
	if err != nil {
		t.Fatal(err)
	}
	if with.IsFraud {
		t.Errorf("trusted sender hint should suppress fraud verdict, got %+v", with)
	}
	if with.Confidence != 0.9 {
		t.Errorf("expected strongly safe confidence 0.9, got %f", with.Confidence)
	}
}

func TestTrustedSenderHintPrefixMatch(t *testing.T) {
	if !trustedSenderHint("sbiinb-txn") {
		t.Error("prefix match should be case-insensitive")
	}
	if trustedSenderHint("NOTABANK") {
		t.Error("unknown code should not match")
	}
	if trustedSenderHint("") {
		t.Error("empty hint should not match")
	}
}

func TestGovernmentScamEscalation(t *testing.T) {
	e := loadedEngine(t)

	// A lone government-impersonation phrase escalates but stays below the
	// fraud threshold; confidence reflects only weak certainty of safety.
	v, err := e.Score("irs notice: contact us to resolve your case", "")
	if err != nil {
		t.Fatal(err)
	}
	if v.IsFraud {
		t.Errorf("single indicator should not cross the threshold: %+v", v)
	}
	if math.Abs(v.Score-0.7) > 1e-9 {
		t.Errorf("expected adjusted score 0.7, got %f", v.Score)
	}
	if v.Confidence != 0.3 {
		t.Errorf("expected weak safe confidence 0.3, got %f", v.Confidence)
	}
}

func TestEmergencyScamEscalation(t *testing.T) {
	e := loadedEngine(t)

	v, err := e.Score("Your son arrested. Bail money required immediately. Pay $5000 now via western union", "")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsFraud {
		t.Errorf("expected fraud verdict for arrest/bail extortion, got %+v", v)
	}
	if v.Score != 1 {
		t.Errorf("expected score clamped to 1, got %f", v.Score)
	}
}

func TestCriticalPhraseHalvedUnderLegitimateContext(t *testing.T) {
	e := loadedEngine(t)

	// Same critical phrase, with and without surrounding legitimate banking
	// language. The legit variant must score strictly lower.
	plain, err := e.Score("verify immediately to continue", "")
	if err != nil {
		t.Fatal(err)
	}
	legit, err := e.Score("Dear Customer, your OTP is 482913, do not share this code. verify immediately to continue", "")
	if err != nil {
		t.Fatal(err)
	}
	if legit.Score >= plain.Score {
		t.Errorf("legit context should reduce score: plain=%f legit=%f", plain.Score, legit.Score)
	}
}

func TestScoreDeterministicAndBounded(t *testing.T) {
	e := loadedEngine(t)
	messages := []string{
		"",
		"hi",
		"URGENT!!! act now or lose everything!!!! pay $9999 now",
		"Dear Customer, transaction ID 99881 has been processed. Thank you for using our service.",
		"congratulations you won lottery winner claim your prize at tinyurl.com/zzz",
		"Your OTP is 123456 valid for 10 minutes. Do not share this OTP.",
	}
	for _, msg := range messages {
		first, err := e.Score(msg, "")
		if err != nil {
			t.Fatalf("score failed for %q: %v", msg, err)
		}
		second, err := e.Score(msg, "")
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Errorf("non-deterministic verdict for %q: %+v vs %+v", msg, first, second)
		}
		if first.Score < -1 || first.Score > 1 {
			t.Errorf("score out of bounds for %q: %f", msg, first.Score)
		}
		if first.Confidence < 0 || first.Confidence > 1 {
			t.Errorf("confidence out of bounds for %q: %f", msg, first.Confidence)
		}
	}
}

func TestStylisticHeuristicsCapped(t *testing.T) {
	// All four stylistic signals firing at once still stay within the cap.
	msg := "SEND MONEY NOW URGENT!!!! $100 $200 $300 PAYMENT IMMEDIATE TRANSFER REQUIRED RIGHT NOW DO IT TODAY"
	got := stylisticScore(msg, false)
	if got > heuristicCap {
		t.Errorf("stylistic score %f exceeds cap %f", got, heuristicCap)
	}
	if got <= 0 {
		t.Errorf("expected positive stylistic score, got %f", got)
	}
}

func TestWithThreshold(t *testing.T) {
	e := loadedEngine(t).WithThreshold(0.2)

	v, err := e.Score("account suspended, verify immediately", "")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsFraud {
		t.Errorf("lowered threshold should flag this message: %+v", v)
	}
}
