// Package scorer implements the heuristic fraud scorer: a deterministic
// weighted-evidence accumulator over the message text, not a trained model.
//
// Evidence is collected in a fixed order (trusted-sender reduction,
// conversational short-circuit, legitimate-banking reductions, then the risk
// vocabularies and stylistic heuristics) and folded into an adjusted score
// on [-1, 1]. The step ordering is load-bearing: reordering changes outcomes
// on boundary cases.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

const (
	engineVersion = "rules-v2.2"

	// fraudThreshold is deliberately high on the [-1, 1] scale: a missed
	// fraud costs less trust than a blocked legitimate bank message.
	fraudThreshold = 0.8

	// trustedSenderReduction is applied before any other evaluation when a
	// trusted sender hint is present. It carries most of the false-positive
	// suppression.
	trustedSenderReduction = 1.0

	conversationalMaxLen = 50

	heuristicCap = 0.3
)

// Verdict is the scorer's output. Confidence is always certainty in the
// stated verdict: a safe verdict with confidence 0.9 means 90% sure it is
// safe, not 90% sure of fraud.
type Verdict struct {
	IsFraud    bool    `json:"isFraud"`
	Confidence float64 `json:"confidence"`
	// Score is the final adjusted evidence score on [-1, 1].
	Score   float64 `json:"score"`
	Details string  `json:"details"`
}

// ErrNotReady is returned when Score is called before Load has completed.
var ErrNotReady = errors.New("scorer: rule tables not loaded")

// Engine scores message text against the rule tables. Create with NewEngine,
// call Load once before scoring. Safe for concurrent use after Load.
type Engine struct {
	loadMu  sync.Mutex
	loadErr error
	loaded  bool
	ready   atomic.Bool

	threshold float64
}

// NewEngine creates a scorer engine with the default fraud threshold.
func NewEngine() *Engine {
	return &Engine{threshold: fraudThreshold}
}

// WithThreshold overrides the fraud threshold. For tests.
func (e *Engine) WithThreshold(t float64) *Engine {
	e.threshold = t
	return e
}

// Load initializes the engine. It is idempotent: repeated calls after a
// completed load are no-ops. A context error does not count as a completed
// load, so callers may retry Load with a live context. Callers must not
// invoke Score before Load returns nil.
func (e *Engine) Load(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if e.loaded {
		return e.loadErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// The rule tables are compiled at package init; loading validates
	// they are populated before the engine accepts traffic.
	if len(criticalPhrases) == 0 || len(legitimateBanking) == 0 {
		e.loadErr = errors.New("scorer: rule tables empty")
	} else {
		e.ready.Store(true)
	}
	e.loaded = true
	return e.loadErr
}

// Ready reports whether Load has completed successfully.
func (e *Engine) Ready() bool { return e.ready.Load() }

// Version returns the rule-table version string.
func (e *Engine) Version() string { return engineVersion }

// Score evaluates the message text, optionally with a pre-extracted sender
// hint. It refuses to run before Load rather than guessing.
func (e *Engine) Score(messageText, senderHint string) (Verdict, error) {
	if !e.ready.Load() {
		return Verdict{}, ErrNotReady
	}
	ev := e.collect(messageText, senderHint)
	return e.finalize(ev), nil
}

// evidence accumulates the flags and running score for one message.
type evidence struct {
	critical       []string
	suspicious     []string
	legitimate     int
	conversational bool
	trustedSender  bool
	urls           int
	score          float64
}

func (ev *evidence) hasLegitimate() bool {
	return ev.legitimate > 0 || ev.conversational || ev.trustedSender
}

// collect runs evaluation steps 1-5 in their fixed order.
func (e *Engine) collect(messageText, senderHint string) evidence {
	var ev evidence
	lower := strings.ToLower(strings.TrimSpace(messageText))

	// Step 1: trusted-sender reduction, before everything else.
	if senderHint != "" && trustedSenderHint(senderHint) {
		ev.trustedSender = true
		ev.score -= trustedSenderReduction
	}

	// Step 2: short conversational messages short-circuit to strongly safe.
	// The assignment deliberately overwrites the step-1 reduction.
	if utf8.RuneCountInString(lower) < conversationalMaxLen && isConversational(lower) {
		ev.conversational = true
		ev.score = -0.5
		return ev
	}

	// Step 3: legitimate banking patterns.
	for _, p := range legitimateBanking {
		if p.MatchString(messageText) {
			ev.legitimate++
		}
	}
	switch {
	case ev.legitimate >= 2:
		ev.score -= 0.8
	case ev.legitimate == 1:
		ev.score -= 0.4
	}

	// Legitimate context halves or suppresses the risk increments below.
	legitCtx := ev.hasLegitimate()

	// Step 4i: exact critical fraud phrases.
	for _, phrase := range criticalPhrases {
		if strings.Contains(lower, phrase) {
			ev.critical = append(ev.critical, phrase)
			if legitCtx {
				ev.score += 0.15
			} else {
				ev.score += 0.3
			}
		}
	}

	// Step 4ii: compound suspicious patterns, suppressed entirely when
	// legitimate context is present.
	if !legitCtx {
		for _, p := range compoundSuspicious {
			if p.MatchString(messageText) {
				ev.suspicious = append(ev.suspicious, p.String())
				ev.score += 0.15
			}
		}
	}

	// Step 4iii: shortened/suspicious link domains.
	for _, p := range shortenedURLs {
		if p.MatchString(messageText) {
			ev.urls++
			if legitCtx {
				ev.score += 0.1
			} else {
				ev.score += 0.25
			}
		}
	}

	// Step 4iv: large amounts demanded with urgency.
	for _, p := range largeAmountUrgency {
		if p.MatchString(messageText) {
			ev.suspicious = append(ev.suspicious, "large_amount_request")
			ev.score += 0.2
		}
	}

	// Step 5: bounded stylistic heuristics.
	ev.score += stylisticScore(messageText, legitCtx)

	return ev
}

// stylisticScore applies the conservative stylistic heuristics: each a small
// fixed increment, reduced 70% under legitimate context, capped at
// heuristicCap.
func stylisticScore(messageText string, legitCtx bool) float64 {
	var score float64
	length := utf8.RuneCountInString(messageText)

	if length > 500 && urgencyWords.MatchString(messageText) {
		score += 0.1
	}

	if length > 50 {
		upper := 0
		for _, r := range messageText {
			if r >= 'A' && r <= 'Z' {
				upper++
			}
		}
		if float64(upper)/float64(length) > 0.5 {
			score += 0.1
		}
	}

	if strings.Count(messageText, "!") > 3 {
		score += 0.1
	}

	if len(currencySymbols.FindAllString(messageText, -1)) > 2 &&
		pressureWords.MatchString(messageText) {
		score += 0.15
	}

	if legitCtx {
		score *= 0.3
	}
	return min(score, heuristicCap)
}

// finalize runs the escalation pass (steps 6-8) and maps the adjusted score
// to a verdict with correctly oriented confidence.
func (e *Engine) finalize(ev evidence) Verdict {
	adjusted := clamp(ev.score, -1, 1)

	multiCritical := len(ev.critical) >= 2
	hasURLs := ev.urls > 0
	hasSuspicious := len(ev.suspicious) > 0
	hasLegit := ev.hasLegitimate()

	// Legitimate indicators with no critical phrases pull strongly toward
	// safe.
	if hasLegit && len(ev.critical) == 0 {
		adjusted = max(adjusted-0.6, -1)
	}
	if ev.conversational {
		adjusted = -1
	}

	// Multiple critical phrases escalate strongly only with corroboration;
	// a single one barely moves the needle.
	switch {
	case multiCritical && (hasURLs || hasSuspicious):
		adjusted = min(adjusted+0.5, 1)
	case multiCritical:
		adjusted = min(adjusted+0.3, 1)
	case len(ev.critical) == 1:
		adjusted = min(adjusted+0.1, 1)
	}

	if hasURLs && hasSuspicious && len(ev.critical) > 0 {
		adjusted = min(adjusted+0.3, 1)
	} else if hasURLs {
		adjusted = min(adjusted+0.1, 1)
	}

	// Government-impersonation and arrest/bail phrasing are distinct
	// high-confidence scam archetypes: they escalate on their own.
	if anyIn(ev.critical, governmentScamPhrases) {
		adjusted = min(adjusted+0.3, 1)
	}
	if anyIn(ev.critical, emergencyScamPhrases) {
		adjusted = min(adjusted+0.4, 1)
	}

	isFraud := adjusted > e.threshold

	var confidence float64
	if isFraud {
		confidence = clamp(adjusted, 0, 1)
	} else {
		// Safe verdicts report certainty of safety, not residual fraud
		// likelihood.
		switch {
		case adjusted <= -0.3:
			confidence = 0.9
		case adjusted <= 0:
			confidence = 0.7
		default:
			confidence = max(0.6-adjusted, 0.3)
		}
	}

	return Verdict{
		IsFraud:    isFraud,
		Confidence: confidence,
		Score:      adjusted,
		Details:    e.explain(ev, isFraud, confidence),
	}
}

// explain builds the human-readable detail string for the verdict.
func (e *Engine) explain(ev evidence, isFraud bool, confidence float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "heuristic analysis (%s): ", engineVersion)

	switch {
	case ev.conversational:
		b.WriteString("normal conversational message. ")
	case ev.hasLegitimate():
		b.WriteString("legitimate banking patterns found. ")
	}
	if len(ev.critical) > 0 {
		fmt.Fprintf(&b, "%d critical indicator(s). ", len(ev.critical))
	}
	if ev.urls > 0 {
		b.WriteString("suspicious URLs detected. ")
	}

	verdict := "SAFE"
	if isFraud {
		verdict = "FRAUD"
	}
	fmt.Fprintf(&b, "%s with %.1f%% confidence", verdict, confidence*100)
	return b.String()
}

// trustedSenderHint reports whether the hint matches the fixed allow-list of
// bank/merchant codes, by equality or prefix.
func trustedSenderHint(hint string) bool {
	upper := strings.ToUpper(strings.TrimSpace(hint))
	for _, code := range trustedSenderCodes {
		if upper == code || strings.HasPrefix(upper, code) {
			return true
		}
	}
	return false
}

// isConversational reports whether the lowercased text is built around the
// safe conversational vocabulary: an exact word, or a word at a boundary.
func isConversational(lower string) bool {
	for _, w := range conversationalWords {
		if lower == w ||
			strings.HasPrefix(lower, w+" ") ||
			strings.HasSuffix(lower, " "+w) ||
			strings.Contains(lower, " "+w+" ") {
			return true
		}
	}
	return false
}

func anyIn(flags []string, set map[string]struct{}) bool {
	for _, f := range flags {
		if _, ok := set[f]; ok {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
