// Package insight is the SMS/OTP fraud-risk pipeline. It combines sender
// verification, content extraction, heuristic fraud scoring, and temporal
// context into a single ordinal risk verdict with a recommendation.
//
// The pipeline exposes one operation, Analyzer.Analyze. Each analysis is a
// pure function of the message plus current tracker state; risk only ever
// escalates when signals combine, it never averages down.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbd888/smsguard/internal/content"
	"github.com/mbd888/smsguard/internal/scorer"
	"github.com/mbd888/smsguard/internal/sender"
)

// Message is the immutable input to one analysis pass.
type Message struct {
	Text string `json:"text"`
	// Sender is the claimed sender identifier; one of the sender package
	// sentinels marks a manual analysis request.
	Sender     string    `json:"sender"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// RiskLevel is the ordinal severity of one analysis. Levels are ordered;
// aggregation takes the supremum of component signals.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskSuspicious
	RiskHigh
	RiskCritical
)

var riskNames = map[RiskLevel]string{
	RiskSafe:       "SAFE",
	RiskSuspicious: "SUSPICIOUS",
	RiskHigh:       "HIGH_RISK",
	RiskCritical:   "CRITICAL",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

// MarshalJSON encodes the level by name.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a level name.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for level, name := range riskNames {
		if name == s {
			*r = level
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", s)
}

// ContextFlags carries the tracker signals that fed one analysis.
type ContextFlags struct {
	Suspicious     bool `json:"suspicious"`
	PossibleAttack bool `json:"possibleAttack"`
}

// Result is the complete outcome of one analysis.
type Result struct {
	ID             string           `json:"id"`
	RiskLevel      RiskLevel        `json:"riskLevel"`
	Sender         sender.Verdict   `json:"senderVerdict"`
	Content        content.Analysis `json:"contentAnalysis"`
	Fraud          scorer.Verdict   `json:"fraudVerdict"`
	Context        ContextFlags     `json:"contextFlags"`
	Factors        []string         `json:"factors,omitempty"`
	Recommendation string           `json:"recommendation"`
	AnalyzedAt     time.Time        `json:"analyzedAt"`
}

// Pipeline errors.
var (
	// ErrEmptyMessage rejects empty or whitespace-only text at the boundary,
	// before anything is analyzed or recorded.
	ErrEmptyMessage = errors.New("insight: message text is empty")

	// ErrAnalysisFailed surfaces an unexpected failure inside a sub-step. A
	// failed analysis blocks; it never passes through as clean.
	ErrAnalysisFailed = errors.New("insight: analysis failed")
)

// Store persists analysis results for an audit trail.
type Store interface {
	Record(ctx context.Context, result *Result) error
	ListRecent(ctx context.Context, limit int) ([]*Result, error)
}
