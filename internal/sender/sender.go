// Package sender classifies a claimed SMS sender identity against the DLT
// trust list and a small set of format heuristics.
//
// Two modes apply. SMS mode runs the full header checks; manual mode (text
// pasted into the app rather than received over the SMS channel) inspects
// only the URLs inside the message, because without a verified originating
// channel the header heuristics produce too many false positives.
package sender

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mbd888/smsguard/internal/trustlist"
)

// Risk is the sender-verification risk bucket. Exactly one is assigned per
// verification.
type Risk string

const (
	RiskSafe    Risk = "SAFE"
	RiskSuspect Risk = "SUSPICIOUS"
	RiskForgery Risk = "HIGH_RISK_FORGERY"
)

// Manual-analysis sentinel sender values. A message attributed to one of
// these did not arrive over the SMS channel.
const (
	SenderUnknownApp  = "UNKNOWN_APP"
	SenderManualInput = "MANUAL_INPUT"
	SenderUserInput   = "USER_INPUT"
)

// Details records which individual signals fired. Flags combine freely and
// are informational; Risk carries the decision.
type Details struct {
	MissingFromAllowlist     bool `json:"missingFromAllowlist"`
	BadURLFound              bool `json:"badUrlFound"`
	BareTenDigitNumber       bool `json:"bareTenDigitNumber"`
	UnlistedAlphanumericCode bool `json:"unlistedAlphanumericCode"`
}

// Verdict is the outcome of a single sender verification. Produced fresh per
// message, never persisted.
type Verdict struct {
	Risk    Risk    `json:"risk"`
	Details Details `json:"details"`
}

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s]+`)
	tenDigitPattern = regexp.MustCompile(`^\d{10}$`)
	shortCodeAlnum  = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
)

// Verifier checks claimed senders against the loaded trust list.
type Verifier struct {
	lists *trustlist.List
}

// NewVerifier creates a verifier over the given trust list.
func NewVerifier(lists *trustlist.List) *Verifier {
	return &Verifier{lists: lists}
}

// IsManualSource reports whether the sender value is one of the sentinels
// marking a manual/app-originated analysis request.
func IsManualSource(senderID string) bool {
	switch senderID {
	case SenderUnknownApp, SenderManualInput, SenderUserInput:
		return true
	}
	return false
}

// Verify classifies the claimed sender together with the message body.
// It never fails: malformed URLs are a positive signal, not an error.
func (v *Verifier) Verify(senderID, messageText string) Verdict {
	if IsManualSource(senderID) {
		return v.verifyManual(messageText)
	}
	return v.verifySMS(senderID, messageText)
}

// verifyManual inspects only content URLs. A shortener domain is conclusive;
// anything else off the whitelist escalates no further than SUSPICIOUS.
func (v *Verifier) verifyManual(messageText string) Verdict {
	out := Verdict{Risk: RiskSafe}
	for _, raw := range urlPattern.FindAllString(messageText, -1) {
		domain, ok := hostDomain(raw)
		if !ok {
			out.Details.BadURLFound = true
			out.Risk = RiskSuspect
			break
		}
		if v.lists.ShortenerDomain(domain) {
			out.Details.BadURLFound = true
			out.Risk = RiskForgery
			break
		}
		if !v.lists.WhitelistedDomain(domain) {
			out.Details.BadURLFound = true
			out.Risk = RiskSuspect
			break
		}
	}
	return out
}

// verifySMS runs the header-format checks, then the URL checks. URL findings
// only ever escalate the risk assigned by the header checks.
func (v *Verifier) verifySMS(senderID, messageText string) Verdict {
	out := Verdict{Risk: RiskSafe}

	switch {
	case tenDigitPattern.MatchString(senderID):
		// Peer-to-peer numbers are a known smishing vector, not proof of
		// forgery.
		out.Details.BareTenDigitNumber = true
		out.Risk = RiskSuspect

	case !v.lists.TrustedSender(senderID):
		if shortCodeAlnum.MatchString(senderID) {
			// Plausibly an unregistered but legitimate short code.
			out.Details.UnlistedAlphanumericCode = true
			out.Risk = RiskSuspect
		} else if looksLikeShortCode(senderID) {
			out.Details.MissingFromAllowlist = true
			out.Risk = RiskForgery
		} else {
			// Probably app-originated or a non-telecom channel rather than a
			// forged telecom header.
			out.Details.MissingFromAllowlist = true
			out.Risk = RiskSuspect
		}
	}

	for _, raw := range urlPattern.FindAllString(messageText, -1) {
		domain, ok := hostDomain(raw)
		if !ok {
			out.Details.BadURLFound = true
			if out.Risk != RiskForgery {
				out.Risk = RiskSuspect
			}
			break
		}
		if v.lists.ShortenerDomain(domain) {
			out.Details.BadURLFound = true
			out.Risk = RiskForgery
			break
		}
		if !v.lists.WhitelistedDomain(domain) {
			// An SMS claiming telecom trust while linking off-network is the
			// single most dangerous signal in the engine, even when the
			// header itself was allow-listed.
			out.Details.BadURLFound = true
			out.Risk = RiskForgery
			break
		}
	}

	return out
}

// looksLikeShortCode reports whether an unlisted sender is shaped like a
// telecom short code: at most 15 characters, no spaces or underscores.
func looksLikeShortCode(senderID string) bool {
	return len(senderID) <= 15 &&
		!strings.Contains(senderID, "_") &&
		!strings.Contains(senderID, " ")
}

// hostDomain extracts the registrable-ish domain from a raw URL, stripping a
// leading "www.". ok is false when the URL cannot be parsed or has no host.
func hostDomain(raw string) (string, bool) {
	// Trailing sentence punctuation is common in message bodies.
	raw = strings.TrimRight(raw, ".,;:!?)")
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	domain := strings.ToLower(u.Hostname())
	domain = strings.TrimPrefix(domain, "www.")
	return domain, true
}
