// Package trustlist loads the sender trust data used by the verification
// pipeline: registered DLT sender headers, whitelisted link domains, and
// known URL-shortener domains. The lists are loaded once at startup and are
// read-only afterwards.
package trustlist

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed trusted_senders.json
var defaultData []byte

// fileData mirrors the JSON layout of the trust-list asset.
type fileData struct {
	DLTHeaders         []string `json:"dlt_headers"`
	WhitelistedDomains []string `json:"whitelisted_domains"`
	URLShorteners      []string `json:"url_shorteners"`
}

// List holds the three trust sets. Lookups are case-normalized: sender codes
// upper-cased, domains lower-cased.
type List struct {
	headers    map[string]struct{}
	domains    map[string]struct{}
	shorteners map[string]struct{}
}

// Default returns the embedded trust list.
func Default() *List {
	l, err := parse(defaultData)
	if err != nil {
		// The embedded asset is validated by tests; a parse failure here is a
		// build defect, not a runtime condition.
		panic("trustlist: embedded asset invalid: " + err.Error())
	}
	return l
}

// LoadFile reads a trust list from a JSON file on disk.
func LoadFile(path string) (*List, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust list: %w", err)
	}
	l, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse trust list %s: %w", path, err)
	}
	return l, nil
}

func parse(raw []byte) (*List, error) {
	var fd fileData
	if err := json.Unmarshal(raw, &fd); err != nil {
		return nil, err
	}
	if len(fd.DLTHeaders) == 0 {
		return nil, fmt.Errorf("no dlt_headers present")
	}

	l := &List{
		headers:    make(map[string]struct{}, len(fd.DLTHeaders)),
		domains:    make(map[string]struct{}, len(fd.WhitelistedDomains)),
		shorteners: make(map[string]struct{}, len(fd.URLShorteners)),
	}
	for _, h := range fd.DLTHeaders {
		l.headers[strings.ToUpper(strings.TrimSpace(h))] = struct{}{}
	}
	for _, d := range fd.WhitelistedDomains {
		l.domains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	for _, s := range fd.URLShorteners {
		l.shorteners[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return l, nil
}

// TrustedSender reports whether the sender code is a registered DLT header.
func (l *List) TrustedSender(code string) bool {
	_, ok := l.headers[strings.ToUpper(code)]
	return ok
}

// WhitelistedDomain reports whether the domain is on the trusted-link list.
func (l *List) WhitelistedDomain(domain string) bool {
	_, ok := l.domains[strings.ToLower(domain)]
	return ok
}

// ShortenerDomain reports whether the domain is a known URL shortener.
func (l *List) ShortenerDomain(domain string) bool {
	_, ok := l.shorteners[strings.ToLower(domain)]
	return ok
}

// Counts returns the sizes of the three sets, for startup logging.
func (l *List) Counts() (headers, domains, shorteners int) {
	return len(l.headers), len(l.domains), len(l.shorteners)
}
