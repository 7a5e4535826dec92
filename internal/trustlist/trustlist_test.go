package trustlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultListLoads(t *testing.T) {
	l := Default()
	headers, domains, shorteners := l.Counts()
	if headers == 0 || domains == 0 || shorteners == 0 {
		t.Fatalf("embedded list incomplete: %d headers, %d domains, %d shorteners",
			headers, domains, shorteners)
	}
}

func TestLookupsCaseNormalized(t *testing.T) {
	l := Default()

	if !l.TrustedSender("sbiinb") {
		t.Error("sender lookup should be case-insensitive")
	}
	if !l.WhitelistedDomain("SBI.CO.IN") {
		t.Error("domain lookup should be case-insensitive")
	}
	if !l.ShortenerDomain("Bit.Ly") {
		t.Error("shortener lookup should be case-insensitive")
	}
}

func TestUnknownEntries(t *testing.T) {
	l := Default()

	if l.TrustedSender("TOTALLYFAKE") {
		t.Error("unknown sender should not be trusted")
	}
	if l.WhitelistedDomain("evil.example") {
		t.Error("unknown domain should not be whitelisted")
	}
	if l.ShortenerDomain("example.com") {
		t.Error("ordinary domain should not be a shortener")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	data := `{
		"dlt_headers": [" testbk "],
		"whitelisted_domains": ["Example.COM"],
		"url_shorteners": ["sh.rt"]
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !l.TrustedSender("TESTBK") {
		t.Error("entries should be trimmed and upper-cased")
	}
	if !l.WhitelistedDomain("example.com") {
		t.Error("domains should be lower-cased")
	}
	if !l.ShortenerDomain("sh.rt") {
		t.Error("shortener entry missing")
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"dlt_headers": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(empty); err == nil {
		t.Error("expected error when no headers are present")
	}
}
