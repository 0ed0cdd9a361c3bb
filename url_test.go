package scout

import (
	"testing"
)

func TestURLHash(t *testing.T) {
	expected := "40a87eba9af1b0e223ea3d896b87092d95d22b64c52ad4053ce7ac63fa437fd1" +
		"f76e51c9e4e0b110e9f7ba75e78d20f45a295fd0e3cb2ae3472dd8b5b1bd9e66"
	got := URLHash("http://example.com/")
	if got != expected {
		t.Errorf("URLHash mismatch, expected %v got %v", expected, got)
	}

	if URLHash("http://example.com/") != URLHash("http://example.com/") {
		t.Error("URLHash is not deterministic")
	}
	if URLHash("http://example.com/") == URLHash("http://example.com") {
		t.Error("Distinct urls must not collide")
	}
}

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		tag       string
		input     string
		name      string
		domainURL string
	}{
		{
			tag:       "Plain",
			input:     "http://example.com/some/page",
			name:      "example.com",
			domainURL: "http://example.com",
		},
		{
			tag:       "Https",
			input:     "https://example.com/page",
			name:      "example.com",
			domainURL: "https://example.com",
		},
		{
			tag:       "NoScheme",
			input:     "example.com/page",
			name:      "example.com",
			domainURL: "http://example.com",
		},
		{
			tag:       "Subdomain",
			input:     "http://www.example.com/page",
			name:      "www.example.com",
			domainURL: "http://www.example.com",
		},
		{
			tag:       "WithPort",
			input:     "http://example.com:8080/page",
			name:      "example.com:8080",
			domainURL: "http://example.com:8080",
		},
		{
			tag:   "Garbage",
			input: "not a url ::",
		},
		{
			tag:   "Empty",
			input: "",
		},
	}

	for _, tst := range tests {
		name, domainURL := DomainFromURL(tst.input)
		if name != tst.name {
			t.Errorf("For tag %q domain name mismatch got %q, expected %q",
				tst.tag, name, tst.name)
		}
		if domainURL != tst.domainURL {
			t.Errorf("For tag %q domain url mismatch got %q, expected %q",
				tst.tag, domainURL, tst.domainURL)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		tag    string
		input  string
		expect string
	}{
		{
			tag:    "UpCase",
			input:  "HTTP://Example.COM/Page",
			expect: "http://example.com/Page",
		},
		{
			tag:    "Fragment",
			input:  "http://example.com/page#section",
			expect: "http://example.com/page",
		},
		{
			tag:    "DefaultPort",
			input:  "http://example.com:80/page",
			expect: "http://example.com/page",
		},
	}

	for _, tst := range tests {
		got, err := NormalizeURL(tst.input)
		if err != nil {
			t.Fatalf("For tag %q NormalizeURL failed: %v", tst.tag, err)
		}
		if got != tst.expect {
			t.Errorf("For tag %q link mismatch got %q, expected %q",
				tst.tag, got, tst.expect)
		}
	}
}

func TestDomainNameVariants(t *testing.T) {
	got := DomainNameVariants("example.com")
	if len(got) != 2 || got[0] != "example.com" || got[1] != "example.com/" {
		t.Errorf("Unexpected variants for bare name: %v", got)
	}

	got = DomainNameVariants("example.com/")
	if len(got) != 2 || got[0] != "example.com/" || got[1] != "example.com" {
		t.Errorf("Unexpected variants for slashed name: %v", got)
	}
}
