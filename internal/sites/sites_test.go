package sites

import (
	"errors"
	"testing"
)

func fixture() []Site {
	return []Site{
		{ID: "1", URL: "malicious-site.com", Category: Malware, BlockedDate: "2024-01-15", ThreatLevel: Critical, AutoBlocked: true},
		{ID: "2", URL: "phishing-bank.net", Category: Phishing, BlockedDate: "2024-01-14", ThreatLevel: High, AutoBlocked: true},
		{ID: "3", URL: "spam-ads.org", Category: Spam, BlockedDate: "2024-01-13", ThreatLevel: Medium, AutoBlocked: true},
		{ID: "4", URL: "inappropriate-content.xxx", Category: Adult, BlockedDate: "2024-01-12", ThreatLevel: Low},
		{ID: "5", URL: "suspicious-download.com", Category: Suspicious, BlockedDate: "2024-01-11", ThreatLevel: Medium, AutoBlocked: true},
		{ID: "6", URL: "Another-Malware.COM", Category: Malware, BlockedDate: "2024-01-16", ThreatLevel: Critical, AutoBlocked: true},
	}
}

func ids(list []Site) string {
	out := ""
	for _, s := range list {
		out += s.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		category string
		want     string
	}{
		{"everything", "", "all", "123456"},
		{"empty category means all", "", "", "123456"},
		{"search is case insensitive", "MALWARE", "all", "6"},
		{"search substring", ".com", "all", "156"},
		{"category exact", "", "Malware", "16"},
		{"category is case sensitive", "", "malware", ""},
		{"search and category", "site", "Malware", "1"},
		{"no match", "nothing", "all", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Filter(fixture(), tt.search, tt.category)); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(fixture())

	if sum.Total != 6 || sum.AutoBlocked != 5 || sum.Manual != 1 || sum.Critical != 2 {
		t.Fatalf("unexpected counts %+v", sum)
	}
	if sum.ByCategory[Malware] != 2 || sum.ByCategory[Adult] != 1 {
		t.Fatalf("unexpected categories %+v", sum.ByCategory)
	}
	if got := ids(sum.Recent); got != "61234" {
		t.Fatalf("recent = %q", got)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || len(empty.ByCategory) != len(Categories) || len(empty.Recent) != 0 {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "malicious-site.com", want: "malicious-site.com"},
		{in: "  https://Evil.Example.com/login?x=1 ", want: "evil.example.com"},
		{in: "http://www.spam-ads.org:8080/", want: "spam-ads.org"},
		{in: "example.com.", want: "example.com"},
		{in: "10.0.0.1", want: "10.0.0.1"},
		{in: "", wantErr: true},
		{in: "localhost", wantErr: true},
		{in: "https://", wantErr: true},
		{in: "bad host.com", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("NormalizeURL(%q) = %q, %v; want ErrInvalidURL", tt.in, got, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("NormalizeURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	if !Phishing.Valid() || Category("Crypto").Valid() || Category("all").Valid() {
		t.Fatalf("category validation is off")
	}
}
