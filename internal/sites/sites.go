// Package sites manages the per-user list of blocked sites kept by the
// backend, plus the filtering and summaries the blocked-sites page shows.
package sites

import (
	"errors"
	"net"
	"net/url"
	"sort"
	"strings"
)

type Category string

const (
	Malware    Category = "Malware"
	Phishing   Category = "Phishing"
	Spam       Category = "Spam"
	Adult      Category = "Adult"
	Suspicious Category = "Suspicious"
)

// AllCategories is the filter value that matches every category.
const AllCategories = "all"

var Categories = []Category{Malware, Phishing, Spam, Adult, Suspicious}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type ThreatLevel string

const (
	Critical ThreatLevel = "Critical"
	High     ThreatLevel = "High"
	Medium   ThreatLevel = "Medium"
	Low      ThreatLevel = "Low"
)

type Site struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Category    Category    `json:"category"`
	BlockedDate string      `json:"blockedDate"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
	AutoBlocked bool        `json:"autoBlocked"`
	Description string      `json:"description,omitempty"`
}

type AddInput struct {
	URL         string   `json:"url" binding:"required,max=2048"`
	Category    Category `json:"category" binding:"required,oneof=Malware Phishing Spam Adult Suspicious"`
	Description string   `json:"description,omitempty" binding:"max=500"`
}

var ErrInvalidURL = errors.New("invalid site url")

// NormalizeURL reduces user input such as "https://Evil.example.com/login"
// to the host the extension blocks on: "evil.example.com".
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	host = strings.TrimPrefix(host, "www.")
	if host == "" || strings.ContainsAny(host, " _") {
		return "", ErrInvalidURL
	}
	if net.ParseIP(host) == nil && !strings.Contains(host, ".") {
		return "", ErrInvalidURL
	}
	return host, nil
}

// Filter keeps sites whose URL contains search (case-insensitive) and whose
// category equals category, or any category for "all" or "".
func Filter(list []Site, search, category string) []Site {
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]Site, 0, len(list))
	for _, s := range list {
		if search != "" && !strings.Contains(strings.ToLower(s.URL), search) {
			continue
		}
		if category != "" && category != AllCategories && string(s.Category) != category {
			continue
		}
		out = append(out, s)
	}
	return out
}

type Summary struct {
	Total       int              `json:"total"`
	AutoBlocked int              `json:"autoBlocked"`
	Manual      int              `json:"manual"`
	Critical    int              `json:"critical"`
	ByCategory  map[Category]int `json:"byCategory"`
	Recent      []Site           `json:"recent"`
}

const recentLimit = 5

func Summarize(list []Site) Summary {
	sum := Summary{
		Total:      len(list),
		ByCategory: make(map[Category]int, len(Categories)),
	}
	for _, c := range Categories {
		sum.ByCategory[c] = 0
	}

	for _, s := range list {
		if s.AutoBlocked {
			sum.AutoBlocked++
		} else {
			sum.Manual++
		}
		if s.ThreatLevel == Critical {
			sum.Critical++
		}
		sum.ByCategory[s.Category]++
	}

	recent := append([]Site(nil), list...)
	// Dates are ISO strings, so lexical order is chronological.
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].BlockedDate > recent[j].BlockedDate
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	sum.Recent = recent

	return sum
}
