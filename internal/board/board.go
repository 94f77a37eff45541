// Package board recognizes the applicant-tracking hosts with a dedicated parser.
package board

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind identifies which parser handles a URL.
type Kind int

const (
	// Generic is any page without a known board template.
	Generic Kind = iota
	// Greenhouse is https://boards.greenhouse.io/<slug>/...
	Greenhouse
	// Lever is https://jobs.lever.co/<slug>/...
	Lever
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Greenhouse:
		return "greenhouse"
	case Lever:
		return "lever"
	default:
		return "generic"
	}
}

var (
	greenhouseRE = regexp.MustCompile(`(?i)^https?://boards\.greenhouse\.io/([^/?#]+)/?`)
	leverRE      = regexp.MustCompile(`(?i)^https?://jobs\.lever\.co/([^/?#]+)/?`)
)

// Classify reports the board kind of rawURL and its company slug.
// Greenhouse is checked before Lever; otherwise the kind is Generic with an empty slug.
func Classify(rawURL string) (Kind, string) {
	if m := greenhouseRE.FindStringSubmatch(rawURL); m != nil {
		return Greenhouse, m[1]
	}
	if m := leverRE.FindStringSubmatch(rawURL); m != nil {
		return Lever, m[1]
	}
	return Generic, ""
}

// CompanyFromURL derives a company name: the board slug when the URL is
// templated, otherwise the second-to-last label of the host name, otherwise "".
func CompanyFromURL(rawURL string) string {
	if _, slug := Classify(rawURL); slug != "" {
		return slug
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) >= 2 {
		return labels[len(labels)-2]
	}
	return ""
}
