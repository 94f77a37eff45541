package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		kind Kind
		slug string
	}{
		{"https://boards.greenhouse.io/acme-co/", Greenhouse, "acme-co"},
		{"https://boards.greenhouse.io/acme/jobs/123", Greenhouse, "acme"},
		{"HTTP://BOARDS.GREENHOUSE.IO/Acme?gh_src=x", Greenhouse, "Acme"},
		{"https://jobs.lever.co/globex", Lever, "globex"},
		{"https://jobs.lever.co/globex/5f3c-uuid", Lever, "globex"},
		{"https://jobs.lever.co/globex#top", Lever, "globex"},
		{"https://careers.example.com/sales", Generic, ""},
		{"https://boards.greenhouse.io/", Generic, ""},
		{"ftp://jobs.lever.co/globex", Generic, ""},
		{"not a url", Generic, ""},
	}

	for _, tc := range cases {
		kind, slug := Classify(tc.url)
		require.Equal(t, tc.kind, kind, tc.url)
		require.Equal(t, tc.slug, slug, tc.url)
	}
}

func TestCompanyFromURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://boards.greenhouse.io/acme-co/":   "acme-co",
		"https://jobs.lever.co/globex/abc":        "globex",
		"https://careers.initech.com/jobs/1":      "initech",
		"https://initech.com:8443/jobs":           "initech",
		"http://localhost:8080/jobs":              "",
		"https://apply.workable.com/umbrella/j/1": "workable",
		"%%%": "",
	}
	for in, want := range cases {
		require.Equal(t, want, CompanyFromURL(in), in)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "greenhouse", Greenhouse.String())
	require.Equal(t, "lever", Lever.String())
	require.Equal(t, "generic", Generic.String())
}
