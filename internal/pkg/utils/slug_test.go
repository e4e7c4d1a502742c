package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Trakt Sync":            "trakt-sync",
		"  Subtitle  Fetcher  ": "subtitle-fetcher",
		"4K Remux!!":            "4k-remux",
		"Ünïcödé Name":          "n-c-d-name",
		"---":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}
