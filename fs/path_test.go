package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPathIgnoresLeadingTrailingAndRepeatedSlashes(t *testing.T) {
	cases := map[string][]string{
		"/a/b/c": {"a", "b", "c"},
		"a/b/c":  {"a", "b", "c"},
		"a//b/c/": {"a", "b", "c"},
		"/":       {},
		"":        {},
	}
	for in, want := range cases {
		assert.Equal(t, want, splitPath(in), "splitPath(%q)", in)
	}
}
