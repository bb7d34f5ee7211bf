package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  proplayer1\n", expect: "proplayer1"},
		{in: "\n\t 1,234 \n", expect: "1,234"},
		{in: "FA   Rating", expect: "FA Rating"},
		{in: "zero​width", expect: "zerowidth"},
		{in: "", expect: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, CleanText(test.in), "in=%q", test.in)
	}
}
