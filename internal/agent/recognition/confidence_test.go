package recognition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidence(t *testing.T) {
	letter := "Dear Friend,\nToday We Went To The Market.\nIt Was Lovely and sunny all day long."

	cases := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0.5},
		{"short", "short", 0.5},
		{"error marker", "[Error processing page 1: timeout]", 0},
		{"plausible letter", letter, 0.95},
		{"unclear marker", letter + " [unclear]", 0.75},
		{"unclear marker any case", letter + " [UNCLEAR]", 0.75},
		{"noise runs", "??? ****", 0.45},
		{"long single line", strings.Repeat("word ", 12), 0.8},
		{"three capitals only", "Alpha Beta Gamma and more lowercase words here", 0.7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Confidence(tc.text), 1e-9)
		})
	}
}

func TestConfidenceIsDeterministicAndBounded(t *testing.T) {
	inputs := []string{
		"", "a", "[unclear] ***", "[Error x", "Hello World.\nFoo Bar Baz Qux\nline three\nline four",
		strings.Repeat("?", 100), strings.Repeat("Word. ", 40),
	}

	for _, in := range inputs {
		score := Confidence(in)
		assert.Equal(t, score, Confidence(in))
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
