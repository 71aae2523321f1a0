package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"keeps order of first occurrence", []string{"QmB", "QmA", "QmB"}, []string{"QmB", "QmA"}},
		{"trims before comparing", []string{" QmA", "QmA ", "\tQmA\n"}, []string{"QmA"}},
		{"drops blanks", []string{"", "  ", "QmA"}, []string{"QmA"}},
		{"case sensitive", []string{"qma", "QmA"}, []string{"qma", "QmA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"QmA", "QmB"}, SplitAndTrim("QmA, QmB,QmA", ","))
	assert.Equal(t, []string{"QmA"}, SplitAndTrim("QmA", ","))
	assert.Equal(t, []string{}, SplitAndTrim("  ", ","))
	assert.Equal(t, []string{}, SplitAndTrim(",,", ","))
}
