package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
		wantErr  bool
	}{
		{"plain", "0.85", 0.85, false},
		{"integer_one", "1", 1.0, false},
		{"integer_zero", "0", 0.0, false},
		{"with_prose", "Similarity: 0.72 based on shared topics.", 0.72, false},
		{"whitespace", "  0.5\n", 0.5, false},
		{"out_of_range_clamped", "1.9", 1.0, false},
		{"no_number", "these texts are quite similar", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := parseScore(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, score, 1e-9)
		})
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := New(Config{Provider: "anthropic", Model: "x"})
	assert.Error(t, err)
}
