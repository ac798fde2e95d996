package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/textsplitter"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		size      int
		overlap   int
		minChunks int
		maxChunks int
	}{
		{"empty", "", 100, 10, 0, 0},
		{"blank", "   \n\n  ", 100, 10, 0, 0},
		{"short", "A single short paragraph.", 100, 10, 1, 1},
		{"long", strings.Repeat("word ", 400), 200, 20, 10, 20},
		{"bad overlap is corrected", strings.Repeat("word ", 100), 100, 500, 4, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := NewRecursiveCharacterTextSplitter(tt.size, tt.overlap).SplitText(tt.text)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(chunks), tt.minChunks)
			assert.LessOrEqual(t, len(chunks), tt.maxChunks)
			for _, c := range chunks {
				assert.LessOrEqual(t, len(c), tt.size)
			}
		})
	}
}

func TestNewRecursiveCharacterTextSplitter_Defaults(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		overlap     int
		wantSize    int
		wantOverlap int
	}{
		{"kept", 500, 50, 500, 50},
		{"zero size", 0, 200, 1000, 200},
		{"negative overlap", 500, -1, 500, 100},
		{"overlap as large as size", 500, 500, 500, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, ok := NewRecursiveCharacterTextSplitter(tt.size, tt.overlap).splitter.(textsplitter.RecursiveCharacter)
			require.True(t, ok)
			assert.Equal(t, tt.wantSize, rc.ChunkSize)
			assert.Equal(t, tt.wantOverlap, rc.ChunkOverlap)
		})
	}
}
