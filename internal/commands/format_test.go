package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long string", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "-", formatMillis(0))
	assert.Equal(t, "450ms", formatMillis(450))
	assert.Equal(t, "5s", formatMillis(5000))
	assert.Equal(t, "1m30s", formatMillis(90_400))
}

func TestFiredRules(t *testing.T) {
	hits := map[string]int64{"ide-coding": 3, "idle-detection": 0, "youtube": 3, "docs": 5}
	assert.Equal(t, "docs=5, ide-coding=3, youtube=3", firedRules(hits))
	assert.Empty(t, firedRules(nil))
}
