package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Status(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  Status
	}{
		{"clean", Entry{Records: 3, Accepted: 3}, StatusOK},
		{"rejections are not failures", Entry{Records: 3, Rejected: 2}, StatusOK},
		{"failed records", Entry{Records: 3, Failed: 1}, StatusPartial},
		{"run error wins", Entry{Failed: 1, Error: "read day.jsonl: permission denied"}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Status())
		})
	}
}

func TestEntry_CommandString(t *testing.T) {
	assert.Equal(t, "watch", (&Entry{Command: "watch"}).CommandString())
	assert.Equal(t, "parse a.jsonl -", (&Entry{Command: "parse", Sources: []string{"a.jsonl", "-"}}).CommandString())
}

func TestEntry_AcceptRate(t *testing.T) {
	assert.Equal(t, "-", (&Entry{}).AcceptRate())
	assert.Equal(t, "67%", (&Entry{Records: 3, Accepted: 2}).AcceptRate())
}

func TestQuery_Match(t *testing.T) {
	parseOK := Entry{Command: "parse"}
	watchErr := Entry{Command: "watch", Error: "spool dir removed"}

	assert.True(t, Query{}.Match(parseOK))
	assert.True(t, Query{Command: "watch"}.Match(watchErr))
	assert.False(t, Query{Command: "watch"}.Match(parseOK))
	assert.True(t, Query{Status: StatusError}.Match(watchErr))
	assert.False(t, Query{Status: StatusError}.Match(parseOK))
}
