package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
)

func TestForType(t *testing.T) {
	assert.Equal(t, activity.CategoryProductive, ForType(activity.TypeCoding))
	assert.Equal(t, activity.CategoryProductive, ForType(activity.TypeDocumenting))
	assert.Equal(t, activity.CategoryCommunication, ForType(activity.TypeCommunicating))
	assert.Equal(t, activity.CategoryNeutral, ForType(activity.TypeBrowsing))
	assert.Equal(t, activity.CategoryBreak, ForType(activity.TypeIdle))
	assert.Equal(t, activity.CategoryNeutral, ForType(activity.TypeClicking))
}

func TestForURL(t *testing.T) {
	tests := []struct {
		url  string
		want activity.Category
	}{
		{"https://www.reddit.com/r/golang", activity.CategoryDistracting},
		{"https://youtube.com/watch?v=x", activity.CategoryEntertainment},
		{"https://m.youtube.com/watch?v=x", activity.CategoryEntertainment},
		{"https://en.wikipedia.org/wiki/Go", activity.CategoryLearning},
		{"https://github.com/hay-kot/pulse", activity.CategoryProductive},
		{"https://notyoutube.com", ""},
		{"https://example.com", ""},
		{"::bad", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ForURL(tt.url))
		})
	}
}

func TestCategorize(t *testing.T) {
	c := New(config.DefaultConfig().Categories)

	tests := []struct {
		name     string
		raw      activity.RawRecord
		inferred activity.Type
		want     activity.Category
	}{
		{
			name:     "type default without app",
			raw:      activity.RawRecord{},
			inferred: activity.TypeCoding,
			want:     activity.CategoryProductive,
		},
		{
			name:     "app list overrides type",
			raw:      activity.RawRecord{Context: &activity.AppContext{Application: "Slack"}},
			inferred: activity.TypeTyping,
			want:     activity.CategoryCommunication,
		},
		{
			name:     "glob entry",
			raw:      activity.RawRecord{Context: &activity.AppContext{Application: "iTerm2"}},
			inferred: activity.TypeTyping,
			want:     activity.CategoryProductive,
		},
		{
			name:     "unknown app keeps type default",
			raw:      activity.RawRecord{Context: &activity.AppContext{Application: "chrome"}},
			inferred: activity.TypeBrowsing,
			want:     activity.CategoryNeutral,
		},
		{
			name: "url overrides app",
			raw: activity.RawRecord{Context: &activity.AppContext{
				Application: "chrome",
				URL:         "https://youtube.com/watch?v=x",
			}},
			inferred: activity.TypeBrowsing,
			want:     activity.CategoryEntertainment,
		},
		{
			name:     "url without app",
			raw:      activity.RawRecord{Context: &activity.AppContext{URL: "https://coursera.org/learn/go"}},
			inferred: activity.TypeIdle,
			want:     activity.CategoryLearning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.raw, tt.inferred))
		})
	}
}

func TestCategorize_FirstListWins(t *testing.T) {
	c := New(config.CategoryConfig{
		Productive:    []string{"hub"},
		Communication: []string{"hub"},
	})

	got := c.Categorize(activity.RawRecord{Context: &activity.AppContext{Application: "GitHub Desktop"}}, activity.TypeTyping)
	assert.Equal(t, activity.CategoryProductive, got)
}

func TestCategorizer_CacheInvalidatedOnUpdate(t *testing.T) {
	c := New(config.CategoryConfig{Distracting: []string{"tetris"}})
	raw := activity.RawRecord{Context: &activity.AppContext{Application: "Tetris"}}

	assert.Equal(t, activity.CategoryDistracting, c.Categorize(raw, activity.TypeClicking))
	c.Categorize(activity.RawRecord{Context: &activity.AppContext{Application: "unknown"}}, activity.TypeClicking)
	assert.Equal(t, 2, c.CacheSize(), "misses are cached too")

	c.Update(config.CategoryConfig{Learning: []string{"tetris"}})
	assert.Equal(t, 0, c.CacheSize())
	assert.Equal(t, activity.CategoryLearning, c.Categorize(raw, activity.TypeClicking))
}

func TestCategorizer_StaleLookupNotCached(t *testing.T) {
	c := New(config.CategoryConfig{Distracting: []string{"tetris"}})

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	c.Update(config.CategoryConfig{Learning: []string{"tetris"}})
	c.remember("tetris", activity.CategoryDistracting, gen)

	assert.Equal(t, 0, c.CacheSize())
	raw := activity.RawRecord{Context: &activity.AppContext{Application: "Tetris"}}
	assert.Equal(t, activity.CategoryLearning, c.Categorize(raw, activity.TypeClicking))
}

func TestCategorize_DefaultAppLists(t *testing.T) {
	c := New(config.DefaultConfig().Categories)

	tests := []struct {
		app  string
		want activity.Category
	}{
		{app: "1Password", want: activity.CategoryNeutral},
		{app: "Microsoft Word", want: activity.CategoryProductive},
		{app: "WINWORD.EXE", want: activity.CategoryProductive},
		{app: "Code", want: activity.CategoryProductive},
		{app: "Barcode Scanner", want: activity.CategoryNeutral},
		{app: "Mail", want: activity.CategoryCommunication},
		{app: "Apple Mail", want: activity.CategoryCommunication},
		{app: "Mailchimp", want: activity.CategoryNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.app, func(t *testing.T) {
			raw := activity.RawRecord{Context: &activity.AppContext{Application: tt.app}}
			assert.Equal(t, tt.want, c.Categorize(raw, activity.TypeClicking))
		})
	}
}

func TestMatchApp(t *testing.T) {
	tests := []struct {
		name    string
		app     string
		entries []string
		want    bool
	}{
		{name: "substring", app: "GitHub Desktop", entries: []string{"hub"}, want: true},
		{name: "glob is whole name", app: "mailchimp", entries: []string{"*mail"}, want: false},
		{name: "glob suffix", app: "Gmail", entries: []string{"*mail"}, want: true},
		{name: "empty app", app: "  ", entries: []string{""}, want: false},
		{name: "empty entry skipped", app: "x", entries: []string{""}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchApp(tt.app, tt.entries))
		})
	}
}
