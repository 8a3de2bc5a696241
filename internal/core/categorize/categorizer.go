// Package categorize assigns a productivity category to an activity.
package categorize

import (
	"net/url"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
)

// Domain sets checked against the URL host. A host matches a domain when it
// equals it or is a subdomain of it.
var (
	socialDomains = []string{
		"facebook.com", "twitter.com", "x.com", "instagram.com", "tiktok.com",
		"reddit.com", "weibo.com", "pinterest.com", "snapchat.com", "tumblr.com",
	}
	mediaDomains = []string{
		"youtube.com", "youtu.be", "netflix.com", "twitch.tv", "bilibili.com",
		"hulu.com", "spotify.com", "disneyplus.com", "primevideo.com", "vimeo.com",
	}
	learningDomains = []string{
		"coursera.org", "udemy.com", "edx.org", "khanacademy.org", "wikipedia.org",
		"duolingo.com", "leetcode.com", "udacity.com", "pluralsight.com",
	}
	devDomains = []string{
		"github.com", "gitlab.com", "bitbucket.org", "stackoverflow.com",
		"developer.mozilla.org", "pkg.go.dev", "go.dev", "npmjs.com", "pypi.org",
		"docs.python.org", "crates.io", "docs.rs",
	}
)

type appList struct {
	category activity.Category
	entries  []string
}

// Categorizer maps activities to categories. Per-application results are
// cached by lower-cased application name for the lifetime of the instance.
type Categorizer struct {
	lists []appList

	mu    sync.RWMutex
	cache map[string]activity.Category // "" caches a miss
	gen   uint64                       // bumped by Update
}

// New creates a categorizer from the configured application lists.
func New(cfg config.CategoryConfig) *Categorizer {
	c := &Categorizer{}
	c.Update(cfg)
	return c
}

// Update replaces the application lists and drops every cached lookup.
func (c *Categorizer) Update(cfg config.CategoryConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lists = []appList{
		{activity.CategoryProductive, lowerAll(cfg.Productive)},
		{activity.CategoryDistracting, lowerAll(cfg.Distracting)},
		{activity.CategoryCommunication, lowerAll(cfg.Communication)},
		{activity.CategoryLearning, lowerAll(cfg.Learning)},
	}
	c.cache = map[string]activity.Category{}
	c.gen++
}

// CacheSize returns the number of cached application lookups.
func (c *Categorizer) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Categorize returns the category for raw given its inferred type. Later
// steps override earlier ones: the type default, then the application
// lists, then the URL domain.
func (c *Categorizer) Categorize(raw activity.RawRecord, inferred activity.Type) activity.Category {
	category := ForType(inferred)

	if app := raw.Application(); app != "" {
		if byApp := c.forApp(app); byApp != "" {
			category = byApp
		}
	}

	if byURL := ForURL(raw.URL()); byURL != "" {
		category = byURL
	}

	return category
}

// ForType returns the category implied by an activity type.
func ForType(t activity.Type) activity.Category {
	switch t {
	case activity.TypeCoding, activity.TypeDocumenting:
		return activity.CategoryProductive
	case activity.TypeCommunicating:
		return activity.CategoryCommunication
	case activity.TypeIdle:
		return activity.CategoryBreak
	default:
		return activity.CategoryNeutral
	}
}

// ForURL returns the category implied by the URL's domain, or "" when the
// URL is unparseable or its domain is not in any set.
func ForURL(raw string) activity.Category {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch {
	case matchDomain(host, socialDomains):
		return activity.CategoryDistracting
	case matchDomain(host, mediaDomains):
		return activity.CategoryEntertainment
	case matchDomain(host, learningDomains):
		return activity.CategoryLearning
	case matchDomain(host, devDomains):
		return activity.CategoryProductive
	default:
		return ""
	}
}

func (c *Categorizer) forApp(app string) activity.Category {
	key := strings.ToLower(strings.TrimSpace(app))

	c.mu.RLock()
	cached, ok := c.cache[key]
	lists, gen := c.lists, c.gen
	c.mu.RUnlock()
	if ok {
		return cached
	}

	var found activity.Category
	for _, l := range lists {
		if MatchApp(key, l.entries) {
			found = l.category
			break
		}
	}

	c.remember(key, found, gen)
	return found
}

// remember caches found unless the lists changed since gen was read.
func (c *Categorizer) remember(key string, found activity.Category, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cache[key] = found
	}
}

// MatchApp reports whether app matches any lower-case entry. Entries with
// glob meta characters are doublestar patterns matched against the whole
// name; others match as substrings.
func MatchApp(app string, entries []string) bool {
	app = strings.ToLower(strings.TrimSpace(app))
	if app == "" {
		return false
	}
	for _, e := range entries {
		if e == "" {
			continue
		}
		if strings.ContainsAny(e, "*?[{") {
			if ok, err := doublestar.Match(e, app); err == nil && ok {
				return true
			}
			continue
		}
		if strings.Contains(app, e) {
			return true
		}
	}
	return false
}

func matchDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
