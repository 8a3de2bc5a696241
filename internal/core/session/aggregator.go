package session

import (
	"hash/fnv"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
)

type state struct {
	record Record
	buffer []activity.ParsedActivity // bounded, duration inference only
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*state
}

// Aggregator owns all session state. Sessions are spread over lock shards by
// id: updates to one session are serialised, different sessions proceed in
// parallel.
type Aggregator struct {
	shards     []*shard
	maxIdle    time.Duration
	bufferSize int
	log        zerolog.Logger
	now        func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(cfg config.SessionConfig, log zerolog.Logger) *Aggregator {
	n := max(1, cfg.Shards)
	a := &Aggregator{
		shards:     make([]*shard, n),
		maxIdle:    cfg.MaxIdle,
		bufferSize: max(1, cfg.BufferSize),
		log:        log,
		now:        time.Now,
	}
	for i := range a.shards {
		a.shards[i] = &shard{sessions: map[string]*state{}}
	}
	return a
}

// WithClock overrides the time source used by CleanupOldSessions.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func (a *Aggregator) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return a.shards[h.Sum32()%uint32(len(a.shards))]
}

// AddActivity appends act to its session, creating the session on first
// sight. Activities without a session id are ignored.
func (a *Aggregator) AddActivity(act activity.ParsedActivity) {
	if act.SessionID == "" {
		return
	}
	sh := a.shardFor(act.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	a.addLocked(sh, act)
}

// CalculateDuration infers the duration of act from the gap to the activity
// buffered before it in the same session. When act is not buffered yet the
// most recent buffered activity is used. It returns nil when there is no
// predecessor or the gap is not strictly between zero and the max idle time.
func (a *Aggregator) CalculateDuration(act activity.ParsedActivity) *int64 {
	if act.SessionID == "" {
		return nil
	}
	sh := a.shardFor(act.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return a.durationLocked(sh, act)
}

// Fold infers the duration of act and adds it to its session as one atomic
// step, returning the activity as stored.
func (a *Aggregator) Fold(act activity.ParsedActivity) activity.ParsedActivity {
	if act.SessionID == "" {
		return act
	}
	sh := a.shardFor(act.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if d := a.durationLocked(sh, act); d != nil {
		act = act.WithDuration(*d)
	}
	a.addLocked(sh, act)
	return act
}

func (a *Aggregator) addLocked(sh *shard, act activity.ParsedActivity) {
	st, ok := sh.sessions[act.SessionID]
	if !ok {
		st = &state{record: Record{
			SessionID: act.SessionID,
			DeviceID:  act.DeviceID,
			StartTime: act.Timestamp,
			EndTime:   act.Timestamp,
		}}
		sh.sessions[act.SessionID] = st
		a.log.Debug().Str("session_id", act.SessionID).Msg("session started")
	}

	st.record.Activities = append(st.record.Activities, act)
	if act.Timestamp.After(st.record.EndTime) {
		st.record.EndTime = act.Timestamp
	}

	st.buffer = append(st.buffer, act)
	if len(st.buffer) > a.bufferSize {
		st.buffer = slices.Delete(st.buffer, 0, len(st.buffer)-a.bufferSize)
	}
}

func (a *Aggregator) durationLocked(sh *shard, act activity.ParsedActivity) *int64 {
	st, ok := sh.sessions[act.SessionID]
	if !ok || len(st.buffer) == 0 {
		return nil
	}

	prev := st.buffer[len(st.buffer)-1]
	if idx := slices.IndexFunc(st.buffer, func(b activity.ParsedActivity) bool { return b.ID == act.ID }); idx >= 0 {
		if idx == 0 {
			return nil
		}
		prev = st.buffer[idx-1]
	}

	gap := act.Timestamp.Sub(prev.Timestamp)
	if gap <= 0 || gap >= a.maxIdle {
		return nil
	}
	ms := gap.Milliseconds()
	return &ms
}

// Session returns a copy of the session record.
func (a *Aggregator) Session(sessionID string) (Record, bool) {
	sh := a.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[sessionID]
	if !ok {
		return Record{}, false
	}
	rec := st.record
	rec.Activities = slices.Clone(st.record.Activities)
	return rec, true
}

// Summary returns the summary of a session, or false when it is unknown.
func (a *Aggregator) Summary(sessionID string) (Summary, bool) {
	sh := a.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[sessionID]
	if !ok {
		return Summary{}, false
	}
	return Summarize(st.record), true
}

// SessionIDs returns the ids of all live sessions, sorted.
func (a *Aggregator) SessionIDs() []string {
	var ids []string
	for _, sh := range a.shards {
		sh.mu.Lock()
		for id := range sh.sessions {
			ids = append(ids, id)
		}
		sh.mu.Unlock()
	}
	slices.Sort(ids)
	return ids
}

// Count returns the number of live sessions.
func (a *Aggregator) Count() int {
	n := 0
	for _, sh := range a.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// CleanupOldSessions evicts sessions last seen before now-maxAge, together
// with their duration buffers, and returns how many were evicted.
func (a *Aggregator) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := a.now().Add(-maxAge)
	evicted := 0

	for _, sh := range a.shards {
		sh.mu.Lock()
		for id, st := range sh.sessions {
			if st.record.LastSeen().Before(cutoff) {
				delete(sh.sessions, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}

	if evicted > 0 {
		a.log.Info().Int("evicted", evicted).Dur("max_age", maxAge).Msg("cleaned up old sessions")
	}
	return evicted
}
