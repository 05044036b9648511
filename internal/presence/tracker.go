// Package presence keeps an in-memory roster of the actors using the
// streams API.
//
// The server records one Activity per request that carries an actor
// header. A background reaper marks actors idle after a threshold and
// later evicts them, so the roster stays bounded.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is a snapshot of one actor's activity.
type Entry struct {
	Actor         string    `json:"actor"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	LastRoute     string    `json:"last_route"`               // e.g. "POST /v1/fields"
	LastNamespace string    `json:"last_namespace,omitempty"` // namespace of the last request, if any
	Namespaces    []string  `json:"namespaces,omitempty"`     // every namespace touched, sorted
	RequestCount  int64     `json:"request_count"`
	WriteCount    int64     `json:"write_count"`
	IdleSecs      float64   `json:"idle_secs"`
	Idle          bool      `json:"idle,omitempty"` // marked by the reaper
	IdleSince     time.Time `json:"idle_since,omitempty"`
}

// Activity is one request attributed to an actor.
type Activity struct {
	Actor     string
	Route     string
	Namespace string
	Write     bool // the request mutated fields, streams or assignments
}

// ReaperConfig configures the background idle reaper.
type ReaperConfig struct {
	// IdleThreshold is how long an actor must be quiet before being marked
	// idle. Default: 15 minutes.
	IdleThreshold time.Duration

	// EvictAfter is how long an idle actor stays in the roster.
	// Default: 30 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans the roster.
	// Default: 60 seconds.
	SweepInterval time.Duration

	// OnIdle is called outside the lock for each actor newly marked idle.
	OnIdle func(actor string)
}

// Tracker maintains the actor roster.
type Tracker struct {
	mu     sync.RWMutex
	actors map[string]*actorState

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type actorState struct {
	firstSeen     time.Time
	lastSeen      time.Time
	lastRoute     string
	lastNamespace string
	namespaces    map[string]struct{}
	requests      int64
	writes        int64
	idle          bool
	idleSince     time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{actors: make(map[string]*actorState)}
}

// Record updates the roster with one request. Activity without an actor
// is ignored.
func (t *Tracker) Record(a Activity) {
	if a.Actor == "" {
		return
	}

	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.actors[a.Actor]
	if !ok {
		state = &actorState{firstSeen: now, namespaces: make(map[string]struct{})}
		t.actors[a.Actor] = state
	}
	if state.idle {
		slog.Debug("presence: actor active again", "actor", a.Actor)
		state.idle = false
		state.idleSince = time.Time{}
	}

	state.lastSeen = now
	state.lastRoute = a.Route
	state.requests++
	if a.Write {
		state.writes++
	}
	if a.Namespace != "" {
		state.lastNamespace = a.Namespace
		state.namespaces[a.Namespace] = struct{}{}
	}
}

// Roster returns all tracked actors, most recently active first. Actors
// quiet for longer than active are left out; 0 includes everyone.
func (t *Tracker) Roster(active time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	entries := make([]Entry, 0, len(t.actors))
	for actor, state := range t.actors {
		idle := now.Sub(state.lastSeen)
		if active > 0 && idle > active {
			continue
		}

		var namespaces []string
		for ns := range state.namespaces {
			namespaces = append(namespaces, ns)
		}
		sort.Strings(namespaces)

		entries = append(entries, Entry{
			Actor:         actor,
			FirstSeen:     state.firstSeen,
			LastSeen:      state.lastSeen,
			LastRoute:     state.lastRoute,
			LastNamespace: state.lastNamespace,
			Namespaces:    namespaces,
			RequestCount:  state.requests,
			WriteCount:    state.writes,
			IdleSecs:      idle.Seconds(),
			Idle:          state.idle,
			IdleSince:     state.idleSince,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartReaper launches the background reaper. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = 15 * time.Minute
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 30 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("presence: reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := time.Now()
	var newlyIdle []string

	t.mu.Lock()
	for actor, state := range t.actors {
		if state.idle {
			// Actors that never wrote anything are read-only visitors; evict them sooner.
			evictAfter := cfg.EvictAfter
			if state.writes == 0 && evictAfter > 5*time.Minute {
				evictAfter = 5 * time.Minute
			}
			if now.Sub(state.idleSince) > evictAfter {
				delete(t.actors, actor)
			}
			continue
		}
		if now.Sub(state.lastSeen) > cfg.IdleThreshold {
			state.idle = true
			state.idleSince = now
			newlyIdle = append(newlyIdle, actor)
		}
	}
	t.mu.Unlock()

	for _, actor := range newlyIdle {
		slog.Debug("presence: actor marked idle", "actor", actor, "threshold", cfg.IdleThreshold)
		if cfg.OnIdle != nil {
			cfg.OnIdle(actor)
		}
	}
}
