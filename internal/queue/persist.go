package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/store"
)

// StorageKey is the key the queue snapshot is persisted under.
const StorageKey = "learningQueueState"

// SnapshotCeiling is the largest encoded snapshot written in full. Larger
// snapshots are reduced to the minimal projection.
const SnapshotCeiling = 4.5 * 1024 * 1024

// Snapshot is a persisted queue state.
type Snapshot struct {
	SavedAt time.Time
	Minimal bool
	raw     []byte
}

// Stale reports whether the snapshot is too old to restore at now.
func (s *Snapshot) Stale(now time.Time) bool {
	return now.Sub(s.SavedAt) >= SnapshotMaxAge
}

type fullSnapshot struct {
	State
	LastSavedTime time.Time `json:"lastSavedTime"`
}

type minimalSnapshot struct {
	CurrentVideoIndex   int           `json:"currentVideoIndex"`
	CurrentSegmentIndex int           `json:"currentSegmentIndex"`
	TotalVideos         int           `json:"totalVideos"`
	SelectedLanguage    quiz.Language `json:"selectedLanguage"`
	LastSavedTime       time.Time     `json:"lastSavedTime"`
}

func minimalOf(s State, now time.Time) ([]byte, error) {
	return json.Marshal(minimalSnapshot{
		CurrentVideoIndex:   s.CurrentVideoIndex,
		CurrentSegmentIndex: s.CurrentSegmentIndex,
		TotalVideos:         s.TotalVideos,
		SelectedLanguage:    s.SelectedLanguage,
		LastSavedTime:       now,
	})
}

// Persister writes the queue state to a KV after every transition.
type Persister struct {
	kv      store.KV
	now     func() time.Time
	log     zerolog.Logger
	ceiling int
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) PersisterOption {
	return func(p *Persister) { p.now = now }
}

// WithLogger sets the logger for persistence failures.
func WithLogger(l zerolog.Logger) PersisterOption {
	return func(p *Persister) { p.log = l.With().Str("component", "queue").Logger() }
}

// WithCeiling overrides SnapshotCeiling.
func WithCeiling(n int) PersisterOption {
	return func(p *Persister) { p.ceiling = n }
}

// NewPersister returns a Persister writing into kv.
func NewPersister(kv store.KV, opts ...PersisterOption) *Persister {
	p := &Persister{
		kv:      kv,
		now:     time.Now,
		log:     zerolog.Nop(),
		ceiling: SnapshotCeiling,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Attach subscribes the persister to m. Write failures are logged and
// never reach the dispatcher.
func (p *Persister) Attach(ctx context.Context, m *Machine) func() {
	return m.Subscribe(func(s State, a Action) {
		if err := p.Save(ctx, s); err != nil {
			p.log.Error().Err(err).Str("action", a.Name()).Msg("persist queue state")
		}
	})
}

// Save writes s. A state encoding above the ceiling is saved as the
// minimal projection. When storage is full, everything is cleared and the
// minimal projection is written once more.
func (p *Persister) Save(ctx context.Context, s State) error {
	now := p.now().UTC()
	data, err := json.Marshal(fullSnapshot{State: s, LastSavedTime: now})
	if err != nil {
		return fmt.Errorf("encode queue state: %w", err)
	}
	if len(data) > p.ceiling {
		p.log.Warn().Int("bytes", len(data)).Msg("queue state too large, saving minimal snapshot")
		if data, err = minimalOf(s, now); err != nil {
			return fmt.Errorf("encode minimal queue state: %w", err)
		}
	}

	err = p.kv.Put(ctx, StorageKey, data)
	if !errors.Is(err, store.ErrQuotaExceeded) {
		if err != nil {
			return fmt.Errorf("save queue state: %w", err)
		}
		return nil
	}

	p.log.Warn().Msg("storage quota exceeded, clearing stored data")
	if err := p.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	if data, err = minimalOf(s, now); err != nil {
		return fmt.Errorf("encode minimal queue state: %w", err)
	}
	if err := p.kv.Put(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save minimal queue state: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil when none is stored or it is
// older than SnapshotMaxAge.
func (p *Persister) Load(ctx context.Context) (*Snapshot, error) {
	e, err := p.kv.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queue state: %w", err)
	}

	var probe struct {
		LastSavedTime   time.Time       `json:"lastSavedTime"`
		LearningHistory json.RawMessage `json:"learningHistory"`
	}
	if err := json.Unmarshal(e.Value, &probe); err != nil {
		p.log.Warn().Err(err).Msg("discarding unreadable queue state")
		return nil, nil
	}
	snap := &Snapshot{SavedAt: probe.LastSavedTime, Minimal: probe.LearningHistory == nil, raw: e.Value}
	if snap.Stale(p.now()) {
		return nil, nil
	}
	return snap, nil
}

// Clear removes the stored snapshot.
func (p *Persister) Clear(ctx context.Context) error {
	if err := p.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear queue state: %w", err)
	}
	return nil
}
