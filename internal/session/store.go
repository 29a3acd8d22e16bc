package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/store"
)

// Store owns the current Session. Every mutation is written through to
// the key/value store before subscribers are notified.
type Store struct {
	kv  store.KV
	now func() time.Time
	log zerolog.Logger

	mu      sync.Mutex
	current *Session
	subs    map[int]func(*Session)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l.With().Str("component", "session").Logger() }
}

// NewStore creates a Store persisting into kv.
func NewStore(kv store.KV, opts ...Option) *Store {
	s := &Store{
		kv:   kv,
		now:  time.Now,
		log:  zerolog.Nop(),
		subs: make(map[int]func(*Session)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads the persisted session. A session that is complete or older
// than MaxAge is purged and (nil, nil) is returned.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(e.Value, &sess); err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable session")
		return nil, s.purgeLocked(ctx)
	}

	if sess.IsComplete || sess.Expired(s.now()) {
		s.log.Info().Str("session_id", sess.ID).Bool("complete", sess.IsComplete).Msg("purging stale session")
		return nil, s.purgeLocked(ctx)
	}

	if sess.SelectedLanguage == "" {
		sess.SelectedLanguage = quiz.DefaultLanguage
	}
	s.current = &sess
	s.notifyLocked()
	return sess.clone(), nil
}

// StartNew creates a fresh session, discarding any previous one.
func (s *Store) StartNew(ctx context.Context, videos []string, analysis []quiz.VideoAnalysis, language quiz.Language) (*Session, error) {
	if language == "" {
		language = quiz.DefaultLanguage
	}
	sess := &Session{
		ID:               uuid.New().String(),
		StartTime:        s.now().UTC(),
		SelectedLanguage: language,
		Videos:           append([]string(nil), videos...),
		Analysis:         append([]quiz.VideoAnalysis(nil), analysis...),
		Progress:         Progress{History: []quiz.AnswerRecord{}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitLocked(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", sess.ID).Int("videos", len(videos)).Msg("session started")
	return sess.clone(), nil
}

// Update merges p into the current session.
func (s *Store) Update(ctx context.Context, p Patch) (*Session, error) {
	return s.mutate(ctx, p.apply)
}

// UpdateProgress merges p into the current session's progress.
func (s *Store) UpdateProgress(ctx context.Context, p ProgressPatch) (*Session, error) {
	return s.mutate(ctx, func(sess *Session) { p.apply(&sess.Progress) })
}

// AddToHistory appends rec to the progress history, stamping it with the
// current time when it carries none.
func (s *Store) AddToHistory(ctx context.Context, rec quiz.AnswerRecord) (*Session, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	return s.mutate(ctx, func(sess *Session) {
		sess.Progress.History = append(sess.Progress.History, rec)
	})
}

// Complete marks the session finished with the given final history.
func (s *Store) Complete(ctx context.Context, history []quiz.AnswerRecord) (*Session, error) {
	end := s.now().UTC()
	return s.Update(ctx, Patch{
		IsComplete:   Ptr(true),
		EndTime:      &end,
		FinalHistory: append([]quiz.AnswerRecord{}, history...),
	})
}

// Clear deletes the persisted and in-memory session.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(ctx)
}

// Current returns a copy of the current session, or nil.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// LastValidState returns the recovery point of the current session, or nil.
func (s *Store) LastValidState() *ValidState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return &ValidState{
		VideoIndex:       s.current.Progress.CurrentVideoIndex,
		SegmentIndex:     s.current.Progress.CurrentSegmentIndex,
		History:          append([]quiz.AnswerRecord(nil), s.current.Progress.History...),
		SelectedLanguage: s.current.SelectedLanguage,
	}
}

// ResetToLastValidState rewrites progress from the last valid state.
func (s *Store) ResetToLastValidState(ctx context.Context) (*Session, error) {
	vs := s.LastValidState()
	if vs == nil {
		return nil, ErrNoActiveSession
	}
	return s.UpdateProgress(ctx, ProgressPatch{
		CurrentVideoIndex:   &vs.VideoIndex,
		CurrentSegmentIndex: &vs.SegmentIndex,
		History:             vs.History,
	})
}

// Subscribe registers fn to be called with a copy of the session after
// every change (nil after Clear). The returned func unsubscribes.
func (s *Store) Subscribe(fn func(*Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) mutate(ctx context.Context, fn func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoActiveSession
	}
	next := s.current.clone()
	fn(next)
	if err := s.commitLocked(ctx, next); err != nil {
		return nil, err
	}
	return next.clone(), nil
}

func (s *Store) commitLocked(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Put(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.current = sess
	s.notifyLocked()
	return nil
}

func (s *Store) purgeLocked(ctx context.Context) error {
	s.current = nil
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.notifyLocked()
	return nil
}

// notifyLocked runs subscribers synchronously; they must not call back
// into the Store.
func (s *Store) notifyLocked() {
	for _, fn := range s.subs {
		fn(s.current.clone())
	}
}
