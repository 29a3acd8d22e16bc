package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/store"
)

func openKV(t *testing.T, opts ...store.Option) store.KV {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	st, err := store.Open(dsn, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st.KV()
}

func answer(i int, correct bool) RecordAnswer {
	return RecordAnswer{
		Answer:        i,
		IsCorrect:     correct,
		Question:      "What colour is the sky?",
		CorrectAnswer: "Blue",
		UserAnswer:    "Blue",
		At:            time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestInitial(t *testing.T) {
	s := Initial(3, "")
	assert.Equal(t, 3, s.TotalVideos)
	assert.Equal(t, quiz.English, s.SelectedLanguage)
	assert.True(t, s.IsAnswerSelectionEnabled)
	assert.Nil(t, s.SelectedAnswer)
	assert.Empty(t, s.LearningHistory)
	assert.Equal(t, CharacterIdle, s.CharacterState)
	assert.Equal(t, AudioIdle, s.AudioState)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := Initial(2, quiz.English)
	next := Reduce(s, answer(1, true))
	assert.Empty(t, s.LearningHistory)
	assert.Nil(t, s.SelectedAnswer)
	assert.Len(t, next.LearningHistory, 1)

	again := Reduce(next, answer(2, false))
	assert.Len(t, next.LearningHistory, 1, "earlier state keeps its history")
	assert.Len(t, again.LearningHistory, 2)
}

func TestHistoryOnlyGrows(t *testing.T) {
	actions := []Action{
		answer(0, true),
		SetSegment{Index: 1},
		PresentQuestion{Index: 1, Visible: true},
		answer(2, false),
		MarkAnswered{},
		EndVideo{},
		NextVideo{},
		StartVideo{},
		ResetQuestion{},
		SetSpeaking{Speaking: true},
		EnableAnswers{},
		answer(1, true),
		SetLanguage{Language: quiz.Hindi},
		EndLearning{},
	}

	s := Initial(2, quiz.English)
	prev := 0
	for _, a := range actions {
		s = Reduce(s, a)
		require.GreaterOrEqual(t, len(s.LearningHistory), prev, "after %s", a.Name())
		prev = len(s.LearningHistory)
	}
	assert.Equal(t, 3, prev)
	assert.Equal(t, 2, s.Score())
}

func TestRecordAnswerTagsPosition(t *testing.T) {
	s := Initial(2, quiz.English)
	s = Reduce(s, NextVideo{})
	s = Reduce(s, SetSegment{Index: 2})
	s = Reduce(s, answer(3, false))

	require.Len(t, s.LearningHistory, 1)
	rec := s.LearningHistory[0]
	assert.Equal(t, 1, rec.VideoIndex)
	assert.Equal(t, 2, rec.SegmentIndex)
	assert.Equal(t, 3, rec.Answer)
	assert.False(t, rec.IsCorrect)
	require.NotNil(t, s.SelectedAnswer)
	assert.Equal(t, 3, *s.SelectedAnswer)
	assert.False(t, s.IsAnswerSelectionEnabled)
}

func TestNextVideoResets(t *testing.T) {
	s := Initial(2, quiz.Spanish)
	s = Reduce(s, PresentQuestion{Index: 2, Visible: true})
	s = Reduce(s, SelectAnswer{Index: 1, IsCorrect: false})
	s = Reduce(s, SetBuffering{Buffering: true})
	s = Reduce(s, EndVideo{})

	s = Reduce(s, NextVideo{})
	assert.Equal(t, 1, s.CurrentVideoIndex)
	assert.Equal(t, 0, s.CurrentSegmentIndex)
	assert.True(t, s.ShowVideoTransition)
	assert.False(t, s.ShowQuestion)
	assert.Nil(t, s.SelectedAnswer)
	assert.Equal(t, CharacterIdle, s.CharacterState)
	assert.Equal(t, AudioIdle, s.AudioState)
	assert.True(t, s.IsAnswerSelectionEnabled)
	assert.False(t, s.VideoEnded)
	assert.False(t, s.IsBuffering)
	assert.Equal(t, quiz.Spanish, s.SelectedLanguage)

	s = Reduce(s, StartVideo{})
	assert.False(t, s.ShowVideoTransition)
}

func TestSpeakingAndAnswerGating(t *testing.T) {
	s := Initial(1, quiz.English)
	s = Reduce(s, SetSpeaking{Speaking: true})
	assert.Equal(t, AudioPlaying, s.AudioState)
	assert.Equal(t, CharacterSpeaking, s.CharacterState)
	assert.False(t, s.IsAnswerSelectionEnabled)
	assert.True(t, s.ShowCharacter)

	s = Reduce(s, SetSpeaking{Speaking: false})
	assert.Equal(t, AudioIdle, s.AudioState)
	assert.False(t, s.IsAnswerSelectionEnabled, "stopping narration alone does not enable answers")

	s = Reduce(s, EnableAnswers{})
	assert.True(t, s.IsAnswerSelectionEnabled)

	s = Reduce(s, SelectAnswer{Index: 0, IsCorrect: true})
	assert.Equal(t, CharacterCorrect, s.CharacterState)
	s = Reduce(s, MarkAnswered{})
	assert.True(t, s.QuestionAnswered)
	assert.False(t, s.ShowQuestion)
	assert.True(t, s.IsAnswerSelectionEnabled)
}

func TestSetDisplayPartial(t *testing.T) {
	yes := true
	s := Reduce(Initial(1, quiz.English), SetDisplay{ShowCharacter: &yes})
	assert.True(t, s.ShowCharacter)
	assert.False(t, s.ShowQuestion)
}

func TestMachineDispatchAndSubscribe(t *testing.T) {
	m := NewMachine(Initial(2, quiz.English))

	var names []string
	unsub := m.Subscribe(func(_ State, a Action) { names = append(names, a.Name()) })

	m.Dispatch(answer(1, true))
	got := m.Dispatch(NextVideo{})
	assert.Equal(t, 1, got.CurrentVideoIndex)
	assert.Equal(t, []string{"record_answer", "next_video"}, names)

	unsub()
	m.Dispatch(StartVideo{})
	assert.Len(t, names, 2)
	assert.False(t, m.State().ShowVideoTransition)
}

func TestPersisterSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := NewPersister(kv, WithClock(func() time.Time { return now }))

	m := NewMachine(Initial(2, quiz.Hindi))
	defer p.Attach(ctx, m)()
	m.Dispatch(PresentQuestion{Index: 1, Visible: true})
	m.Dispatch(answer(2, true))
	m.Dispatch(MarkAnswered{})

	e, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(e.Value, &raw))
	assert.Contains(t, raw, "lastSavedTime")
	assert.Contains(t, raw, "learningHistory")

	snap, err := p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.False(t, snap.Minimal)

	restored := Reduce(Initial(2, quiz.English), Restore{Snapshot: snap, Now: now.Add(time.Hour)})
	assert.Equal(t, 1, restored.CurrentSegmentIndex)
	assert.Len(t, restored.LearningHistory, 1)
	assert.True(t, restored.QuestionAnswered)
	assert.Equal(t, quiz.Hindi, restored.SelectedLanguage)
	assert.False(t, restored.ShowQuestion)
}

func TestRestoreAfterRecordedButUnmarkedAnswer(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	p := NewPersister(kv)

	m := NewMachine(Initial(2, quiz.English))
	defer p.Attach(ctx, m)()
	m.Dispatch(PresentQuestion{Index: 1, Visible: true})
	m.Dispatch(answer(2, false))
	require.False(t, m.State().QuestionAnswered)

	snap, err := p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)

	restored := Reduce(Initial(2, quiz.English), Restore{Snapshot: snap, Now: time.Now()})
	assert.Equal(t, 1, restored.CurrentSegmentIndex)
	assert.True(t, restored.QuestionAnswered, "the recorded segment is not asked again")
	assert.Len(t, restored.LearningHistory, 1)
}

func TestRestoreIgnoresStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	p := NewPersister(kv, WithClock(func() time.Time { return clock }))

	s := Reduce(Initial(3, quiz.English), NextVideo{})
	require.NoError(t, p.Save(ctx, s))

	snap, err := p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)

	base := Initial(3, quiz.English)
	assert.Equal(t, base, Reduce(base, Restore{Snapshot: snap, Now: now.Add(SnapshotMaxAge)}))
	assert.Equal(t, base, Reduce(base, Restore{Now: now}))

	clock = now.Add(SnapshotMaxAge + time.Second)
	snap, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPersisterFallsBackToMinimal(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	p := NewPersister(kv, WithCeiling(200))

	s := Initial(2, quiz.Spanish)
	for i := 0; i < 5; i++ {
		s = Reduce(s, answer(i%4, true))
	}
	require.NoError(t, p.Save(ctx, s))

	e, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(e.Value, &raw))
	assert.NotContains(t, raw, "learningHistory")
	assert.Equal(t, "spanish", raw["selectedLanguage"])

	snap, err := p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.Minimal)

	// A minimal snapshot only overrides its own fields.
	base := Reduce(Initial(2, quiz.English), answer(0, true))
	restored := Reduce(base, Restore{Snapshot: snap, Now: time.Now()})
	assert.Len(t, restored.LearningHistory, 1)
	assert.Equal(t, quiz.Spanish, restored.SelectedLanguage)
}

func TestPersisterQuotaPurgeRetry(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t, store.WithCapacity(400))
	require.NoError(t, kv.Put(ctx, "learningSession", []byte(strings.Repeat("x", 250))))

	p := NewPersister(kv)
	s := Initial(2, quiz.English)
	for i := 0; i < 3; i++ {
		s = Reduce(s, answer(i, true))
	}
	require.NoError(t, p.Save(ctx, s))

	_, err := kv.Get(ctx, "learningSession")
	assert.ErrorIs(t, err, store.ErrNotFound, "quota recovery clears all stored data")

	snap, err := p.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.Minimal)

	require.NoError(t, p.Clear(ctx))
	snap, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}
