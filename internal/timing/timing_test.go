package timing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vidquiz/internal/quiz"
)

func segs(timestamps ...string) []quiz.Segment {
	out := make([]quiz.Segment, len(timestamps))
	for i, ts := range timestamps {
		out[i] = quiz.Segment{Timestamp: ts, Question: "Q" + ts}
	}
	return out
}

func TestDecide(t *testing.T) {
	list := segs("0:30", "1:30")

	tests := []struct {
		name   string
		pos    time.Duration
		cursor Cursor
		want   Decision
	}{
		{"before first", 29 * time.Second, Cursor{}, Decision{}},
		{"reached first", 30 * time.Second, Cursor{}, Decision{Fire: true, SegmentIndex: 0, Segment: list[0], Pause: true}},
		{"passed first", 45 * time.Second, Cursor{}, Decision{Fire: true, SegmentIndex: 0, Segment: list[0], Pause: true}},
		{"showing", 45 * time.Second, Cursor{Showing: true}, Decision{}},
		{"answered waits for next", 60 * time.Second, Cursor{Answered: true}, Decision{}},
		{"answered reaches next", 90 * time.Second, Cursor{Answered: true}, Decision{Fire: true, SegmentIndex: 1, Segment: list[1]}},
		{"answered last", 10 * time.Minute, Cursor{SegmentIndex: 1, Answered: true}, Decision{}},
		{"index past end", 10 * time.Minute, Cursor{SegmentIndex: 2}, Decision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.pos, tt.cursor, list))
		})
	}
}

func TestDecideSkipsBadTimestamp(t *testing.T) {
	assert.False(t, Decide(time.Hour, Cursor{}, segs("soon")).Fire)
	assert.False(t, Decide(time.Hour, Cursor{}, nil).Fire)
}

type samples struct {
	mu  sync.Mutex
	pos []time.Duration
}

func (s *samples) CurrentTime(context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pos[0]
	if len(s.pos) > 1 {
		s.pos = s.pos[1:]
	}
	return p, nil
}

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func TestCheckFiresOnFirstSampleReachingTimestamp(t *testing.T) {
	ctx := context.Background()
	reader := &samples{pos: []time.Duration{85 * time.Second, 89 * time.Second, 90 * time.Second, 91 * time.Second}}
	clock := &manualClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}

	var cursor Cursor
	triggers := 0
	list := segs("1:30")

	w := NewWatcher(reader, func() (Cursor, []quiz.Segment) { return cursor, list },
		func(_ context.Context, d Decision) {
			triggers++
			assert.Equal(t, 0, d.SegmentIndex)
			cursor.Showing = true
		}, WithClock(clock.now))

	var firedAt []int
	for i := 0; i < 4; i++ {
		d, err := w.Check(ctx)
		require.NoError(t, err)
		if d.Fire {
			firedAt = append(firedAt, i)
		}
		clock.t = clock.t.Add(100 * time.Millisecond)
	}

	assert.Equal(t, []int{2}, firedAt, "fires at the 90s sample only")
	assert.Equal(t, 1, triggers, "exactly one trigger while the question shows")
}

func TestCheckDebounces(t *testing.T) {
	ctx := context.Background()
	reader := &samples{pos: []time.Duration{0}}
	clock := &manualClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	var reads atomic.Int32
	counting := readerFunc(func(ctx context.Context) (time.Duration, error) {
		reads.Add(1)
		return reader.CurrentTime(ctx)
	})

	w := NewWatcher(counting, func() (Cursor, []quiz.Segment) { return Cursor{}, segs("1:00") },
		func(context.Context, Decision) {}, WithClock(clock.now))

	_, _ = w.Check(ctx)
	clock.t = clock.t.Add(50 * time.Millisecond)
	_, _ = w.Check(ctx)
	clock.t = clock.t.Add(50 * time.Millisecond)
	_, _ = w.Check(ctx)

	assert.Equal(t, int32(2), reads.Load())
}

type readerFunc func(ctx context.Context) (time.Duration, error)

func (f readerFunc) CurrentTime(ctx context.Context) (time.Duration, error) { return f(ctx) }

func TestArmDisarm(t *testing.T) {
	var pos atomic.Int64
	reader := readerFunc(func(context.Context) (time.Duration, error) {
		return time.Duration(pos.Load()), nil
	})

	var mu sync.Mutex
	cursor := Cursor{}
	var triggers atomic.Int32

	w := NewWatcher(reader,
		func() (Cursor, []quiz.Segment) {
			mu.Lock()
			defer mu.Unlock()
			return cursor, segs("0:05")
		},
		func(context.Context, Decision) {
			triggers.Add(1)
			mu.Lock()
			cursor.Showing = true
			mu.Unlock()
		},
		WithInterval(5*time.Millisecond), WithDebounce(time.Millisecond))

	w.Arm(context.Background())
	assert.True(t, w.Armed())

	pos.Store(int64(6 * time.Second))
	require.Eventually(t, func() bool { return triggers.Load() == 1 }, time.Second, 5*time.Millisecond)

	w.Disarm()
	assert.False(t, w.Armed())
	w.Disarm()

	mu.Lock()
	cursor = Cursor{}
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), triggers.Load(), "no checks after disarm")
}
