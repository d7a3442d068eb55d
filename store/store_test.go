package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/kripke"
	"github.com/rfielding/sketchcheck/sketch"
	"github.com/rfielding/sketchcheck/verify"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sketchcheck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testInstance(t *testing.T) *features.Instance {
	t.Helper()
	g := kripke.NewGraph(3)
	for i := range 3 {
		_, err := g.AddEdge(i, (i+1)%3, "step")
		require.NoError(t, err)
	}
	inst, err := features.NewInstance(g, 0, []int{2}, []features.Valuation{
		features.Bools("b_on", false, true, false),
		features.Ints("n_left", 2, 1, 0),
	}, features.WithName("cycle3"), features.WithDisplayNames(map[string]string{"n_left": "left"}))
	require.NoError(t, err)
	return inst
}

func TestInstanceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	inst := testInstance(t)

	d1, err := s.PutInstance(ctx, inst)
	require.NoError(t, err)
	assert.Len(t, d1, 64)

	got, err := s.GetInstance(ctx, "cycle3")
	require.NoError(t, err)
	assert.Equal(t, inst.Document(), got.Document())
	assert.Equal(t, "left", got.DisplayName("n_left"))

	d2, err := s.PutInstance(ctx, inst)
	require.NoError(t, err)
	assert.Equal(t, d1, d2, "same content, same digest")

	_, err = s.GetInstance(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutInstanceNeedsName(t *testing.T) {
	g := kripke.NewGraph(1)
	inst, err := features.NewInstance(g, 0, nil, nil)
	require.NoError(t, err)
	_, err = openTemp(t).PutInstance(context.Background(), inst)
	assert.Error(t, err)
}

func TestSketchRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	sk := sketch.New(
		sketch.MustRule(sketch.When(sketch.Greater("n_left")), sketch.Then(sketch.Decr("n_left"))),
		sketch.MustRule(sketch.When(sketch.Negative("b_on")), sketch.Then(sketch.SetTrue("b_on"))),
	)

	_, err := s.PutSketch(ctx, "count-down", sk)
	require.NoError(t, err)
	got, err := s.GetSketch(ctx, "count-down")
	require.NoError(t, err)
	assert.True(t, sk.Equal(got), got.Render(nil))

	// Overwrite replaces the stored body.
	_, err = s.PutSketch(ctx, "count-down", sketch.New())
	require.NoError(t, err)
	got, err = s.GetSketch(ctx, "count-down")
	require.NoError(t, err)
	assert.Zero(t, got.Len())

	_, err = s.GetSketch(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	pass := &verify.Report{
		Instance:    "cycle3",
		Passed:      true,
		GroundRules: 2,
		Duration:    3 * time.Millisecond,
		Laws: []verify.LawResult{
			{Law: "progress", Logic: "CTL", Formula: "AG (goal)", Expect: true, Got: true, Passed: true},
		},
	}
	fail := &verify.Report{Instance: "trap", Reason: "law safety: got false, want true"}

	v1, err := s.RecordVerdict(ctx, NewVerdict("toggle", "kripke", pass))
	require.NoError(t, err)
	_, err = uuid.Parse(v1.ID)
	require.NoError(t, err)
	v2, err := s.RecordVerdict(ctx, NewVerdict("toggle", "nusmv", fail))
	require.NoError(t, err)
	assert.NotEqual(t, v1.ID, v2.ID)

	all, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, v2.ID, all[0].ID, "newest first")
	assert.Equal(t, v1.ID, all[1].ID)
	assert.Equal(t, v1.Laws, all[1].Laws)
	assert.Equal(t, 3*time.Millisecond, all[1].Duration)
	assert.True(t, v1.CreatedAt.Equal(all[1].CreatedAt))
	assert.True(t, all[1].Passed)
	assert.False(t, all[0].Passed)
	assert.Equal(t, "nusmv", all[0].Oracle)
	assert.Contains(t, all[0].String(), "FAIL")
	assert.Contains(t, all[0].String(), "law safety")

	last, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, v2.ID, last[0].ID)
}

func TestHistoryOrdersSubSecondTimes(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(100 * time.Millisecond),
		base.Add(150 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + 5*time.Millisecond),
	}
	var ids []string
	for _, at := range times {
		s.now = func() time.Time { return at }
		v, err := s.RecordVerdict(ctx, NewVerdict("toggle", "kripke", &verify.Report{Instance: "cycle3", Passed: true}))
		require.NoError(t, err)
		ids = append(ids, v.ID)
	}

	all, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, len(times))
	for i, v := range all {
		want := len(times) - 1 - i
		assert.Equal(t, ids[want], v.ID, "position %d", i)
		assert.True(t, times[want].Equal(v.CreatedAt), "position %d: %v", i, v.CreatedAt)
	}

	last, err := s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ids[len(ids)-1], last[0].ID)
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	ctx := context.Background()
	_, err = s.PutInstance(ctx, testInstance(t))
	require.NoError(t, err)
	_, err = s.GetInstance(ctx, "cycle3")
	require.NoError(t, err)
	assert.Equal(t, MemoryPath, s.Path())
}
