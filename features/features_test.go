package features

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/sketchcheck/kripke"
)

func cycle(t *testing.T, n int) *kripke.Graph {
	t.Helper()
	g := kripke.NewGraph(n)
	for i := range n {
		_, err := g.AddEdge(i, (i+1)%n, "")
		require.NoError(t, err)
	}
	return g
}

func TestKindOf(t *testing.T) {
	k, err := KindOf("b_holding")
	require.NoError(t, err)
	assert.Equal(t, Boolean, k)

	k, err = KindOf("n_clear(a)")
	require.NoError(t, err)
	assert.Equal(t, Numeric, k)

	_, err = KindOf("holding")
	assert.ErrorIs(t, err, ErrUnknownFeatureKind)
}

func TestNewInstance(t *testing.T) {
	inst, err := NewInstance(cycle(t, 3), 0, []int{2, 2},
		[]Valuation{Ints("n_count", 2, 5, 0), Bools("b_done", false, false, true)},
		WithName("cycle3"), WithDisplayNames(map[string]string{"b_done": "done"}))
	require.NoError(t, err)

	assert.Equal(t, "cycle3", inst.Name())
	assert.Equal(t, 3, inst.Size())
	assert.Equal(t, []int{2}, inst.Goals())
	assert.True(t, inst.IsGoal(2))
	assert.False(t, inst.IsGoal(0))
	assert.Equal(t, []string{"b_done", "n_count"}, inst.Features())
	assert.Equal(t, map[string]Bound{"n_count": {Min: 0, Max: 5}}, inst.Bounds())
	assert.Equal(t, "done", inst.DisplayName("b_done"))
	assert.Equal(t, "n_count", inst.DisplayName("n_count"))
	assert.Equal(t, "done n_count=0", inst.StateSummary(2))
}

func TestNewInstanceValidation(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		goals   []int
		vals    []Valuation
		wantErr error
	}{
		{"initial out of range", 3, nil, nil, kripke.ErrStateOutOfRange},
		{"goal out of range", 0, []int{7}, nil, kripke.ErrStateOutOfRange},
		{"short valuation", 0, nil, []Valuation{Bools("b_x", true)}, ErrLengthMismatch},
		{"unknown prefix", 0, nil, []Valuation{Bools("x", true, true, true)}, ErrUnknownFeatureKind},
		{"kind mismatch", 0, nil, []Valuation{Ints("b_x", 1, 1, 1)}, ErrKindMismatch},
		{"duplicate", 0, nil, []Valuation{Ints("n_x", 1, 1, 1), Ints("n_x", 1, 1, 1)}, ErrDuplicateFeature},
		{"negative", 0, nil, []Valuation{Ints("n_x", 1, -1, 1)}, ErrNegativeValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInstance(cycle(t, 3), tt.initial, tt.goals, tt.vals)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInstanceIsImmutable(t *testing.T) {
	values := []int{1, 2, 3}
	inst, err := NewInstance(cycle(t, 3), 0, []int{1}, []Valuation{Ints("n_x", values...)})
	require.NoError(t, err)

	values[0] = 99
	v, ok := inst.Valuation("n_x")
	require.True(t, ok)
	assert.Equal(t, 1, v.Ints[0])

	v.Ints[1] = 42
	again, _ := inst.Valuation("n_x")
	assert.Equal(t, 2, again.Ints[1])

	goals := inst.Goals()
	goals[0] = 0
	assert.Equal(t, []int{1}, inst.Goals())
}

const blocksYAML = `
name: blocks-2
states: 3
initial: 0
goals: [2]
edges:
  - {from: 0, to: 1, label: pick(a)}
  - {from: 1, to: 2, label: "stack(a,b)"}
  - {from: 2, to: 0}
features:
  b_holding: [false, true, false]
  n_above: [1, 1, 0]
display:
  b_holding: holding
`

func TestLoad(t *testing.T) {
	inst, err := Load(strings.NewReader(blocksYAML))
	require.NoError(t, err)

	assert.Equal(t, "blocks-2", inst.Name())
	assert.Equal(t, 0, inst.Initial())
	label, ok := inst.Graph().Label(1, 2)
	require.True(t, ok)
	assert.Equal(t, "stack(a,b)", label)

	v, _ := inst.Valuation("b_holding")
	assert.Equal(t, []bool{false, true, false}, v.Bools)
	assert.Equal(t, Bound{Min: 0, Max: 1}, inst.Bounds()["n_above"])
	assert.Equal(t, "holding", inst.DisplayName("b_holding"))
}

func TestLoadRejectsBadValues(t *testing.T) {
	doc := `
states: 2
initial: 0
goals: [1]
edges: [{from: 0, to: 1}]
features:
  n_x: [1, true]
`
	_, err := Load(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	inst, err := Load(strings.NewReader(blocksYAML))
	require.NoError(t, err)

	data, err := json.Marshal(inst.Document())
	require.NoError(t, err)

	back, err := Load(strings.NewReader(string(data)))
	require.NoError(t, err)

	if diff := cmp.Diff(inst.Document(), back.Document()); diff != "" {
		t.Errorf("document mismatch after JSON round trip (-want +got):\n%s", diff)
	}
}

func TestChanges(t *testing.T) {
	inst, err := NewInstance(cycle(t, 3), 0, []int{2},
		[]Valuation{Ints("n_count", 2, 2, 0), Bools("b_done", false, false, true), Bools("b_open", true, false, false)},
		WithDisplayNames(map[string]string{"b_open": "open"}))
	require.NoError(t, err)

	assert.Equal(t, "-open", inst.Changes(0, 1))
	assert.Equal(t, "+b_done, n_count 2→0", inst.Changes(1, 2))
	assert.Equal(t, "-b_done, +open, n_count 0→2", inst.Changes(2, 0))
	assert.Empty(t, inst.Changes(1, 1))
}
