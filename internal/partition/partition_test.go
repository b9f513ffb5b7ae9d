package partition

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"combokit/pkg/contract"
	rmem "combokit/plugins/reader/memory"
	wmem "combokit/plugins/writer/memory"
)

func sizes(plan []Range) []int {
	out := make([]int, len(plan))
	for i, r := range plan {
		out[i] = r.Len()
	}
	return out
}

func TestByLines(t *testing.T) {
	cases := []struct {
		n, l int
		want []int
	}{
		{10, 3, []int{3, 3, 3, 1}},
		{9, 3, []int{3, 3, 3}},
		{2, 5, []int{2}},
		{1, 1, []int{1}},
		{0, 3, []int{}},
	}
	for _, tc := range cases {
		plan, err := ByLines(tc.n, tc.l)
		require.NoError(t, err)
		assert.Equal(t, tc.want, sizes(plan), "n=%d l=%d", tc.n, tc.l)
		assert.Equal(t, tc.n, Total(plan))
	}
}

func TestByParts(t *testing.T) {
	cases := []struct {
		n, p int
		want []int
	}{
		{10, 20, []int{10}},
		{10, 3, []int{3, 3, 4}},
		{10, 4, []int{2, 2, 2, 4}},
		{10, 5, []int{2, 2, 2, 2, 2}},
		{7, 7, []int{1, 1, 1, 1, 1, 1, 1}},
		{11, 2, []int{5, 6}},
		{0, 4, []int{}},
	}
	for _, tc := range cases {
		plan, err := ByParts(tc.n, tc.p)
		require.NoError(t, err)
		assert.Equal(t, tc.want, sizes(plan), "n=%d p=%d", tc.n, tc.p)
		for i, r := range plan {
			assert.Equal(t, i+1, r.Index)
		}
	}
}

func TestPlanInvalid(t *testing.T) {
	_, err := Plan(PerPart, 10, 0)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Plan(Parts, 10, -1)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = ByLines(-1, 2)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

// 相邻分片首尾相接，覆盖全部行恰好一次。
func TestPlanContiguous(t *testing.T) {
	for n := 0; n < 40; n++ {
		for k := 1; k < 12; k++ {
			for _, mode := range []Mode{PerPart, Parts} {
				plan, err := Plan(mode, n, k)
				require.NoError(t, err)
				next := 0
				for _, r := range plan {
					require.Equal(t, next, r.From)
					require.Greater(t, r.Len(), 0)
					next = r.To
				}
				require.Equal(t, n, next)
			}
		}
	}
}

func split(t *testing.T, lines []string, plan []Range, capacity int) (*wmem.Store, []int) {
	t.Helper()
	src := rmem.New(map[string][]string{"in": lines})
	store := wmem.NewStore(nil)
	sp := &Splitter{
		Capacity: capacity,
		Open: func(r Range) (contract.Sink, error) {
			return store.Open(fmt.Sprintf("part_%d", r.Index))
		},
	}
	counts, err := sp.Split(context.Background(), src, "in", plan)
	require.NoError(t, err)
	return store, counts
}

// 分片拼接后与原序列完全一致，任意批容量下均成立。
func TestSplitExact(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = fmt.Sprintf("l%d", i)
	}
	plan, _ := ByLines(10, 3)
	for _, capacity := range []int{1, 2, 3, 4, 7, 100} {
		store, counts := split(t, lines, plan, capacity)
		assert.Equal(t, []int{3, 3, 3, 1}, counts, "capacity=%d", capacity)
		var joined []string
		for i := 1; i <= len(plan); i++ {
			part, ok := store.Lines(fmt.Sprintf("part_%d", i))
			require.True(t, ok)
			joined = append(joined, part...)
		}
		if diff := cmp.Diff(lines, joined); diff != "" {
			t.Fatalf("capacity=%d (-want +got):\n%s", capacity, diff)
		}
	}
}

func TestSplitByPartsSingle(t *testing.T) {
	lines := strings.Split("a b c d e f g h i j", " ")
	plan, _ := ByParts(len(lines), 20)
	store, counts := split(t, lines, plan, 4)
	assert.Equal(t, []int{10}, counts)
	got, _ := store.Lines("part_1")
	assert.Equal(t, lines, got)
	assert.Equal(t, []string{"part_1"}, store.Paths())
}

// 源文件行数多于计划（计数后文件被追加）时报告不变量错误。
func TestSplitMoreThanPlanned(t *testing.T) {
	src := rmem.New(map[string][]string{"in": {"a", "b", "c"}})
	store := wmem.NewStore(nil)
	plan, _ := ByLines(2, 1)
	sp := &Splitter{Capacity: 10, Open: func(r Range) (contract.Sink, error) {
		return store.Open(fmt.Sprint(r.Index))
	}}
	_, err := sp.Split(context.Background(), src, "in", plan)
	assert.ErrorIs(t, err, contract.ErrInvariant)
}

func TestSplitFewerThanPlanned(t *testing.T) {
	src := rmem.New(map[string][]string{"in": {"a"}})
	store := wmem.NewStore(nil)
	plan, _ := ByLines(3, 2)
	sp := &Splitter{Open: func(r Range) (contract.Sink, error) { return store.Open(fmt.Sprint(r.Index)) }}
	counts, err := sp.Split(context.Background(), src, "in", plan)
	assert.ErrorIs(t, err, contract.ErrInvariant)
	assert.Equal(t, []int{1, 0}, counts)
}

// 分片目标已存在时中止。
func TestSplitDestinationExists(t *testing.T) {
	src := rmem.New(map[string][]string{"in": {"a", "b", "c"}})
	store := wmem.NewStore(&wmem.Options{Existing: []string{"2"}})
	plan, _ := ByLines(3, 2)
	sp := &Splitter{Capacity: 1, Open: func(r Range) (contract.Sink, error) { return store.Open(fmt.Sprint(r.Index)) }}
	_, err := sp.Split(context.Background(), src, "in", plan)
	assert.ErrorIs(t, err, contract.ErrDestinationExists)
	got, _ := store.Lines("1")
	assert.Equal(t, []string{"a", "b"}, got)
}
