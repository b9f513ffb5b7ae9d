package compare

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"combokit/internal/fingerprint"
	"combokit/pkg/contract"
	rmem "combokit/plugins/reader/memory"
	wmem "combokit/plugins/writer/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func compare(t *testing.T, c *Comparer, main string, refs ...string) ([]string, Result) {
	t.Helper()
	store := wmem.NewStore(nil)
	sink, err := store.Open("out")
	require.NoError(t, err)
	res, err := c.Compare(context.Background(), main, refs, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	got, _ := store.Lines("out")
	return got, res
}

// 参照文件的处理顺序不影响结果。
func TestCommutative(t *testing.T) {
	src := rmem.New(map[string][]string{
		"main": {"x", "y", "z"},
		"f1":   {"y"},
		"f2":   {"z"},
	})
	for _, refs := range [][]string{{"f1", "f2"}, {"f2", "f1"}} {
		for _, files := range []int{1, 2} {
			c := &Comparer{Src: src, Files: files, Scan: fingerprint.ScanOptions{Workers: 2, Chunk: 1}}
			got, res := compare(t, c, "main", refs...)
			assert.Equal(t, []string{"x"}, got)
			assert.Equal(t, Result{MainLines: 3, Unique: 3, Survivors: 1, RefFiles: 2, RefLines: 2}, res)
		}
	}
}

// 主文件内部重复的幸存内容只输出一次。
func TestInternalDuplicateCap(t *testing.T) {
	src := rmem.New(map[string][]string{
		"main": {"x", "x", "y"},
		"ref":  {"y"},
	})
	got, res := compare(t, &Comparer{Src: src}, "main", "ref")
	assert.Equal(t, []string{"x"}, got)
	assert.Equal(t, 1, res.Survivors)
	assert.Equal(t, 2, res.Unique)
}

func TestPreservesOrder(t *testing.T) {
	src := rmem.New(map[string][]string{
		"main": {"d", "a", "c", "b", "e"},
		"ref":  {"c", "zz"},
	})
	got, _ := compare(t, &Comparer{Src: src}, "main", "ref")
	assert.Equal(t, []string{"d", "a", "b", "e"}, got)
}

// 无幸存行时不创建目标；主文件不被重读。
func TestNoSurvivors(t *testing.T) {
	src := rmem.New(map[string][]string{
		"main": {"a", "b"},
		"ref":  {"b", "a"},
	})
	store := wmem.NewStore(nil)
	sink, _ := store.Open("out")
	res, err := (&Comparer{Src: src}).Compare(context.Background(), "main", []string{"ref"}, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, 0, res.Survivors)
	assert.Empty(t, store.Paths())
	assert.Equal(t, 1, src.Reads("main"))
}

// 不可读的参照文件被报告并跳过。
func TestUnreadableReference(t *testing.T) {
	src := rmem.New(map[string][]string{
		"main": {"a", "b"},
		"ref":  {"b"},
	})
	var mu sync.Mutex
	var skipped []string
	c := &Comparer{Src: src, OnRef: func(path string, lines int, err error) {
		if err != nil {
			mu.Lock()
			skipped = append(skipped, path)
			mu.Unlock()
			assert.ErrorIs(t, err, contract.ErrSourceUnreadable)
		}
	}}
	got, res := compare(t, c, "main", "ref", "gone")
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, []string{"gone"}, skipped)
	assert.Equal(t, 1, res.RefSkipped)
	assert.Equal(t, 1, res.RefFiles)
}

func TestMainUnreadable(t *testing.T) {
	src := rmem.New(map[string][]string{"ref": {"b"}})
	store := wmem.NewStore(nil)
	sink, _ := store.Open("out")
	_, err := (&Comparer{Src: src}).Compare(context.Background(), "main", []string{"ref"}, sink)
	assert.ErrorIs(t, err, contract.ErrSourceUnreadable)
}

func TestNoReference(t *testing.T) {
	src := rmem.New(map[string][]string{"main": {"a"}})
	store := wmem.NewStore(nil)
	sink, _ := store.Open("out")
	_, err := (&Comparer{Src: src}).Compare(context.Background(), "main", nil, sink)
	assert.ErrorIs(t, err, ErrNoReference)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
