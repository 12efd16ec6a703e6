package runtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFor(chars string) *ObjString {
	return &ObjString{Chars: chars, Hash: fnv1a32(chars)}
}

func TestTableSetGetRoundTrips(t *testing.T) {
	tbl := NewTable()
	key := keyFor("answer")

	isNew := tbl.Set(key, NumberVal(42))
	assert.True(t, isNew)

	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42.0, v.Number)
}

func TestTableSetExistingKeyReturnsFalse(t *testing.T) {
	tbl := NewTable()
	key := keyFor("x")
	tbl.Set(key, NumberVal(1))

	isNew := tbl.Set(key, NumberVal(2))
	assert.False(t, isNew)

	v, _ := tbl.Get(key)
	assert.Equal(t, 2.0, v.Number)
}

func TestTableDeleteLeavesTombstoneThatDoesNotBreakProbing(t *testing.T) {
	tbl := NewTable()
	a := keyFor("a")
	b := keyFor("b")
	tbl.Set(a, NumberVal(1))
	tbl.Set(b, NumberVal(2))

	require.True(t, tbl.Delete(a))

	// b must still resolve after a's slot becomes a tombstone.
	v, ok := tbl.Get(b)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Number)

	_, ok = tbl.Get(a)
	assert.False(t, ok)
}

func TestTableFindStringLocatesInternedContent(t *testing.T) {
	tbl := NewTable()
	key := keyFor("hello")
	tbl.Set(key, NilVal())

	found := tbl.FindString("hello", fnv1a32("hello"))
	require.NotNil(t, found)
	assert.Same(t, key, found)

	assert.Nil(t, tbl.FindString("nope", fnv1a32("nope")))
}

func TestTableGrowsAndPreservesAllEntries(t *testing.T) {
	tbl := NewTable()
	keys := make([]*ObjString, 0, 200)
	for i := 0; i < 200; i++ {
		k := keyFor(fmt.Sprintf("key%d", i))
		keys = append(keys, k)
		tbl.Set(k, NumberVal(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, float64(i), v.Number)
	}
}
