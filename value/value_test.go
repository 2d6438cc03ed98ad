package value_test

import (
	"testing"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticPromotion(t *testing.T) {
	sum, err := value.Add(value.Int(2), value.Int(3))
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), sum)

	mixed, err := value.Add(value.Int(2), value.Float(0.5))
	require.NoError(t, err)
	assert.Equal(t, value.Float(2.5), mixed)

	_, err = value.Add(value.Nil(), value.Int(1))
	require.Error(t, err)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.TypeMismatch, rt.Kind)
}

func TestDivideByZero(t *testing.T) {
	_, err := value.Div(value.Int(1), value.Int(0))
	require.Error(t, err)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.DivideByZero, rt.Kind)

	q, err := value.Div(value.Float(1), value.Int(4))
	require.NoError(t, err)
	assert.Equal(t, value.Float(0.25), q)
}

func TestBooleanOps(t *testing.T) {
	and, err := value.And(value.Int(1), value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, value.Int(0), and)

	or, err := value.Or(value.Int(0), value.Int(1))
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), or)

	not, err := value.Not(value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), not)
}

func TestEqualAndLess(t *testing.T) {
	arena := value.NewArena(0)
	a, err := arena.NewString("abc")
	require.NoError(t, err)
	b, err := arena.NewString("abd")
	require.NoError(t, err)

	assert.True(t, value.Equal(value.Int(1), value.Float(1), arena))
	assert.False(t, value.Equal(a, b, arena))

	less, err := value.Less(a, b, arena)
	require.NoError(t, err)
	assert.True(t, less)

	_, err = value.Less(a, value.Int(1), arena)
	require.Error(t, err)
}

func TestTableSetGetAppendOrdering(t *testing.T) {
	arena := value.NewArena(0)
	tv, ref, err := arena.NewTable()
	require.NoError(t, err)
	assert.Equal(t, value.KindTable, tv.Kind())

	tbl := arena.Table(ref)
	require.NoError(t, tbl.Set(value.StringKey("x"), value.Int(1), arena))
	require.NoError(t, tbl.Append(value.Int(10), arena))
	require.NoError(t, tbl.Append(value.Int(20), arena))

	assert.Equal(t, value.Int(1), tbl.Get(value.StringKey("x")))
	assert.Equal(t, value.Int(10), tbl.Get(value.IntKey(0)))
	assert.Equal(t, value.Int(20), tbl.Get(value.IntKey(1)))
	assert.True(t, tbl.Get(value.StringKey("missing")).IsNil())
	assert.Equal(t, 3, tbl.Len())
}

func TestTableCycleRejected(t *testing.T) {
	arena := value.NewArena(0)
	outerVal, outerRef, err := arena.NewTable()
	require.NoError(t, err)
	innerVal, innerRef, err := arena.NewTable()
	require.NoError(t, err)

	outer := arena.Table(outerRef)
	inner := arena.Table(innerRef)

	require.NoError(t, outer.Set(value.StringKey("child"), innerVal, arena))

	// inner -> outer would close a cycle (outer already reaches inner)
	err = inner.Set(value.StringKey("parent"), outerVal, arena)
	require.Error(t, err)

	// a table cannot directly contain itself either
	err = outer.Set(value.StringKey("self"), outerVal, arena)
	require.Error(t, err)
}

func TestArenaExhaustion(t *testing.T) {
	arena := value.NewArena(1)
	_, err := arena.NewString("one")
	require.NoError(t, err)

	_, err = arena.NewString("two")
	require.Error(t, err)
	var rt *caoerr.Runtime
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, caoerr.ObjectArenaExhausted, rt.Kind)
}

func TestArenaReleaseReusesSlot(t *testing.T) {
	arena := value.NewArena(1)
	s, err := arena.NewString("one")
	require.NoError(t, err)
	arena.Release(s.Ref())

	_, err = arena.NewString("two")
	require.NoError(t, err)
	assert.Equal(t, 1, arena.Len())
}
