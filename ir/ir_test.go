package ir_test

import (
	"testing"

	"github.com/cao-lang/cao-lang-go/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleSubmoduleLifecycle(t *testing.T) {
	root := ir.NewModule("")
	child := ir.NewModule("physics")

	require.NoError(t, root.InsertSubmodule(child))
	require.Error(t, root.InsertSubmodule(ir.NewModule("physics")))

	got, err := root.Submodule("physics")
	require.NoError(t, err)
	assert.Same(t, child, got)

	removed, err := root.RemoveSubmodule("physics")
	require.NoError(t, err)
	assert.Same(t, child, removed)

	_, err = root.Submodule("physics")
	assert.Error(t, err)
}

func TestModuleRejectsSuperAsSubmoduleName(t *testing.T) {
	root := ir.NewModule("")
	err := root.InsertSubmodule(ir.NewModule(ir.Reserved))
	require.Error(t, err)
}

func TestFunctionNameCollision(t *testing.T) {
	m := ir.NewModule("")
	require.NoError(t, m.InsertFunction(ir.NewFunction("main")))
	err := m.InsertFunction(ir.NewFunction("main"))
	var collision ir.NameCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "main", collision.Name)
}

func TestCardIndexGetReplaceInsertRemove(t *testing.T) {
	fn := ir.NewFunction("main")
	fn.Cards = []ir.Card{
		ir.LoadInt{Value: 1},
		ir.IfElse{
			Then: ir.Composite{Tag: "then", Items: []ir.Card{ir.LoadInt{Value: 2}}},
			Else: ir.Composite{Tag: "else", Items: []ir.Card{ir.LoadInt{Value: 3}}},
		},
		ir.Return{},
	}

	// get into the "then" branch's sole child
	idx := ir.NewCardIndex("main", 1).WithSubIndex(0).WithSubIndex(0)
	c, err := ir.GetCard(fn, idx)
	require.NoError(t, err)
	assert.Equal(t, ir.LoadInt{Value: 2}, c)

	// replace it
	old, err := ir.ReplaceCard(fn, idx, ir.LoadInt{Value: 20})
	require.NoError(t, err)
	assert.Equal(t, ir.LoadInt{Value: 2}, old)

	c, err = ir.GetCard(fn, idx)
	require.NoError(t, err)
	assert.Equal(t, ir.LoadInt{Value: 20}, c)

	// insert a sibling into the composite "then" block
	require.NoError(t, ir.InsertCard(fn, idx, ir.Pop{}))
	thenBlock, err := ir.GetCard(fn, ir.NewCardIndex("main", 1).WithSubIndex(0))
	require.NoError(t, err)
	assert.Equal(t, []ir.Card{ir.Pop{}, ir.LoadInt{Value: 20}}, thenBlock.(ir.Composite).Items)

	// remove it back out
	removed, err := ir.RemoveCard(fn, ir.NewCardIndex("main", 1).WithSubIndex(0).WithSubIndex(0))
	require.NoError(t, err)
	assert.Equal(t, ir.Pop{}, removed)

	// inserting into a fixed-arity container (IfElse itself) is rejected
	err = ir.InsertCard(fn, ir.NewCardIndex("main", 1).WithSubIndex(0), ir.Pop{})
	var invalid ir.InvalidIndexForCardTypeError
	assert.ErrorAs(t, err, &invalid)

	// out of bounds top-level index
	_, err = ir.GetCard(fn, ir.NewCardIndex("main", 99))
	var oob ir.IndexOutOfBoundsError
	assert.ErrorAs(t, err, &oob)
}

func TestCardIndexArithmetic(t *testing.T) {
	idx := ir.NewCardIndex("main", 2).WithSubIndex(1).WithSubIndex(0)
	cur, ok := idx.Current()
	assert.True(t, ok)
	assert.Equal(t, 0, cur)

	popped := idx.Pop()
	cur, ok = popped.Current()
	assert.True(t, ok)
	assert.Equal(t, 1, cur)

	assert.True(t, idx.Equal(ir.CardIndex{Function: "main", Path: []int{2, 1, 0}}))
	assert.Equal(t, "main/2/1/0", idx.Key())
}
