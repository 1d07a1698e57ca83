package blocks_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/outofforest/blobtree/blocks"
)

func TestNodeHeaderSizeIsAligned(t *testing.T) {
	assert.EqualValues(t, 0, blocks.NodeHeaderSize%8)
	assert.GreaterOrEqual(t, uint64(blocks.NodeHeaderSize), uint64(unsafe.Sizeof(blocks.NodeHeader{})))
}

func TestNodeTypeTagsAreStable(t *testing.T) {
	// The tags are persisted to disk, so their values are part of the format.
	assert.EqualValues(t, 0, blocks.InnerNodeType)
	assert.EqualValues(t, 1, blocks.LeafNodeType)
}

func TestRandomIDsDiffer(t *testing.T) {
	assertT := assert.New(t)

	id1 := blocks.NewRandomID()
	id2 := blocks.NewRandomID()

	assertT.NotEqual(id1, id2)
	assertT.Len(id1.String(), 2*blocks.IDSize)
}
