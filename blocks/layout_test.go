package blocks_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/blobtree/blocks"
)

func TestLayoutGeometry(t *testing.T) {
	requireT := require.New(t)

	layout, err := blocks.NewLayout(1024)
	requireT.NoError(err)

	requireT.EqualValues(1024, layout.BlockSizeBytes)
	requireT.EqualValues(1024-blocks.NodeHeaderSize, layout.MaxBytesPerLeaf())
	requireT.EqualValues((1024-blocks.NodeHeaderSize)/blocks.IDSize, layout.MaxChildrenPerInnerNode())

	// A usable tree must be able to branch.
	requireT.GreaterOrEqual(layout.MaxChildrenPerInnerNode(), uint32(2))
}

func TestLayoutRejectsTooSmallBlockSize(t *testing.T) {
	requireT := require.New(t)

	// The smallest supported block size holds the header and two child IDs.
	layout, err := blocks.NewLayout(blocks.MinBlockSize)
	requireT.NoError(err)
	requireT.EqualValues(2, layout.MaxChildrenPerInnerNode())

	for _, size := range []uint32{0, 1, blocks.NodeHeaderSize, blocks.MinBlockSize - 1} {
		_, err := blocks.NewLayout(size)
		requireT.ErrorIs(err, blocks.ErrBlockSizeTooSmall)
	}
}
