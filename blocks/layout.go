package blocks

import (
	"github.com/pkg/errors"
)

// MinBlockSize is the minimum supported block size. A block must fit the node
// header and at least two child IDs, otherwise the tree cannot branch.
const MinBlockSize = NodeHeaderSize + 2*IDSize

// ErrBlockSizeTooSmall is returned if the configured block size cannot hold a usable node.
var ErrBlockSizeTooSmall = errors.New("block size too small")

// Layout describes the geometry of node blocks of a configured size.
// It is pure derived data, computed once and shared by all nodes of one store.
type Layout struct {
	BlockSizeBytes uint32
}

// NewLayout computes the layout for the given block size.
func NewLayout(blockSizeBytes uint32) (Layout, error) {
	if blockSizeBytes < MinBlockSize {
		return Layout{}, errors.Wrapf(ErrBlockSizeTooSmall, "minimum block size is %d bytes, provided: %d",
			MinBlockSize, blockSizeBytes)
	}
	return Layout{BlockSizeBytes: blockSizeBytes}, nil
}

// MaxBytesPerLeaf returns the maximum number of payload bytes a leaf node may store.
func (l Layout) MaxBytesPerLeaf() uint32 {
	return l.BlockSizeBytes - NodeHeaderSize
}

// MaxChildrenPerInnerNode returns the maximum number of child IDs an inner node may store.
func (l Layout) MaxChildrenPerInnerNode() uint32 {
	return (l.BlockSizeBytes - NodeHeaderSize) / IDSize
}
