package nodestore

import (
	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

// Node is a data node stored in one block, either a *LeafNode or an
// *InnerNode. The concrete kind is resolved from the persisted type tag when
// the block is loaded; call sites dispatch with a type switch.
type Node interface {
	// BlockID returns the ID of the block backing the node.
	BlockID() blocks.ID

	// Depth returns the distance of the node from the leaf level.
	// Leaves are at depth 0.
	Depth() uint8

	raw() *blockstore.Block
}
