package nodestore

import (
	"github.com/outofforest/photon"
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

var _ Node = &LeafNode{}

// LeafNode is a node at depth 0 holding a contiguous run of blob bytes.
// Every mutation is persisted to the backing block before the call returns.
type LeafNode struct {
	store *Store
	block *blockstore.Block
}

// BlockID returns the ID of the block backing the node.
func (n *LeafNode) BlockID() blocks.ID {
	return n.block.ID()
}

// Depth returns 0, leaves are always at the leaf level.
func (n *LeafNode) Depth() uint8 {
	return 0
}

// NumBytes returns the number of valid payload bytes stored in the leaf.
func (n *LeafNode) NumBytes() uint32 {
	return photon.NewFromBytes[blocks.NodeHeader](n.block.Data()).V.Size
}

// MaxBytesPerLeaf returns the payload capacity of the leaf.
func (n *LeafNode) MaxBytesPerLeaf() uint32 {
	return n.store.layout.MaxBytesPerLeaf()
}

// Resize sets the number of valid payload bytes. Shrinking zero-fills the
// newly unused region, so growing later exposes zeroed bytes.
func (n *LeafNode) Resize(newNumBytes uint32) error {
	if newNumBytes > n.MaxBytesPerLeaf() {
		return errors.Wrapf(ErrOutOfBounds, "cannot resize leaf %s to %d bytes, maximum is %d",
			n.BlockID(), newNumBytes, n.MaxBytesPerLeaf())
	}

	header := photon.NewFromBytes[blocks.NodeHeader](n.block.Data())
	if oldNumBytes := header.V.Size; newNumBytes < oldNumBytes {
		payload := n.block.Data()[blocks.NodeHeaderSize:]
		clear(payload[newNumBytes:oldNumBytes])
	}
	header.V.Size = newNumBytes

	return n.block.Flush()
}

// Read returns a copy of length payload bytes starting at the given offset.
func (n *LeafNode) Read(offset, length uint32) ([]byte, error) {
	numBytes := n.NumBytes()
	if offset > numBytes || length > numBytes-offset {
		return nil, errors.Wrapf(ErrOutOfBounds, "cannot read %d bytes at offset %d from leaf %s storing %d bytes",
			length, offset, n.BlockID(), numBytes)
	}

	p := make([]byte, length)
	copy(p, n.block.Data()[blocks.NodeHeaderSize+offset:])
	return p, nil
}

// Write stores data at the given offset. The write must fit into the current
// size of the leaf, it never grows the leaf implicitly.
func (n *LeafNode) Write(offset uint32, data []byte) error {
	numBytes := n.NumBytes()
	if offset > numBytes || uint32(len(data)) > numBytes-offset {
		return errors.Wrapf(ErrOutOfBounds, "cannot write %d bytes at offset %d to leaf %s storing %d bytes",
			len(data), offset, n.BlockID(), numBytes)
	}

	copy(n.block.Data()[blocks.NodeHeaderSize+offset:], data)
	return n.block.Flush()
}

func (n *LeafNode) raw() *blockstore.Block {
	return n.block
}

// serializeLeafNode fills buf with the on-block representation of a leaf node.
// len(buf) must equal the block size and data must fit the leaf capacity.
func serializeLeafNode(buf, data []byte) {
	header := photon.NewFromBytes[blocks.NodeHeader](buf)
	header.V.Type = blocks.LeafNodeType
	header.V.Depth = 0
	header.V.Size = uint32(len(data))
	copy(buf[blocks.NodeHeaderSize:], data)
}
