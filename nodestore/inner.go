package nodestore

import (
	"github.com/outofforest/photon"
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

var _ Node = &InnerNode{}

// InnerNode is a node at depth >= 1 holding an ordered sequence of child
// block IDs. Order is significant: it defines the left-to-right position of
// each child subtree in the blob's byte range, and the rightmost child is the
// append point when the blob grows.
type InnerNode struct {
	store *Store
	block *blockstore.Block
}

// BlockID returns the ID of the block backing the node.
func (n *InnerNode) BlockID() blocks.ID {
	return n.block.ID()
}

// Depth returns the distance of the node from the leaf level. It never
// changes for the lifetime of the node as this node kind.
func (n *InnerNode) Depth() uint8 {
	return photon.NewFromBytes[blocks.NodeHeader](n.block.Data()).V.Depth
}

// NumChildren returns the number of children stored in the node.
func (n *InnerNode) NumChildren() uint32 {
	return photon.NewFromBytes[blocks.NodeHeader](n.block.Data()).V.Size
}

// MaxChildren returns the child capacity of the node.
func (n *InnerNode) MaxChildren() uint32 {
	return n.store.layout.MaxChildrenPerInnerNode()
}

// ReadChild returns the block ID of the child at the given index.
func (n *InnerNode) ReadChild(index uint32) (blocks.ID, error) {
	numChildren := n.NumChildren()
	if index >= numChildren {
		return blocks.ID{}, errors.Wrapf(ErrIndexOutOfRange, "child index %d of node %s storing %d children",
			index, n.BlockID(), numChildren)
	}

	var id blocks.ID
	offset := blocks.NodeHeaderSize + index*blocks.IDSize
	copy(id[:], n.block.Data()[offset:])
	return id, nil
}

// AddChild appends the child as the new rightmost entry of the child
// sequence. The child must be a node of depth Depth()-1; this is not checked
// at runtime, depth bookkeeping is owned by the tree-growth algorithm above
// the node store.
func (n *InnerNode) AddChild(child Node) error {
	header := photon.NewFromBytes[blocks.NodeHeader](n.block.Data())
	if header.V.Size == n.MaxChildren() {
		return errors.Wrapf(ErrNodeFull, "node %s already stores %d children", n.BlockID(), header.V.Size)
	}

	childID := child.BlockID()
	offset := blocks.NodeHeaderSize + header.V.Size*blocks.IDSize
	copy(n.block.Data()[offset:], childID[:])
	header.V.Size++

	return n.block.Flush()
}

// RemoveLastChild removes the rightmost entry of the child sequence. The
// removed child block itself is not touched.
func (n *InnerNode) RemoveLastChild() error {
	header := photon.NewFromBytes[blocks.NodeHeader](n.block.Data())
	if header.V.Size == 0 {
		return errors.Wrapf(ErrNodeEmpty, "node %s", n.BlockID())
	}
	header.V.Size--

	return n.block.Flush()
}

// ReadLastChild loads the rightmost child of the node. This is the hot path
// of blob appends, which repeatedly descend last-child links to find the
// current write frontier.
func (n *InnerNode) ReadLastChild() (Node, error) {
	numChildren := n.NumChildren()
	if numChildren == 0 {
		return nil, errors.Wrapf(ErrNodeEmpty, "node %s", n.BlockID())
	}

	childID, err := n.ReadChild(numChildren - 1)
	if err != nil {
		return nil, err
	}

	child, exists, err := n.store.Load(childID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("child block %s referenced by node %s does not exist", childID, n.BlockID())
	}
	return child, nil
}

func (n *InnerNode) raw() *blockstore.Block {
	return n.block
}

// serializeInnerNode fills buf with the on-block representation of an inner
// node. len(buf) must equal the block size and children must fit the node
// capacity.
func serializeInnerNode(buf []byte, depth uint8, children []blocks.ID) {
	header := photon.NewFromBytes[blocks.NodeHeader](buf)
	header.V.Type = blocks.InnerNodeType
	header.V.Depth = depth
	header.V.Size = uint32(len(children))
	for i, childID := range children {
		copy(buf[int(blocks.NodeHeaderSize)+i*blocks.IDSize:], childID[:])
	}
}
