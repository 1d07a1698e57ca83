package nodestore

import (
	"github.com/outofforest/photon"
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

// Store creates, loads and removes data nodes. It is the sole mediator
// between node operations and the block storage service: nodes reach the
// service only through facilities the store supplies. All nodes managed by
// one store share one layout; mixing blocks written by stores with different
// block sizes is unsupported.
type Store struct {
	blockStore blockstore.Store
	layout     blocks.Layout
}

// New returns new node store on top of the given block store.
func New(blockStore blockstore.Store) (*Store, error) {
	layout, err := blocks.NewLayout(blockStore.BlockSizeBytes())
	if err != nil {
		return nil, err
	}
	return &Store{
		blockStore: blockStore,
		layout:     layout,
	}, nil
}

// Layout returns the node geometry shared by all nodes of the store.
func (s *Store) Layout() blocks.Layout {
	return s.layout
}

// CreateNewLeafNode allocates a new block initialized as a leaf node storing data.
func (s *Store) CreateNewLeafNode(data []byte) (*LeafNode, error) {
	if uint32(len(data)) > s.layout.MaxBytesPerLeaf() {
		return nil, errors.Wrapf(ErrInvalidArgument, "leaf data of %d bytes exceeds the maximum of %d",
			len(data), s.layout.MaxBytesPerLeaf())
	}

	buf := make([]byte, s.layout.BlockSizeBytes)
	serializeLeafNode(buf, data)

	block, err := s.blockStore.Create(buf)
	if err != nil {
		return nil, err
	}
	return &LeafNode{store: s, block: block}, nil
}

// CreateNewInnerNode allocates a new block initialized as an inner node at
// the given depth storing the given children. Each child must be a node of
// depth depth-1; this is not checked at runtime.
func (s *Store) CreateNewInnerNode(depth uint8, children []blocks.ID) (*InnerNode, error) {
	switch {
	case depth == 0:
		return nil, errors.Wrap(ErrInvalidArgument, "inner node cannot be created at depth 0")
	case len(children) == 0:
		return nil, errors.Wrap(ErrInvalidArgument, "inner node cannot be created without children")
	case uint32(len(children)) > s.layout.MaxChildrenPerInnerNode():
		return nil, errors.Wrapf(ErrInvalidArgument, "%d children exceed the maximum of %d",
			len(children), s.layout.MaxChildrenPerInnerNode())
	}

	buf := make([]byte, s.layout.BlockSizeBytes)
	serializeInnerNode(buf, depth, children)

	block, err := s.blockStore.Create(buf)
	if err != nil {
		return nil, err
	}
	return &InnerNode{store: s, block: block}, nil
}

// Load loads the block stored under the given ID and resolves it to the
// matching node kind based on the persisted type tag. Absence of the block is
// not an error, it is reported by the second return value. A block which does
// not contain a valid node fails with ErrInvalidNodeFormat.
func (s *Store) Load(id blocks.ID) (Node, bool, error) {
	block, exists, err := s.blockStore.Load(id)
	if err != nil || !exists {
		return nil, false, err
	}

	node, err := s.nodeFromBlock(block)
	if err != nil {
		return nil, false, err
	}
	return node, true, nil
}

// CreateNewNodeAsCopyFrom allocates a new block holding an exact copy of the
// on-block representation of the source node. For inner nodes the child ID
// list is copied by value, children are shared between the copy and the
// original until one of them structurally diverges. Deep copy-on-write of a
// subtree is a tree-level operation layered above this primitive.
func (s *Store) CreateNewNodeAsCopyFrom(source Node) (Node, error) {
	buf := make([]byte, s.layout.BlockSizeBytes)
	copy(buf, source.raw().Data())

	block, err := s.blockStore.Create(buf)
	if err != nil {
		return nil, err
	}
	return s.nodeFromBlock(block)
}

// ConvertToNewInnerNode grows the tree height at the node's position: the
// node's content is relocated to a new block, then the original block is
// rewritten as an inner node of depth+1 whose children are the relocated copy
// and firstNewChild. The relocated copy is persisted before the original
// block starts referencing it, so a crash in between leaves only an orphaned
// block behind. The input handle is consumed and must not be used afterwards;
// the returned node operates on the same block ID, reinterpreted as inner.
// firstNewChild must be a node of the same depth the input node had.
func (s *Store) ConvertToNewInnerNode(node Node, firstNewChild Node) (*InnerNode, error) {
	relocated, err := s.CreateNewNodeAsCopyFrom(node)
	if err != nil {
		return nil, err
	}

	block := node.raw()
	buf := block.Data()
	clear(buf)
	serializeInnerNode(buf, node.Depth()+1, []blocks.ID{relocated.BlockID(), firstNewChild.BlockID()})
	if err := block.Flush(); err != nil {
		return nil, err
	}

	return &InnerNode{store: s, block: block}, nil
}

// OverwriteNodeWith rewrites the block stored under targetID with a copy of
// the source node's content, returning the node handle for the target ID.
// Any previously loaded handle to the target block is invalidated.
func (s *Store) OverwriteNodeWith(targetID blocks.ID, source Node) (Node, error) {
	buf := make([]byte, s.layout.BlockSizeBytes)
	copy(buf, source.raw().Data())

	if err := s.blockStore.Write(targetID, buf); err != nil {
		return nil, err
	}
	return s.nodeFromBlock(blockstore.NewBlock(s.blockStore, targetID, buf))
}

// Remove deletes the node's block. The handle must not be used afterwards.
func (s *Store) Remove(node Node) error {
	return s.RemoveByID(node.BlockID())
}

// RemoveByID deletes the block stored under the given ID.
func (s *Store) RemoveByID(id blocks.ID) error {
	return s.blockStore.Remove(id)
}

// NumNodes returns the number of nodes in the store.
func (s *Store) NumNodes() (uint64, error) {
	return s.blockStore.NumBlocks()
}

func (s *Store) nodeFromBlock(block *blockstore.Block) (Node, error) {
	header := photon.NewFromBytes[blocks.NodeHeader](block.Data())
	switch header.V.Type {
	case blocks.LeafNodeType:
		if header.V.Depth != 0 {
			return nil, errors.Wrapf(ErrInvalidNodeFormat, "block %s: leaf node with depth %d",
				block.ID(), header.V.Depth)
		}
		if header.V.Size > s.layout.MaxBytesPerLeaf() {
			return nil, errors.Wrapf(ErrInvalidNodeFormat, "block %s: leaf node claims %d bytes, maximum is %d",
				block.ID(), header.V.Size, s.layout.MaxBytesPerLeaf())
		}
		return &LeafNode{store: s, block: block}, nil
	case blocks.InnerNodeType:
		if header.V.Depth == 0 {
			return nil, errors.Wrapf(ErrInvalidNodeFormat, "block %s: inner node with depth 0", block.ID())
		}
		if header.V.Size > s.layout.MaxChildrenPerInnerNode() {
			return nil, errors.Wrapf(ErrInvalidNodeFormat, "block %s: inner node claims %d children, maximum is %d",
				block.ID(), header.V.Size, s.layout.MaxChildrenPerInnerNode())
		}
		return &InnerNode{store: s, block: block}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidNodeFormat, "block %s: unknown node type tag %d",
			block.ID(), header.V.Type)
	}
}
