package treestore

import (
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/nodestore"
)

// Tree is one blob tree: a resizable byte sequence mapped onto nodes.
//
// The tree keeps the left-max invariant: every subtree left of the rightmost
// path stores the maximum number of bytes its depth allows. All growth and
// shrinking happens at the right edge, so byte offsets map to tree positions
// by pure arithmetic. New bytes exposed by growth read as zero.
type Tree struct {
	nodes  *nodestore.Store
	rootID blocks.ID
}

// RootID returns the ID of the root node. It stays stable for the lifetime of
// the tree, across any number of height changes.
func (t *Tree) RootID() blocks.ID {
	return t.rootID
}

// NumBytes returns the total number of blob bytes stored in the tree.
func (t *Tree) NumBytes() (uint64, error) {
	node, err := t.loadRoot()
	if err != nil {
		return 0, err
	}

	var numBytes uint64
	for {
		switch n := node.(type) {
		case *nodestore.LeafNode:
			return numBytes + uint64(n.NumBytes()), nil
		case *nodestore.InnerNode:
			numChildren := n.NumChildren()
			if numChildren == 0 {
				return 0, errors.Errorf("inner node %s of tree %s has no children", n.BlockID(), t.rootID)
			}
			numBytes += uint64(numChildren-1) * t.maxBytesPerSubtree(n.Depth()-1)
			node, err = n.ReadLastChild()
			if err != nil {
				return 0, err
			}
		}
	}
}

// Resize grows or shrinks the tree to store exactly newNumBytes bytes.
// Growing appends zeroed bytes at the right edge, adding leaves and tree
// levels as needed; shrinking discards bytes from the right edge, pruning
// emptied nodes and collapsing unneeded levels.
func (t *Tree) Resize(newNumBytes uint64) error {
	numBytes, err := t.NumBytes()
	if err != nil {
		return err
	}
	switch {
	case newNumBytes > numBytes:
		return t.grow(numBytes, newNumBytes)
	case newNumBytes < numBytes:
		return t.shrink(numBytes, newNumBytes)
	default:
		return nil
	}
}

// ReadAt reads len(p) bytes starting at the given blob offset. Reading beyond
// the size of the tree fails.
func (t *Tree) ReadAt(p []byte, offset uint64) error {
	numBytes, err := t.NumBytes()
	if err != nil {
		return err
	}
	if offset > numBytes || uint64(len(p)) > numBytes-offset {
		return errors.Wrapf(nodestore.ErrOutOfBounds, "cannot read %d bytes at offset %d from tree %s storing %d bytes",
			len(p), offset, t.rootID, numBytes)
	}
	return t.readAt(p, offset)
}

// ReadAtPadded reads like ReadAt but zero-pads the part of p which reaches
// beyond the size of the tree instead of failing.
func (t *Tree) ReadAtPadded(p []byte, offset uint64) error {
	numBytes, err := t.NumBytes()
	if err != nil {
		return err
	}
	if offset >= numBytes {
		clear(p)
		return nil
	}
	n := min(uint64(len(p)), numBytes-offset)
	if err := t.readAt(p[:n], offset); err != nil {
		return err
	}
	clear(p[n:])
	return nil
}

// WriteAt writes p at the given blob offset, growing the tree first if the
// write reaches beyond its current size.
func (t *Tree) WriteAt(p []byte, offset uint64) error {
	if len(p) == 0 {
		return nil
	}

	numBytes, err := t.NumBytes()
	if err != nil {
		return err
	}
	if end := offset + uint64(len(p)); end > numBytes {
		if err := t.grow(numBytes, end); err != nil {
			return err
		}
	}

	for len(p) > 0 {
		leaf, offsetInLeaf, err := t.leafAt(offset)
		if err != nil {
			return err
		}
		n := min(uint64(len(p)), uint64(leaf.NumBytes())-offsetInLeaf)
		if err := leaf.Write(uint32(offsetInLeaf), p[:n]); err != nil {
			return err
		}
		p = p[n:]
		offset += n
	}
	return nil
}

func (t *Tree) readAt(p []byte, offset uint64) error {
	for len(p) > 0 {
		leaf, offsetInLeaf, err := t.leafAt(offset)
		if err != nil {
			return err
		}
		n := min(uint64(len(p)), uint64(leaf.NumBytes())-offsetInLeaf)
		read, err := leaf.Read(uint32(offsetInLeaf), uint32(n))
		if err != nil {
			return err
		}
		copy(p, read)
		p = p[n:]
		offset += n
	}
	return nil
}

// leafAt descends to the leaf storing the given blob offset, relying on the
// left-max invariant: the child index at each level is the offset divided by
// the byte capacity of one subtree below that level.
func (t *Tree) leafAt(offset uint64) (*nodestore.LeafNode, uint64, error) {
	node, err := t.loadRoot()
	if err != nil {
		return nil, 0, err
	}
	for {
		switch n := node.(type) {
		case *nodestore.LeafNode:
			return n, offset, nil
		case *nodestore.InnerNode:
			subtreeBytes := t.maxBytesPerSubtree(n.Depth() - 1)
			index := offset / subtreeBytes
			childID, err := n.ReadChild(uint32(index))
			if err != nil {
				return nil, 0, err
			}
			child, exists, err := t.nodes.Load(childID)
			if err != nil {
				return nil, 0, err
			}
			if !exists {
				return nil, 0, errors.Errorf("child block %s referenced by node %s does not exist",
					childID, n.BlockID())
			}
			node = child
			offset -= index * subtreeBytes
		}
	}
}

func (t *Tree) grow(numBytes, newNumBytes uint64) error {
	maxBytesPerLeaf := uint64(t.nodes.Layout().MaxBytesPerLeaf())
	for numBytes < newNumBytes {
		leaf, err := t.rightmostLeaf()
		if err != nil {
			return err
		}

		need := newNumBytes - numBytes

		// First fill the free capacity of the current rightmost leaf.
		if free := maxBytesPerLeaf - uint64(leaf.NumBytes()); free > 0 {
			grown := min(need, free)
			if err := leaf.Resize(leaf.NumBytes() + uint32(grown)); err != nil {
				return err
			}
			numBytes += grown
			continue
		}

		// The rightmost leaf is full: append a new one at the right edge.
		newLeafBytes := min(need, maxBytesPerLeaf)
		newLeaf, err := t.nodes.CreateNewLeafNode(nil)
		if err != nil {
			return err
		}
		if err := newLeaf.Resize(uint32(newLeafBytes)); err != nil {
			return err
		}
		if err := t.appendLeaf(newLeaf); err != nil {
			return err
		}
		numBytes += newLeafBytes
	}
	return nil
}

// appendLeaf links an already persisted leaf as the new rightmost leaf of the
// tree. The leaf block exists before any parent references it, so a crash in
// the middle leaves only orphaned blocks behind, never dangling references.
func (t *Tree) appendLeaf(leaf *nodestore.LeafNode) error {
	root, path, err := t.rightmostPath()
	if err != nil {
		return err
	}

	// Attach under the deepest ancestor on the rightmost path which still has
	// room, wrapping the leaf in a chain of single-child inner nodes down to
	// the level below the ancestor.
	maxChildren := t.nodes.Layout().MaxChildrenPerInnerNode()
	for i := len(path) - 1; i >= 0; i-- {
		inner := path[i]
		if inner.NumChildren() < maxChildren {
			subtree, err := t.chainToDepth(leaf, inner.Depth()-1)
			if err != nil {
				return err
			}
			return inner.AddChild(subtree)
		}
	}

	// Everything up to the root is full: grow the tree height by one. The new
	// sibling subtree sits at the depth the current root has.
	subtree, err := t.chainToDepth(leaf, root.Depth())
	if err != nil {
		return err
	}
	_, err = t.nodes.ConvertToNewInnerNode(root, subtree)
	return err
}

// chainToDepth wraps the leaf in single-child inner nodes until the resulting
// subtree has the given depth. Every node of the chain is persisted before its
// parent references it.
func (t *Tree) chainToDepth(leaf *nodestore.LeafNode, depth uint8) (nodestore.Node, error) {
	var node nodestore.Node = leaf
	for d := uint8(1); d <= depth; d++ {
		inner, err := t.nodes.CreateNewInnerNode(d, []blocks.ID{node.BlockID()})
		if err != nil {
			return nil, err
		}
		node = inner
	}
	return node, nil
}

func (t *Tree) shrink(numBytes, newNumBytes uint64) error {
	for numBytes > newNumBytes {
		leaf, err := t.rightmostLeaf()
		if err != nil {
			return err
		}

		leafBytes := uint64(leaf.NumBytes())
		excess := numBytes - newNumBytes
		switch {
		case excess < leafBytes:
			if err := leaf.Resize(uint32(leafBytes - excess)); err != nil {
				return err
			}
			numBytes = newNumBytes
		case numBytes == leafBytes:
			// This is the only leaf left, it shrinks to zero instead of being
			// removed.
			if err := leaf.Resize(0); err != nil {
				return err
			}
			numBytes = 0
		default:
			if err := t.removeLastLeaf(); err != nil {
				return err
			}
			numBytes -= leafBytes
		}
	}
	return t.collapseRoot()
}

// removeLastLeaf unlinks and removes the rightmost leaf, pruning ancestors
// emptied by the removal. The root always keeps at least one child because
// the last leaf of the tree is never removed this way.
func (t *Tree) removeLastLeaf() error {
	_, path, err := t.rightmostPath()
	if err != nil {
		return err
	}
	if len(path) == 0 {
		return errors.Errorf("tree %s has no removable leaf", t.rootID)
	}

	deepest := path[len(path)-1]
	leafID, err := deepest.ReadChild(deepest.NumChildren() - 1)
	if err != nil {
		return err
	}
	if err := deepest.RemoveLastChild(); err != nil {
		return err
	}
	if err := t.nodes.RemoveByID(leafID); err != nil {
		return err
	}

	for i := len(path) - 1; i > 0; i-- {
		if path[i].NumChildren() > 0 {
			break
		}
		if err := path[i-1].RemoveLastChild(); err != nil {
			return err
		}
		if err := t.nodes.Remove(path[i]); err != nil {
			return err
		}
	}
	return nil
}

// collapseRoot removes tree levels which became unnecessary after shrinking:
// while the root is an inner node with a single child, the child's content
// moves into the root block, keeping the root ID stable.
func (t *Tree) collapseRoot() error {
	for {
		root, err := t.loadRoot()
		if err != nil {
			return err
		}
		inner, ok := root.(*nodestore.InnerNode)
		if !ok || inner.NumChildren() != 1 {
			return nil
		}

		child, err := inner.ReadLastChild()
		if err != nil {
			return err
		}
		if _, err := t.nodes.OverwriteNodeWith(t.rootID, child); err != nil {
			return err
		}
		if err := t.nodes.Remove(child); err != nil {
			return err
		}
	}
}

// rightmostPath returns the root and the inner nodes along the rightmost
// path, ordered from the root down. The path is empty if the root is a leaf.
func (t *Tree) rightmostPath() (nodestore.Node, []*nodestore.InnerNode, error) {
	root, err := t.loadRoot()
	if err != nil {
		return nil, nil, err
	}

	var path []*nodestore.InnerNode
	node := root
	for {
		inner, ok := node.(*nodestore.InnerNode)
		if !ok {
			return root, path, nil
		}
		path = append(path, inner)
		node, err = inner.ReadLastChild()
		if err != nil {
			return nil, nil, err
		}
	}
}

func (t *Tree) rightmostLeaf() (*nodestore.LeafNode, error) {
	node, err := t.loadRoot()
	if err != nil {
		return nil, err
	}
	for {
		switch n := node.(type) {
		case *nodestore.LeafNode:
			return n, nil
		case *nodestore.InnerNode:
			node, err = n.ReadLastChild()
			if err != nil {
				return nil, err
			}
		}
	}
}

// maxBytesPerSubtree returns the number of blob bytes a full subtree rooted
// at the given depth stores.
func (t *Tree) maxBytesPerSubtree(depth uint8) uint64 {
	numBytes := uint64(t.nodes.Layout().MaxBytesPerLeaf())
	maxChildren := uint64(t.nodes.Layout().MaxChildrenPerInnerNode())
	for ; depth > 0; depth-- {
		numBytes *= maxChildren
	}
	return numBytes
}

func (t *Tree) loadRoot() (nodestore.Node, error) {
	node, exists, err := t.nodes.Load(t.rootID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("root block %s does not exist", t.rootID)
	}
	return node, nil
}
