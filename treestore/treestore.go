package treestore

import (
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/nodestore"
)

// TreeStore creates, loads and removes blob trees. Each tree maps one
// resizable byte sequence onto a tree of nodes; the root node ID identifies
// the tree for its whole lifetime.
type TreeStore struct {
	nodes *nodestore.Store
}

// New returns new tree store on top of the given node store.
func New(nodes *nodestore.Store) *TreeStore {
	return &TreeStore{
		nodes: nodes,
	}
}

// CreateTree creates a new empty tree consisting of a single empty leaf node.
func (s *TreeStore) CreateTree() (*Tree, error) {
	leaf, err := s.nodes.CreateNewLeafNode(nil)
	if err != nil {
		return nil, err
	}
	return &Tree{
		nodes:  s.nodes,
		rootID: leaf.BlockID(),
	}, nil
}

// LoadTree loads the tree rooted at the given node ID. Absence of the tree is
// not an error, it is reported by the second return value.
func (s *TreeStore) LoadTree(rootID blocks.ID) (*Tree, bool, error) {
	_, exists, err := s.nodes.Load(rootID)
	if err != nil || !exists {
		return nil, false, err
	}
	return &Tree{
		nodes:  s.nodes,
		rootID: rootID,
	}, true, nil
}

// RemoveTreeByID removes the tree rooted at the given node ID together with
// all its nodes. It reports whether the tree existed.
func (s *TreeStore) RemoveTreeByID(rootID blocks.ID) (bool, error) {
	root, exists, err := s.nodes.Load(rootID)
	if err != nil || !exists {
		return false, err
	}
	if err := s.removeSubtree(root); err != nil {
		return false, err
	}
	return true, nil
}

// NumNodes returns the number of nodes in the store, across all trees.
func (s *TreeStore) NumNodes() (uint64, error) {
	return s.nodes.NumNodes()
}

func (s *TreeStore) removeSubtree(node nodestore.Node) error {
	if inner, ok := node.(*nodestore.InnerNode); ok {
		for i := uint32(0); i < inner.NumChildren(); i++ {
			childID, err := inner.ReadChild(i)
			if err != nil {
				return err
			}
			child, exists, err := s.nodes.Load(childID)
			if err != nil {
				return err
			}
			if !exists {
				return errors.Errorf("child block %s referenced by node %s does not exist",
					childID, inner.BlockID())
			}
			if err := s.removeSubtree(child); err != nil {
				return err
			}
		}
	}
	return s.nodes.Remove(node)
}
