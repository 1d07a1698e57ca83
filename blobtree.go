package blobtree

import (
	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
	"github.com/outofforest/blobtree/nodestore"
	"github.com/outofforest/blobtree/treestore"
)

// BlobStore is used to access blobs stored as trees of fixed-size blocks.
type BlobStore struct {
	trees *treestore.TreeStore
}

// New returns new blob store on top of the given block store.
func New(blockStore blockstore.Store) (*BlobStore, error) {
	nodes, err := nodestore.New(blockStore)
	if err != nil {
		return nil, err
	}
	return &BlobStore{
		trees: treestore.New(nodes),
	}, nil
}

// Create creates a new empty blob.
func (s *BlobStore) Create() (*Blob, error) {
	tree, err := s.trees.CreateTree()
	if err != nil {
		return nil, err
	}
	return &Blob{tree: tree}, nil
}

// Load loads the blob identified by the given ID. Absence of the blob is not
// an error, it is reported by the second return value.
func (s *BlobStore) Load(id blocks.ID) (*Blob, bool, error) {
	tree, exists, err := s.trees.LoadTree(id)
	if err != nil || !exists {
		return nil, false, err
	}
	return &Blob{tree: tree}, true, nil
}

// Remove removes the blob identified by the given ID together with all its
// blocks. It reports whether the blob existed.
func (s *BlobStore) Remove(id blocks.ID) (bool, error) {
	return s.trees.RemoveTreeByID(id)
}

// NumNodes returns the number of blocks used by the store, across all blobs.
func (s *BlobStore) NumNodes() (uint64, error) {
	return s.trees.NumNodes()
}

// Blob is one resizable byte sequence. Its ID stays stable for its whole
// lifetime, no matter how the blob is resized.
type Blob struct {
	tree *treestore.Tree
}

// ID returns the ID of the blob.
func (b *Blob) ID() blocks.ID {
	return b.tree.RootID()
}

// Size returns the number of bytes stored in the blob.
func (b *Blob) Size() (uint64, error) {
	return b.tree.NumBytes()
}

// Resize grows or shrinks the blob to the given size. New bytes exposed by
// growing read as zero.
func (b *Blob) Resize(size uint64) error {
	return b.tree.Resize(size)
}

// ReadAt reads len(p) bytes starting at the given offset. Reading beyond the
// size of the blob fails with nodestore.ErrOutOfBounds.
func (b *Blob) ReadAt(p []byte, offset uint64) error {
	return b.tree.ReadAt(p, offset)
}

// ReadAtPadded reads like ReadAt but zero-pads the part of p reaching beyond
// the size of the blob instead of failing.
func (b *Blob) ReadAtPadded(p []byte, offset uint64) error {
	return b.tree.ReadAtPadded(p, offset)
}

// WriteAt writes p at the given offset, growing the blob first if the write
// reaches beyond its current size.
func (b *Blob) WriteAt(p []byte, offset uint64) error {
	return b.tree.WriteAt(p, offset)
}
