package blockstore

import (
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
)

// ErrNotFound is returned when removing a block which does not exist.
var ErrNotFound = errors.New("block not found")

// Store is the interface of the block storage service consumed by the node
// store. Blocks are fixed-size byte buffers keyed by opaque IDs. The store is
// responsible for durability and per-block atomicity; callers get no
// transactional guarantees across blocks.
type Store interface {
	// BlockSizeBytes returns the fixed size of every block in the store.
	BlockSizeBytes() uint32

	// Create stores data under a newly assigned random ID.
	// len(data) must equal BlockSizeBytes().
	Create(data []byte) (*Block, error)

	// Load returns the block stored under the given ID.
	// Absence of the block is not an error, it is reported by the second return value.
	Load(id blocks.ID) (*Block, bool, error)

	// Write overwrites the block stored under the given ID, creating it if it does not exist.
	// len(data) must equal BlockSizeBytes().
	Write(id blocks.ID, data []byte) error

	// Remove deletes the block stored under the given ID.
	// Removing a nonexistent block fails with ErrNotFound.
	Remove(id blocks.ID) error

	// NumBlocks returns the number of blocks in the store.
	NumBlocks() (uint64, error)
}

// Block is an exclusive handle to one stored block. It owns an in-memory copy
// of the block content; mutations become durable once Flush is called.
type Block struct {
	store Store
	id    blocks.ID
	data  []byte
}

// NewBlock wraps a block buffer in a handle writing back to the given store.
// It is meant to be used by Store implementations.
func NewBlock(store Store, id blocks.ID, data []byte) *Block {
	return &Block{
		store: store,
		id:    id,
		data:  data,
	}
}

// ID returns the ID of the block.
func (b *Block) ID() blocks.ID {
	return b.id
}

// Data returns the mutable content of the block.
func (b *Block) Data() []byte {
	return b.data
}

// Flush persists the current content of the block.
func (b *Block) Flush() error {
	return b.store.Write(b.id, b.data)
}
