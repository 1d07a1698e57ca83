package mem

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

var _ blockstore.Store = &Store{}

// Store keeps blocks in memory. It is used in tests and as a reference
// implementation of the block store contract.
type Store struct {
	blockSizeBytes uint32

	mu   sync.Mutex
	data map[blocks.ID][]byte
}

// New returns new in-memory block store.
func New(blockSizeBytes uint32) *Store {
	return &Store{
		blockSizeBytes: blockSizeBytes,
		data:           map[blocks.ID][]byte{},
	}
}

// BlockSizeBytes returns the fixed size of every block in the store.
func (s *Store) BlockSizeBytes() uint32 {
	return s.blockSizeBytes
}

// Create stores data under a newly assigned random ID.
func (s *Store) Create(data []byte) (*blockstore.Block, error) {
	if err := s.validateSize(data); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := blocks.NewRandomID()
	for _, exists := s.data[id]; exists; _, exists = s.data[id] {
		id = blocks.NewRandomID()
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[id] = stored

	owned := make([]byte, len(data))
	copy(owned, data)
	return blockstore.NewBlock(s, id, owned), nil
}

// Load returns the block stored under the given ID.
func (s *Store) Load(id blocks.ID) (*blockstore.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.data[id]
	if !exists {
		return nil, false, nil
	}

	owned := make([]byte, len(stored))
	copy(owned, stored)
	return blockstore.NewBlock(s, id, owned), true, nil
}

// Write overwrites the block stored under the given ID, creating it if it does not exist.
func (s *Store) Write(id blocks.ID, data []byte) error {
	if err := s.validateSize(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[id] = stored
	return nil
}

// Remove deletes the block stored under the given ID.
func (s *Store) Remove(id blocks.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return errors.Wrapf(blockstore.ErrNotFound, "block %s", id)
	}
	delete(s.data, id)
	return nil
}

// NumBlocks returns the number of blocks in the store.
func (s *Store) NumBlocks() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.data)), nil
}

func (s *Store) validateSize(data []byte) error {
	if uint32(len(data)) != s.blockSizeBytes {
		return errors.Errorf("invalid size of block buffer, expected: %d, provided: %d", s.blockSizeBytes, len(data))
	}
	return nil
}
