package disk

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

const blockSize = 256

func newStore(t *testing.T) *Store {
	s, err := New(Config{
		Dir:            t.TempDir(),
		BlockSizeBytes: blockSize,
	})
	require.NoError(t, err)
	return s
}

func TestCreateLoadRoundTrip(t *testing.T) {
	requireT := require.New(t)

	s := newStore(t)

	content := bytes.Repeat([]byte{0x5a}, blockSize)
	block, err := s.Create(content)
	requireT.NoError(err)

	loaded, exists, err := s.Load(block.ID())
	requireT.NoError(err)
	requireT.True(exists)
	requireT.Equal(content, loaded.Data())

	nBlocks, err := s.NumBlocks()
	requireT.NoError(err)
	requireT.EqualValues(1, nBlocks)
}

func TestLoadNonexistentBlock(t *testing.T) {
	requireT := require.New(t)

	s := newStore(t)

	_, exists, err := s.Load(blocks.NewRandomID())
	requireT.NoError(err)
	requireT.False(exists)
}

func TestFlushPersistsMutations(t *testing.T) {
	requireT := require.New(t)

	s := newStore(t)

	block, err := s.Create(make([]byte, blockSize))
	requireT.NoError(err)

	block.Data()[10] = 0x77
	requireT.NoError(block.Flush())

	loaded, exists, err := s.Load(block.ID())
	requireT.NoError(err)
	requireT.True(exists)
	requireT.EqualValues(0x77, loaded.Data()[10])
}

func TestRemove(t *testing.T) {
	requireT := require.New(t)

	s := newStore(t)

	block, err := s.Create(make([]byte, blockSize))
	requireT.NoError(err)

	requireT.NoError(s.Remove(block.ID()))

	_, exists, err := s.Load(block.ID())
	requireT.NoError(err)
	requireT.False(exists)

	requireT.ErrorIs(s.Remove(block.ID()), blockstore.ErrNotFound)
}

func TestCorruptedBlockIsRejected(t *testing.T) {
	requireT := require.New(t)

	s := newStore(t)

	block, err := s.Create(bytes.Repeat([]byte{0x5a}, blockSize))
	requireT.NoError(err)

	// Flip one payload byte directly in the file.

	path := s.path(block.ID())
	content, err := os.ReadFile(path)
	requireT.NoError(err)
	content[fileHeaderSize+3] ^= 0x01
	requireT.NoError(os.WriteFile(path, content, 0o644))

	_, _, err = s.Load(block.ID())
	requireT.ErrorContains(err, "checksum mismatch")
}

func TestForeignFileIsRejected(t *testing.T) {
	requireT := require.New(t)

	s := newStore(t)

	block, err := s.Create(make([]byte, blockSize))
	requireT.NoError(err)

	requireT.NoError(os.WriteFile(s.path(block.ID()), make([]byte, fileHeaderSize+blockSize), 0o644))

	_, _, err = s.Load(block.ID())
	requireT.ErrorContains(err, "does not contain a block")
}

func TestStoreSurvivesReopening(t *testing.T) {
	requireT := require.New(t)

	dir := t.TempDir()
	s, err := New(Config{Dir: dir, BlockSizeBytes: blockSize})
	requireT.NoError(err)

	content := bytes.Repeat([]byte{0x11}, blockSize)
	block, err := s.Create(content)
	requireT.NoError(err)

	s2, err := New(Config{Dir: dir, BlockSizeBytes: blockSize})
	requireT.NoError(err)

	loaded, exists, err := s2.Load(block.ID())
	requireT.NoError(err)
	requireT.True(exists)
	requireT.Equal(content, loaded.Data())
}
