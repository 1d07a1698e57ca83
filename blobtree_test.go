package blobtree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore/mem"
	"github.com/outofforest/blobtree/nodestore"
)

const blockSize = 1024

func newBlobStore(t *testing.T) *BlobStore {
	s, err := New(mem.New(blockSize))
	require.NoError(t, err)
	return s
}

func dataFixture(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)*11 + seed
	}
	return data
}

func TestBlobLifecycle(t *testing.T) {
	requireT := require.New(t)

	s := newBlobStore(t)

	blob, err := s.Create()
	requireT.NoError(err)

	size, err := blob.Size()
	requireT.NoError(err)
	requireT.EqualValues(0, size)

	data := dataFixture(5000, 1)
	requireT.NoError(blob.WriteAt(data, 0))

	loaded, exists, err := s.Load(blob.ID())
	requireT.NoError(err)
	requireT.True(exists)

	size, err = loaded.Size()
	requireT.NoError(err)
	requireT.EqualValues(5000, size)

	p := make([]byte, 5000)
	requireT.NoError(loaded.ReadAt(p, 0))
	requireT.Equal(data, p)

	existed, err := s.Remove(blob.ID())
	requireT.NoError(err)
	requireT.True(existed)

	_, exists, err = s.Load(blob.ID())
	requireT.NoError(err)
	requireT.False(exists)

	nNodes, err := s.NumNodes()
	requireT.NoError(err)
	requireT.EqualValues(0, nNodes)
}

func TestBlobIDStaysStableAcrossResizes(t *testing.T) {
	requireT := require.New(t)

	s := newBlobStore(t)

	blob, err := s.Create()
	requireT.NoError(err)
	id := blob.ID()

	requireT.NoError(blob.Resize(100_000))
	requireT.Equal(id, blob.ID())

	requireT.NoError(blob.Resize(10))
	requireT.Equal(id, blob.ID())

	loaded, exists, err := s.Load(id)
	requireT.NoError(err)
	requireT.True(exists)

	size, err := loaded.Size()
	requireT.NoError(err)
	requireT.EqualValues(10, size)
}

func TestBlobsAreIndependent(t *testing.T) {
	requireT := require.New(t)

	s := newBlobStore(t)

	blob1, err := s.Create()
	requireT.NoError(err)
	blob2, err := s.Create()
	requireT.NoError(err)
	requireT.NotEqual(blob1.ID(), blob2.ID())

	data1 := dataFixture(3000, 1)
	data2 := dataFixture(200, 2)
	requireT.NoError(blob1.WriteAt(data1, 0))
	requireT.NoError(blob2.WriteAt(data2, 0))

	// Removing one blob leaves the other intact.
	existed, err := s.Remove(blob1.ID())
	requireT.NoError(err)
	requireT.True(existed)

	p := make([]byte, 200)
	requireT.NoError(blob2.ReadAt(p, 0))
	requireT.Equal(data2, p)
}

func TestBlobReadBeyondSize(t *testing.T) {
	requireT := require.New(t)

	s := newBlobStore(t)

	blob, err := s.Create()
	requireT.NoError(err)
	requireT.NoError(blob.WriteAt(dataFixture(100, 3), 0))

	requireT.ErrorIs(blob.ReadAt(make([]byte, 200), 0), nodestore.ErrOutOfBounds)

	p := dataFixture(200, 9)
	requireT.NoError(blob.ReadAtPadded(p, 0))
	requireT.Equal(dataFixture(100, 3), p[:100])
	requireT.Equal(make([]byte, 100), p[100:])
}

func TestRemoveNonexistentBlob(t *testing.T) {
	requireT := require.New(t)

	s := newBlobStore(t)

	existed, err := s.Remove(blocks.NewRandomID())
	requireT.NoError(err)
	requireT.False(existed)
}
