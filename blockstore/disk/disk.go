package disk

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/outofforest/blobtree/blocks"
	"github.com/outofforest/blobtree/blockstore"
)

var _ blockstore.Store = &Store{}

// fileHeaderSize is the size of the header prepended to the block payload in each file.
const fileHeaderSize = 16

// blockSubject identifies block files written by this store, so foreign files are never
// misinterpreted as blocks.
var blockSubject = [8]byte{'b', 'l', 'o', 'b', 't', 'r', 'e', 'e'}

// Config is the configuration of the on-disk block store.
type Config struct {
	// Dir is the directory storing the blocks.
	Dir string

	// BlockSizeBytes is the fixed size of every block in the store.
	BlockSizeBytes uint32

	// Logger is used to report store activity. If nil, nothing is logged.
	Logger *slog.Logger
}

// Store keeps blocks in files on disk, one file per block, sharded into
// subdirectories by the first byte of the ID. Writes go through a temporary
// file followed by a rename, so a block file is always either absent or
// complete. Each file carries a checksum of the payload verified on load.
type Store struct {
	config Config
}

// New returns new on-disk block store.
func New(config Config) (*Store, error) {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{config: config}, nil
}

// BlockSizeBytes returns the fixed size of every block in the store.
func (s *Store) BlockSizeBytes() uint32 {
	return s.config.BlockSizeBytes
}

// Create stores data under a newly assigned random ID.
func (s *Store) Create(data []byte) (*blockstore.Block, error) {
	if err := s.validateSize(data); err != nil {
		return nil, err
	}

	id := blocks.NewRandomID()
	for {
		if _, err := os.Stat(s.path(id)); errors.Is(err, os.ErrNotExist) {
			break
		} else if err != nil {
			return nil, errors.WithStack(err)
		}
		id = blocks.NewRandomID()
	}

	if err := s.writeFile(id, data); err != nil {
		return nil, err
	}
	s.config.Logger.Debug("block created", "id", id)

	owned := make([]byte, len(data))
	copy(owned, data)
	return blockstore.NewBlock(s, id, owned), nil
}

// Load returns the block stored under the given ID.
func (s *Store) Load(id blocks.ID) (*blockstore.Block, bool, error) {
	content, err := os.ReadFile(s.path(id))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, errors.WithStack(err)
	}

	if len(content) != fileHeaderSize+int(s.config.BlockSizeBytes) {
		return nil, false, errors.Errorf("invalid size of block file %s, expected: %d, actual: %d",
			id, fileHeaderSize+int(s.config.BlockSizeBytes), len(content))
	}
	if [8]byte(content[:8]) != blockSubject {
		return nil, false, errors.Errorf("file for block %s does not contain a block", id)
	}

	payload := content[fileHeaderSize:]
	checksumStored := binary.LittleEndian.Uint64(content[8:fileHeaderSize])
	if checksumComputed := xxhash.Sum64(payload); checksumComputed != checksumStored {
		s.config.Logger.Warn("block checksum mismatch", "id", id)
		return nil, false, errors.Errorf("checksum mismatch for block %s, computed: %x, stored: %x",
			id, checksumComputed, checksumStored)
	}

	return blockstore.NewBlock(s, id, payload), true, nil
}

// Write overwrites the block stored under the given ID, creating it if it does not exist.
func (s *Store) Write(id blocks.ID, data []byte) error {
	if err := s.validateSize(data); err != nil {
		return err
	}
	return s.writeFile(id, data)
}

// Remove deletes the block stored under the given ID.
func (s *Store) Remove(id blocks.ID) error {
	err := os.Remove(s.path(id))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errors.Wrapf(blockstore.ErrNotFound, "block %s", id)
	case err != nil:
		return errors.WithStack(err)
	}
	s.config.Logger.Debug("block removed", "id", id)
	return nil
}

// NumBlocks returns the number of blocks in the store.
func (s *Store) NumBlocks() (uint64, error) {
	var nBlocks uint64
	err := filepath.WalkDir(s.config.Dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if !entry.IsDir() {
			nBlocks++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return nBlocks, nil
}

// path returns the file path of the block. The first hex byte of the ID is
// used as a shard directory to keep directories small.
func (s *Store) path(id blocks.ID) string {
	hexID := id.String()
	return filepath.Join(s.config.Dir, hexID[:2], hexID[2:])
}

func (s *Store) writeFile(id blocks.ID, data []byte) error {
	path := s.path(id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	content := make([]byte, fileHeaderSize+len(data))
	copy(content, blockSubject[:])
	binary.LittleEndian.PutUint64(content[8:fileHeaderSize], xxhash.Sum64(data))
	copy(content[fileHeaderSize:], data)

	tmpFile, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		return errors.WithStack(err)
	}
	if err := tmpFile.Close(); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.Rename(tmpFile.Name(), path))
}

func (s *Store) validateSize(data []byte) error {
	if uint32(len(data)) != s.config.BlockSizeBytes {
		return errors.Errorf("invalid size of block buffer, expected: %d, provided: %d",
			s.config.BlockSizeBytes, len(data))
	}
	return nil
}
