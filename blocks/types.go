package blocks

import (
	"encoding/hex"
	"unsafe"

	"github.com/google/uuid"
)

// IDSize is the size of the block ID in bytes.
const IDSize = 16

// ID is the opaque identifier of a block. It is never interpreted beyond
// equality and use as a map key.
type ID [IDSize]byte

// NewRandomID returns a randomly generated block ID.
func NewRandomID() ID {
	return ID(uuid.New())
}

// String returns the hex representation of the ID.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// NodeType is the enum representing the kind of node stored in a block.
type NodeType uint8

// Node types. The tag is persisted as the first byte of every node block, so
// the values must never change.
const (
	InnerNodeType NodeType = iota
	LeafNodeType
)

// NodeHeader is the header stored at the beginning of every node block.
// Size keeps the number of used payload bytes for leaf nodes and the number
// of child entries for inner nodes.
type NodeHeader struct {
	Type  NodeType
	Depth uint8
	_     uint16
	Size  uint32
}

// alignment specifies the alignment requirements of the architecture.
const alignment = 8

// NodeHeaderSize is the size of the node header stored in each block.
// This magic ensures that the header size is a multiplication of 8, meaning that payload bytes following the header
// are correctly aligned.
const NodeHeaderSize = (uint32(unsafe.Sizeof(NodeHeader{})-1)/alignment + 1) * alignment
