package nodestore

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned when a node is created with malformed parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfBounds is returned when a leaf access or resize exceeds the valid range.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrIndexOutOfRange is returned when a child index exceeds the number of children.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNodeFull is returned when a child is added to an inner node which is at capacity.
	ErrNodeFull = errors.New("node is full")

	// ErrNodeEmpty is returned when a child is requested from or removed from an inner node
	// which has no children.
	ErrNodeEmpty = errors.New("node has no children")

	// ErrInvalidNodeFormat is returned when a loaded block does not contain a valid node.
	ErrInvalidNodeFormat = errors.New("invalid node format")
)
