package geom

import "errors"

// Structural errors
var (
	// ErrTooFewVertices indicates that an operation would leave the geometry
	// below the vertex floor of its kind.
	ErrTooFewVertices = errors.New("geom: too few vertices")

	// ErrVertexIndex indicates that a vertex index is out of range.
	ErrVertexIndex = errors.New("geom: vertex index out of range")

	// ErrUnknownKind indicates an unrecognised geometry kind.
	ErrUnknownKind = errors.New("geom: unknown kind")
)

// Codec errors
var (
	// ErrUnsupportedType indicates a source geometry type with no editable equivalent.
	ErrUnsupportedType = errors.New("geom: unsupported geometry type")

	// ErrNoGeometries indicates that a file or text held nothing usable.
	ErrNoGeometries = errors.New("geom: no geometries found")
)
