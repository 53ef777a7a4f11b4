package datasource

import "errors"

var (
	// ErrNotFound indicates that an update or delete addressed an id the
	// backend does not hold.
	ErrNotFound = errors.New("datasource: element not found")

	// ErrInvalidGeometry indicates that a write carried a geometry that fails
	// its kind's vertex floor.
	ErrInvalidGeometry = errors.New("datasource: invalid geometry")
)
