package store

import "fmt"

// PersistenceError reports the adapter call that aborted a save. Entries
// committed before it stay committed; it and everything after stay pending.
type PersistenceError struct {
	Op  string
	ID  int64
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s %d: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
