package history

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInconsistent matches every *ConsistencyError.
	ErrInconsistent = errors.New("history area is inconsistent")
	// ErrBookkeeping matches every *BookkeepingError.
	ErrBookkeeping = errors.New("version bookkeeping failed")

	// ErrMoved is returned by Store.Write when the open file is no longer
	// the file at the path it was written through.
	ErrMoved = errors.New("file is no longer at this path")

	ErrNegativeOffset = errors.New("negative offset")
	ErrNegativeSize   = errors.New("negative size")
)

// ConsistencyError reports a history area whose counter or snapshots do not
// match what the counter promises, or an area that could not be purged.
type ConsistencyError struct {
	Path    string   // backing path of the live file
	Problem string   // short description
	Missing []uint64 // snapshot versions that should exist but do not
	Err     error
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Path, e.Problem)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing versions %v)", e.Missing)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// BookkeepingError is returned when the live mutation succeeded but the
// history could not be brought up to date.
type BookkeepingError struct {
	Op   string
	Path string
	Err  error
}

func (e *BookkeepingError) Error() string {
	return fmt.Sprintf("%s %s: live change applied, history not updated: %v", e.Op, e.Path, e.Err)
}

func (e *BookkeepingError) Is(target error) bool {
	return target == ErrBookkeeping
}

func (e *BookkeepingError) Unwrap() error {
	return e.Err
}
