package rotation

import "fmt"

// Op names the hypervisor operation an error originated from.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

// OpError records one failed hypervisor operation during a guest's pass.
// A create failure suppresses that bucket's deletions for the rest of the
// pass; a delete failure only skips the one snapshot.
type OpError struct {
	Op       Op
	Bucket   Bucket
	Snapshot string
	Err      error
}

func (e *OpError) Error() string {
	switch e.Op {
	case OpList:
		return fmt.Sprintf("list snapshots: %v", e.Err)
	case OpCreate:
		return fmt.Sprintf("create %s snapshot %q: %v", e.Bucket, e.Snapshot, e.Err)
	default:
		return fmt.Sprintf("delete %s snapshot %q: %v", e.Bucket, e.Snapshot, e.Err)
	}
}

func (e *OpError) Unwrap() error { return e.Err }
