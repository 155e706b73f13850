package pagetable

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmfork/mem/vm"
)

var (
	// ErrNotMapped means the address has no valid translation.
	ErrNotMapped = errors.New("address not mapped")

	// ErrAlreadyMapped means a leaf entry is valid already.
	ErrAlreadyMapped = errors.New("address already mapped")

	// ErrPermission means the mapping does not allow the access.
	ErrPermission = errors.New("access not permitted")

	// ErrAddressOutOfRange means the address does not fit in the tree.
	ErrAddressOutOfRange = errors.New("virtual address out of range")
)

// AccessType tells whether an access reads or writes.
type AccessType int

// Access types.
const (
	AccessRead AccessType = iota
	AccessWrite
)

func (a AccessType) String() string {
	if a == AccessWrite {
		return "write"
	}

	return "read"
}

// A Fault describes a trapped access. Table is the node at Level on the path
// of VAddr whose entry could not satisfy the access.
type Fault struct {
	Space  string
	VAddr  vm.VAddr
	Level  int
	Table  Table
	Access AccessType
}

// A FaultHandler is given the faults of an address space. It returns nil if
// it fixed the cause of the fault so that the access can be retried.
type FaultHandler interface {
	HandleFault(f Fault) error
}

// PageFaultError is returned by accesses that fault and cannot be fixed.
type PageFaultError struct {
	VAddr  vm.VAddr
	Level  int
	Access AccessType
	Err    error
}

func (e *PageFaultError) Error() string {
	return fmt.Sprintf("page fault on %s at %s, level %d: %v",
		e.Access, e.VAddr, e.Level, e.Err)
}

func (e *PageFaultError) Unwrap() error {
	return e.Err
}
