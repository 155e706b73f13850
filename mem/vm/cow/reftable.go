package cow

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameIndexOutOfRange is returned when a frame index does not fit in
	// the reference table.
	ErrFrameIndexOutOfRange = errors.New("frame index out of range")

	// ErrRefCountUnderflow is returned when decrementing a zero count.
	ErrRefCountUnderflow = errors.New("shared reference count underflow")
)

// RefTable counts, for every frame, the sharers that still have to take a
// private copy. The capacity is fixed when the table is created.
type RefTable struct {
	counts []int
}

// NewRefTable creates a table for frame indices in [0, capacity).
func NewRefTable(capacity int) *RefTable {
	return &RefTable{counts: make([]int, capacity)}
}

// Capacity returns the number of frames the table covers.
func (t *RefTable) Capacity() int {
	return len(t.counts)
}

func (t *RefTable) mustBeInRange(index int) error {
	if index < 0 || index >= len(t.counts) {
		return fmt.Errorf("%w: %d not in [0, %d)",
			ErrFrameIndexOutOfRange, index, len(t.counts))
	}

	return nil
}

// Get returns the count of a frame.
func (t *RefTable) Get(index int) (int, error) {
	if err := t.mustBeInRange(index); err != nil {
		return 0, err
	}

	return t.counts[index], nil
}

// Inc records one more outstanding sharer of a frame.
func (t *RefTable) Inc(index int) error {
	if err := t.mustBeInRange(index); err != nil {
		return err
	}

	t.counts[index]++

	return nil
}

// Dec records that a sharer of a frame has left the group.
func (t *RefTable) Dec(index int) error {
	if err := t.mustBeInRange(index); err != nil {
		return err
	}

	if t.counts[index] == 0 {
		return fmt.Errorf("%w: frame index %d", ErrRefCountUnderflow, index)
	}

	t.counts[index]--

	return nil
}

// NonZero returns the frame indices with a positive count and their counts.
func (t *RefTable) NonZero() map[int]int {
	res := make(map[int]int)

	for i, c := range t.counts {
		if c > 0 {
			res[i] = c
		}
	}

	return res
}
