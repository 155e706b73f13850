package vm

import "fmt"

// VAddrBits is the number of meaningful bits in a virtual address.
const VAddrBits = Log2PageSize + NumLevels*Log2NumPTEEntries

// VAddr is a virtual address. From the most significant end, it is split into
// a root index, a middle index, a leaf index and a byte offset.
type VAddr uint64

// MakeVAddr assembles a virtual address from its per-level indices and a
// byte offset.
func MakeVAddr(root, middle, leaf int, offset uint64) VAddr {
	mustBeIndex(root)
	mustBeIndex(middle)
	mustBeIndex(leaf)

	if offset >= PageSize {
		panic(fmt.Sprintf("offset %d is not within a page", offset))
	}

	return VAddr(uint64(root)<<levelShift(2) |
		uint64(middle)<<levelShift(1) |
		uint64(leaf)<<levelShift(0) |
		offset)
}

func mustBeIndex(i int) {
	if i < 0 || i >= NumPTEEntries {
		panic(fmt.Sprintf("index %d is out of the page-table node", i))
	}
}

func levelShift(level int) uint {
	return uint(Log2PageSize + level*Log2NumPTEEntries)
}

// Index returns the slot that the address selects in a node of the given
// level.
func (a VAddr) Index(level int) int {
	if level < 0 || level >= NumLevels {
		panic(fmt.Sprintf("level %d does not exist", level))
	}

	return int((uint64(a) >> levelShift(level)) & (NumPTEEntries - 1))
}

// Offset returns the byte offset within the page.
func (a VAddr) Offset() uint64 {
	return uint64(a) & (PageSize - 1)
}

// PageBase returns the address aligned down to its page.
func (a VAddr) PageBase() VAddr {
	return a &^ (PageSize - 1)
}

// InRange returns false if the address uses bits above VAddrBits.
func (a VAddr) InRange() bool {
	return uint64(a)>>VAddrBits == 0
}

// String formats the address in hex.
func (a VAddr) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}
