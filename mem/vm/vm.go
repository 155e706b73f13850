// Package vm provides the building blocks of a simulated virtual memory
// system: page-table entries, virtual addresses and the layout constants of
// the three-level page-table tree.
package vm

const (
	// Log2PageSize is the number of offset bits in a virtual address.
	Log2PageSize = 12

	// PageSize is the size of a frame in bytes. Data frames and page-table
	// nodes have the same size.
	PageSize = 1 << Log2PageSize

	// Log2NumPTEEntries is the number of index bits per page-table level.
	Log2NumPTEEntries = 9

	// NumPTEEntries is the fan-out of every page-table node.
	NumPTEEntries = 1 << Log2NumPTEEntries

	// PTESize is the number of bytes one entry occupies in a node.
	PTESize = 8

	// NumLevels is the depth of the page-table tree.
	NumLevels = 3

	// RootLevel is the level of the root node.
	RootLevel = NumLevels - 1

	// LeafLevel is the level whose entries point at data frames.
	LeafLevel = 0
)

// PPN is a physical page number, the compact identifier of a frame.
type PPN uint64
