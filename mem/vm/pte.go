package vm

import "fmt"

// PTE is a page-table entry. It packs a physical page number and a set of
// flag bits into one word.
type PTE uint64

// Flag bits of a PTE.
const (
	PTEValid PTE = 1 << 0
	PTERead  PTE = 1 << 1
	PTEWrite PTE = 1 << 2

	// PTECustom lives in the software-reserved bits. It marks a mapping that
	// waits for copy-on-write resolution.
	PTECustom PTE = 1 << 8
)

const (
	ppnShift = 10
	ppnBits  = 44

	// MaxPPN is the largest PPN a PTE can hold.
	MaxPPN PPN = 1<<ppnBits - 1

	ppnMask  = PTE(MaxPPN) << ppnShift
	flagMask = ^ppnMask
)

// MakePTE creates an entry that points at ppn with the given flags.
func MakePTE(ppn PPN, flags PTE) PTE {
	var e PTE
	e.SetPPN(ppn)
	e.Set(flags)

	return e
}

// PPN returns the physical page number stored in the entry.
func (e PTE) PPN() PPN {
	return PPN((e & ppnMask) >> ppnShift)
}

// SetPPN replaces the physical page number and keeps all flag bits.
func (e *PTE) SetPPN(ppn PPN) {
	if ppn > MaxPPN {
		panic(fmt.Sprintf("ppn 0x%x does not fit in a page-table entry", ppn))
	}

	*e = (*e & flagMask) | (PTE(ppn) << ppnShift)
}

// Flags returns the entry with the PPN field masked out.
func (e PTE) Flags() PTE {
	return e & flagMask
}

// Has returns true if all the bits in flags are set.
func (e PTE) Has(flags PTE) bool {
	flags &= flagMask
	return e&flags == flags
}

// Set sets the bits in flags. Bits that overlap the PPN field are ignored.
func (e *PTE) Set(flags PTE) {
	*e |= flags & flagMask
}

// Clear clears the bits in flags. Bits that overlap the PPN field are
// ignored.
func (e *PTE) Clear(flags PTE) {
	*e &^= flags & flagMask
}

// Valid returns true if the entry is in use.
func (e PTE) Valid() bool { return e.Has(PTEValid) }

// SetValid sets the VALID bit.
func (e *PTE) SetValid() { e.Set(PTEValid) }

// ClearValid clears the VALID bit.
func (e *PTE) ClearValid() { e.Clear(PTEValid) }

// Read returns true if the mapping can be read.
func (e PTE) Read() bool { return e.Has(PTERead) }

// SetRead sets the READ bit.
func (e *PTE) SetRead() { e.Set(PTERead) }

// ClearRead clears the READ bit.
func (e *PTE) ClearRead() { e.Clear(PTERead) }

// Write returns true if the mapping can be written.
func (e PTE) Write() bool { return e.Has(PTEWrite) }

// SetWrite sets the WRITE bit.
func (e *PTE) SetWrite() { e.Set(PTEWrite) }

// ClearWrite clears the WRITE bit.
func (e *PTE) ClearWrite() { e.Clear(PTEWrite) }

// Custom returns true if the mapping waits for copy-on-write resolution.
func (e PTE) Custom() bool { return e.Has(PTECustom) }

// SetCustom sets the CUSTOM bit.
func (e *PTE) SetCustom() { e.Set(PTECustom) }

// ClearCustom clears the CUSTOM bit.
func (e *PTE) ClearCustom() { e.Clear(PTECustom) }

// String prints the entry as "PPN: 0x1F Flags: CWRV", with a dash for each
// flag that is clear.
func (e PTE) String() string {
	flags := []byte("----")
	for i, f := range []struct {
		bit  PTE
		char byte
	}{
		{PTECustom, 'C'}, {PTEWrite, 'W'}, {PTERead, 'R'}, {PTEValid, 'V'},
	} {
		if e.Has(f.bit) {
			flags[i] = f.char
		}
	}

	return fmt.Sprintf("PPN: 0x%X Flags: %s", uint64(e.PPN()), flags)
}
