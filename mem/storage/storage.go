// Package storage keeps the bytes of the simulated physical memory.
package storage

import "errors"

// ErrBeyondCapacity is returned when an access falls outside the storage.
var ErrBeyondCapacity = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the data of the simulated system.
//
// The storage implementation manages the storage in units. The unit is
// similar to the concept of page in memory management. For the units that
// are not touched by Write, no memory will be allocated and reads return
// zeros.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// New creates a storage object with the specified capacity and a 4 KB unit.
func New(capacity uint64) *Storage {
	return NewWithUnitSize(capacity, 4096)
}

// NewWithUnitSize creates a storage object with the specified capacity and
// unit size.
func NewWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("storage unit size must not be 0")
	}

	storage := new(Storage)

	storage.unitSize = unitSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) checkRange(address, length uint64) error {
	if address >= s.capacity || length > s.capacity-address {
		return ErrBeyondCapacity
	}

	return nil
}

// getUnit returns the unit holding the address, or nil if the unit has never
// been written.
func (s *Storage) getUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)
	return s.data[baseAddr]
}

// createOrGetUnit retrieves a storage unit if the unit has been created
// before. Otherwise it initializes a storage unit in the storage object.
func (s *Storage) createOrGetUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr
	return
}

func (s *Storage) lenInUnit(currAddr, lenLeft uint64) uint64 {
	baseAddr, _ := s.parseAddress(currAddr)

	lenLeftInUnit := baseAddr + s.unitSize - currAddr
	if lenLeft < lenLeftInUnit {
		return lenLeft
	}

	return lenLeftInUnit
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	if err := s.checkRange(address, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		lenToRead := s.lenInUnit(currAddr, length-dataOffset)

		unit := s.getUnit(currAddr)
		if unit != nil {
			_, inUnitAddr := s.parseAddress(currAddr)
			copy(res[dataOffset:dataOffset+lenToRead],
				unit[inUnitAddr:inUnitAddr+lenToRead])
		}

		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	if err := s.checkRange(address, uint64(len(data))); err != nil {
		return err
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		lenToWrite := s.lenInUnit(currAddr, uint64(len(data))-dataOffset)

		unit := s.createOrGetUnit(currAddr)
		_, inUnitAddr := s.parseAddress(currAddr)
		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])

		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}
