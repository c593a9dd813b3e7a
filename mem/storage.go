package mem

import (
	"errors"
	"sync"
)

// A Storage keeps the data of a simulated memory. Pages are allocated on
// first touch so that a large address space does not consume host memory
// before it is used.
type Storage struct {
	sync.Mutex

	Capacity uint64
	pageSize uint64
	pages    map[uint64][]byte
}

// NewStorage creates a storage with the given capacity in bytes.
func NewStorage(capacity uint64) *Storage {
	s := new(Storage)

	s.Capacity = capacity
	s.pageSize = 1 << 12
	s.pages = make(map[uint64][]byte)

	return s
}

func (s *Storage) pageID(addr uint64) uint64 {
	return addr / s.pageSize
}

func (s *Storage) pageMustExist(id uint64) []byte {
	page, found := s.pages[id]
	if !found {
		page = make([]byte, s.pageSize)
		s.pages[id] = page
	}

	return page
}

// Read returns a number of bytes from the storage, starting at the given
// address.
func (s *Storage) Read(address uint64, byteSize uint64) ([]byte, error) {
	if address+byteSize > s.Capacity {
		return nil, errors.New("read is out of the storage boundary")
	}

	s.Lock()
	defer s.Unlock()

	data := make([]byte, byteSize)
	count := uint64(0)

	for count < byteSize {
		addr := address + count
		page := s.pageMustExist(s.pageID(addr))

		offset := addr % s.pageSize
		n := copy(data[count:], page[offset:])
		count += uint64(n)
	}

	return data, nil
}

// Write writes the data to the storage, starting at the given address.
func (s *Storage) Write(address uint64, data []byte) error {
	if address+uint64(len(data)) > s.Capacity {
		return errors.New("write is out of the storage boundary")
	}

	s.Lock()
	defer s.Unlock()

	count := 0
	for count < len(data) {
		addr := address + uint64(count)
		page := s.pageMustExist(s.pageID(addr))

		offset := addr % s.pageSize
		n := copy(page[offset:], data[count:])
		count += n
	}

	return nil
}
