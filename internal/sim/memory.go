package sim

import "sync"

// MemoryCursor is the single logical memory cursor shared by every process
// in a run (spec §3). It implements executor.MemoryAllocator.
type MemoryCursor struct {
	mu           sync.Mutex
	systemMemory uint32
	blockSize    uint32
	blockCount   int
	nextAddress  uint32
}

// NewMemoryCursor creates a cursor over a systemMemory-sized address space,
// KB, advancing by blockSize KB per allocation and wrapping modulo
// systemMemory (spec §3), matching the original coursework's
// `nextAddress = (addressIndex + blockSize) % systemMemory`.
func NewMemoryCursor(systemMemoryKB, blockSizeKB int) *MemoryCursor {
	return &MemoryCursor{systemMemory: uint32(systemMemoryKB), blockSize: uint32(blockSizeKB)}
}

// Allocate returns the current cursor address and the running block count,
// then advances lastAddress by blockSize modulo systemMemory (spec §3).
func (m *MemoryCursor) Allocate() (blockCount int, address uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	address = m.nextAddress
	m.blockCount++
	m.nextAddress = (m.nextAddress + m.blockSize) % m.systemMemory
	return m.blockCount, address
}

// Reset zeroes the cursor, called on S{finish} (spec §4.5).
func (m *MemoryCursor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockCount = 0
	m.nextAddress = 0
}
