package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/ehciboot/mem"
)

// Memory is sparse physical memory. Unwritten quadwords read as zero. It
// implements [github.com/ardnew/ehciboot/hal.PhysMemory].
type Memory struct {
	mu     sync.Mutex
	words  map[mem.PhysAddr]uint64
	writes int
}

// NewMemory returns empty physical memory.
func NewMemory() *Memory {
	return &Memory{words: make(map[mem.PhysAddr]uint64)}
}

// Read64 implements hal.PhysMemory.
func (m *Memory) Read64(addr mem.PhysAddr) uint64 {
	if addr%8 != 0 {
		panic(fmt.Sprintf("sim: misaligned physical read at %s", addr))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[addr]
}

// Write64 implements hal.PhysMemory.
func (m *Memory) Write64(addr mem.PhysAddr, value uint64) {
	if addr%8 != 0 {
		panic(fmt.Sprintf("sim: misaligned physical write at %s", addr))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if value == 0 {
		delete(m.words, addr)
		return
	}
	m.words[addr] = value
}

// Writes returns the number of Write64 calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
