package core

import (
	"fmt"
	"sync"
)

// DefaultArenaCapacity is the number of program-memory slots a session gets by default.
const DefaultArenaCapacity = 1000

type slot struct {
	line string
	used bool
}

// ArenaStats describes occupancy and fragmentation of a ProgramMemory.
type ArenaStats struct {
	Capacity    int
	Used        int
	Free        int
	Allocations int
	// LargestFreeRun is the longest contiguous run of free slots; an
	// allocation larger than this fails even when Free is big enough.
	LargestFreeRun int
}

// ProgramMemory is a fixed-capacity store of program lines.
// Ranges are handed out first-fit and never moved.
type ProgramMemory struct {
	mu    sync.Mutex
	slots []slot
	// live maps the start index of every live allocation to its size.
	live map[int]int
}

// NewProgramMemory creates an arena with the given number of slots.
// Panics if capacity is not positive.
func NewProgramMemory(capacity int) *ProgramMemory {
	if capacity < 1 {
		panic("ProgramMemory: capacity must be at least 1")
	}
	return &ProgramMemory{
		slots: make([]slot, capacity),
		live:  make(map[int]int),
	}
}

// Capacity returns the number of slots.
func (m *ProgramMemory) Capacity() int {
	return len(m.slots)
}

// Allocate reserves the first contiguous run of size free slots and returns its start.
func (m *ProgramMemory) Allocate(size int) (int, error) {
	if size < 1 {
		return -1, fmt.Errorf("allocate %d slots: %w", size, ErrEmptyProgram)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run := 0
	for i := range m.slots {
		if m.slots[i].used {
			run = 0
			continue
		}
		run++
		if run == size {
			start := i - size + 1
			for j := start; j <= i; j++ {
				m.slots[j] = slot{used: true}
			}
			m.live[start] = size
			return start, nil
		}
	}
	return -1, fmt.Errorf("allocate %d slots: %w", size, ErrArenaFull)
}

// Write stores line in slot index, which must belong to a live allocation.
func (m *ProgramMemory) Write(index int, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.slots) {
		return fmt.Errorf("write slot %d: %w", index, ErrSlotOutOfRange)
	}
	if !m.slots[index].used {
		return fmt.Errorf("write slot %d: %w", index, ErrSlotNotAllocated)
	}
	m.slots[index].line = line
	return nil
}

// Read returns the line held in slot index.
func (m *ProgramMemory) Read(index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.slots) {
		return "", fmt.Errorf("read slot %d: %w", index, ErrSlotOutOfRange)
	}
	return m.slots[index].line, nil
}

// Free releases the range [start, start+size). The range must be exactly one
// returned by Allocate and not yet freed.
func (m *ProgramMemory) Free(start, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if got, ok := m.live[start]; !ok || got != size {
		return fmt.Errorf("free [%d, %d): %w", start, start+size, ErrInvalidFree)
	}
	delete(m.live, start)
	for i := start; i < start+size; i++ {
		m.slots[i] = slot{}
	}
	return nil
}

// Stats returns a snapshot of arena occupancy.
func (m *ProgramMemory) Stats() ArenaStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ArenaStats{
		Capacity:    len(m.slots),
		Allocations: len(m.live),
	}
	run := 0
	for _, s := range m.slots {
		if s.used {
			stats.Used++
			run = 0
			continue
		}
		run++
		stats.LargestFreeRun = max(stats.LargestFreeRun, run)
	}
	stats.Free = stats.Capacity - stats.Used
	return stats
}
