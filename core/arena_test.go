package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProgramMemory_FirstFit verifies first-fit placement and hole reuse
// Given: A 10 slot arena holding three 3 slot programs
// When: The middle program is freed and new programs are allocated
// Then: A 4 slot request fails despite 4 free slots, a 3 slot request reuses the hole
func TestProgramMemory_FirstFit(t *testing.T) {
	// Arrange
	m := NewProgramMemory(10)
	starts := make([]int, 3)
	for i := range starts {
		start, err := m.Allocate(3)
		require.NoError(t, err)
		starts[i] = start
	}
	assert.Equal(t, []int{0, 3, 6}, starts)

	// Act
	require.NoError(t, m.Free(3, 3))
	_, errTooBig := m.Allocate(4)
	reused, errFits := m.Allocate(3)

	// Assert
	assert.ErrorIs(t, errTooBig, ErrArenaFull)
	require.NoError(t, errFits)
	assert.Equal(t, 3, reused)
}

// TestProgramMemory_Stats verifies fragmentation reporting
// Given: A 10 slot arena with allocations at [0,3) and [6,9)
// When: Stats is called
// Then: Used, Free, Allocations and LargestFreeRun describe the holes
func TestProgramMemory_Stats(t *testing.T) {
	// Arrange
	m := NewProgramMemory(10)
	for range 3 {
		_, err := m.Allocate(3)
		require.NoError(t, err)
	}
	require.NoError(t, m.Free(3, 3))

	// Act
	stats := m.Stats()

	// Assert
	assert.Equal(t, ArenaStats{
		Capacity:       10,
		Used:           6,
		Free:           4,
		Allocations:    2,
		LargestFreeRun: 3,
	}, stats)
}

func TestProgramMemory_ExactFit(t *testing.T) {
	m := NewProgramMemory(4)

	start, err := m.Allocate(4)
	require.NoError(t, err)
	assert.Equal(t, 0, start)

	_, err = m.Allocate(1)
	assert.ErrorIs(t, err, ErrArenaFull)
}

func TestProgramMemory_AllocateEmpty(t *testing.T) {
	m := NewProgramMemory(4)

	_, err := m.Allocate(0)

	assert.ErrorIs(t, err, ErrEmptyProgram)
	assert.Equal(t, 0, m.Stats().Used)
}

// TestProgramMemory_FreeValidation verifies frees must match a live allocation
// Given: A single 3 slot allocation at 0
// When: Free is called with a wrong size, a wrong start, and twice with the right range
// Then: Every mismatched or repeated free returns ErrInvalidFree and leaves the arena intact
func TestProgramMemory_FreeValidation(t *testing.T) {
	// Arrange
	m := NewProgramMemory(8)
	start, err := m.Allocate(3)
	require.NoError(t, err)

	// Act & Assert
	assert.ErrorIs(t, m.Free(start, 2), ErrInvalidFree)
	assert.ErrorIs(t, m.Free(start+1, 2), ErrInvalidFree)
	assert.Equal(t, 3, m.Stats().Used)

	require.NoError(t, m.Free(start, 3))
	assert.ErrorIs(t, m.Free(start, 3), ErrInvalidFree)
	assert.Equal(t, 0, m.Stats().Used)
}

func TestProgramMemory_ReadWrite(t *testing.T) {
	m := NewProgramMemory(4)
	start, err := m.Allocate(2)
	require.NoError(t, err)

	require.NoError(t, m.Write(start, "set x 1"))
	require.NoError(t, m.Write(start+1, "print x"))

	line, err := m.Read(start + 1)
	require.NoError(t, err)
	assert.Equal(t, "print x", line)

	// freed slots forget their lines
	require.NoError(t, m.Free(start, 2))
	line, err = m.Read(start)
	require.NoError(t, err)
	assert.Empty(t, line)

	assert.ErrorIs(t, m.Write(4, "x"), ErrSlotOutOfRange)
	_, err = m.Read(-1)
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
}

// TestProgramMemory_WriteRequiresAllocation verifies writes stay inside live allocations
// Given: An arena with one allocation that is later freed
// When: Lines are written outside the allocation and after the free
// Then: Both writes fail and the slots stay empty
func TestProgramMemory_WriteRequiresAllocation(t *testing.T) {
	// Arrange
	m := NewProgramMemory(6)
	start, err := m.Allocate(2)
	require.NoError(t, err)

	// Act & Assert
	assert.ErrorIs(t, m.Write(start+2, "echo stray"), ErrSlotNotAllocated)

	require.NoError(t, m.Free(start, 2))
	assert.ErrorIs(t, m.Write(start, "echo late"), ErrSlotNotAllocated)

	line, err := m.Read(start + 2)
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.Equal(t, 0, m.Stats().Used)
}

func TestNewProgramMemory_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewProgramMemory(0) })
	assert.Equal(t, DefaultArenaCapacity, NewProgramMemory(DefaultArenaCapacity).Capacity())
}
