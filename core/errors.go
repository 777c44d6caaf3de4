package core

import (
	"errors"
	"fmt"
)

var (
	// ErrArenaFull is returned when no contiguous free run is long enough for a program.
	ErrArenaFull = errors.New("program memory is full")

	// ErrEmptyProgram is returned when a submission carries no lines.
	ErrEmptyProgram = errors.New("program is empty")

	// ErrAlreadyQueued signals a double enqueue of the same PCB.
	ErrAlreadyQueued = errors.New("pcb already in ready queue")

	// ErrQueueEmpty is returned by Dequeue on an empty ready queue.
	ErrQueueEmpty = errors.New("ready queue is empty")

	// ErrUnknownPolicy is returned by ParsePolicy for names it does not know.
	ErrUnknownPolicy = errors.New("unknown scheduling policy")

	// ErrInvalidFree is returned when a freed range does not match a live allocation.
	ErrInvalidFree = errors.New("freed range does not match an allocation")

	// ErrSlotOutOfRange is returned for arena indexes outside [0, capacity).
	ErrSlotOutOfRange = errors.New("arena slot out of range")

	// ErrSlotNotAllocated is returned by Write for a slot outside every live allocation.
	ErrSlotNotAllocated = errors.New("arena slot is not allocated")
)

// ExecError reports an instruction that failed while a PCB was running.
type ExecError struct {
	PID  PID
	PC   int
	Line string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("pid %d: instruction %d %q failed: %v", e.PID, e.PC, e.Line, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
