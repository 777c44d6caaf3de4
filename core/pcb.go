package core

import "time"

// PID identifies a PCB within a session. Zero is never assigned and doubles
// as the nil link in the ready queue.
type PID uint64

// PCB is one loaded program and its execution cursor.
//
// A PCB is owned either by the ready queue or by the scheduler currently
// running it, never both. Link fields are only touched under the session's
// queue lock.
type PCB struct {
	pid            PID
	memoryStart    int
	programSize    int
	pc             int
	jobLengthScore int
	background     bool

	// intrusive ready-queue link
	next   PID
	queued bool

	submittedAt  time.Time
	dispatches   int
	instructions int
}

func newPCB(pid PID, memoryStart, programSize int) *PCB {
	return &PCB{
		pid:            pid,
		memoryStart:    memoryStart,
		programSize:    programSize,
		pc:             memoryStart,
		jobLengthScore: programSize,
		submittedAt:    time.Now(),
	}
}

func (p *PCB) PID() PID            { return p.pid }
func (p *PCB) MemoryStart() int    { return p.memoryStart }
func (p *PCB) ProgramSize() int    { return p.programSize }
func (p *PCB) PC() int             { return p.pc }
func (p *PCB) JobLengthScore() int { return p.jobLengthScore }
func (p *PCB) Background() bool    { return p.background }

// Queued reports whether the PCB is currently a member of a ready queue.
func (p *PCB) Queued() bool { return p.queued }

// IncrementPC advances the program counter by one. Callers must not advance
// past completion.
func (p *PCB) IncrementPC() {
	p.pc++
}

// DecrementJobLengthScore lowers the aging metric by one, stopping at zero.
func (p *PCB) DecrementJobLengthScore() {
	if p.jobLengthScore > 0 {
		p.jobLengthScore--
	}
}

// ToggleBackground flips the background flag.
func (p *PCB) ToggleBackground() {
	p.background = !p.background
}

// Completed reports whether every line of the program has run.
func (p *PCB) Completed() bool {
	return p.pc == p.memoryStart+p.programSize
}

// Remaining returns the number of lines left to run.
func (p *PCB) Remaining() int {
	return p.memoryStart + p.programSize - p.pc
}

// processTable owns every live PCB of a session, addressed by PID.
type processTable struct {
	lastPID PID
	records map[PID]*PCB
}

func newProcessTable() *processTable {
	return &processTable{records: make(map[PID]*PCB)}
}

func (t *processTable) create(memoryStart, programSize int) *PCB {
	t.lastPID++
	pcb := newPCB(t.lastPID, memoryStart, programSize)
	t.records[pcb.pid] = pcb
	return pcb
}

// get returns nil for the zero PID or a released one.
func (t *processTable) get(pid PID) *PCB {
	if pid == 0 {
		return nil
	}
	return t.records[pid]
}

func (t *processTable) release(pid PID) {
	delete(t.records, pid)
}

func (t *processTable) len() int {
	return len(t.records)
}
