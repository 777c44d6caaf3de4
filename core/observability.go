package core

import "time"

// CompletionRecord captures a PCB that ran to completion.
type CompletionRecord struct {
	PID          PID
	ProgramSize  int
	Background   bool
	Policy       string
	Dispatches   int
	Instructions int
	SubmittedAt  time.Time
	CompletedAt  time.Time
	Turnaround   time.Duration
}

// SessionStats represents runtime observability state for a session.
type SessionStats struct {
	ID        string
	Name      string
	Policy    string
	Queued    int
	Live      int
	Submitted int64
	Completed int64
	Rejected  int64
	Aborted   int64
	Arena     ArenaStats

	LastCompletedPID PID
	LastCompletedAt  time.Time
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	Session     string
	Workers     int
	LiveWorkers int
	Active      int
	Queued      int
	State       PoolState
	Running     bool
}
