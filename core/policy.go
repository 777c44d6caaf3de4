package core

import (
	"fmt"
	"strings"
)

// UnboundedQuantum lets a PCB run until it completes.
const UnboundedQuantum = -1

// PolicyKind enumerates the scheduling policies.
type PolicyKind int

const (
	// PolicyFCFS runs programs to completion in arrival order.
	PolicyFCFS PolicyKind = iota

	// PolicySJF runs programs to completion, shortest program first.
	PolicySJF

	// PolicyRR preempts every 2 instructions and rotates in arrival order.
	PolicyRR

	// PolicyAging preempts every instruction and orders by a job-length
	// score that decreases while a program waits.
	PolicyAging

	// PolicyRR30 is round robin with a 30 instruction quantum.
	PolicyRR30
)

var policyNames = map[PolicyKind]string{
	PolicyFCFS:  "FCFS",
	PolicySJF:   "SJF",
	PolicyRR:    "RR",
	PolicyAging: "AGING",
	PolicyRR30:  "RR30",
}

func (k PolicyKind) String() string {
	if name, ok := policyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// Policy bundles a quantum, an insertion strategy and a priority metric.
// It is a value type and is never mutated once built. The zero value is FCFS.
type Policy struct {
	kind PolicyKind
}

// ParsePolicy builds a Policy from its name. Matching ignores letter case and
// surrounding whitespace, so "rr30" and " RR30 " both select RR30.
func ParsePolicy(name string) (Policy, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for kind, n := range policyNames {
		if n == want {
			return Policy{kind: kind}, nil
		}
	}
	return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// MustParsePolicy is like ParsePolicy but panics on an unknown name.
func MustParsePolicy(name string) Policy {
	p, err := ParsePolicy(name)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Policy) Kind() PolicyKind { return p.kind }
func (p Policy) String() string   { return p.kind.String() }

// Quantum returns the maximum number of instructions per dispatch, or
// UnboundedQuantum.
func (p Policy) Quantum() int {
	switch p.kind {
	case PolicyRR:
		return 2
	case PolicyAging:
		return 1
	case PolicyRR30:
		return 30
	default:
		return UnboundedQuantum
	}
}

// Aging reports whether waiting PCBs have their score lowered every cycle.
func (p Policy) Aging() bool {
	return p.kind == PolicyAging
}

// Ordered reports whether the queue is kept sorted by Metric.
func (p Policy) Ordered() bool {
	return p.kind == PolicySJF || p.kind == PolicyAging
}

// Metric returns the value an ordered policy sorts by; lower runs first.
func (p Policy) Metric(pcb *PCB) int {
	switch p.kind {
	case PolicySJF:
		return pcb.programSize
	case PolicyAging:
		return pcb.jobLengthScore
	default:
		return 0
	}
}

// insert places pcb into a non-empty queue.
func (p Policy) insert(q *ReadyQueue, pcb *PCB) {
	if p.Ordered() {
		q.insertOrdered(pcb, p.Metric)
		return
	}
	q.appendTail(pcb)
}

// rerunsImmediately reports whether the aging fast path applies: the PCB
// that just ran would be selected again anyway, so it skips the queue.
func (p Policy) rerunsImmediately(pcb *PCB, q *ReadyQueue) bool {
	if !p.Aging() {
		return false
	}
	head := q.Head()
	if head == nil {
		return false
	}
	return pcb.jobLengthScore <= head.jobLengthScore
}
