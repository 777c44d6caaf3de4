package core

// ReadyQueue is a singly linked list of PCBs threaded through their PID
// links. It does no locking of its own: every call, and every sequence of
// calls that must be atomic, runs under the owning session's queue lock.
type ReadyQueue struct {
	table  *processTable
	head   PID
	tail   PID
	length int
}

func newReadyQueue(table *processTable) *ReadyQueue {
	return &ReadyQueue{table: table}
}

// Enqueue inserts pcb according to the policy's strategy.
func (q *ReadyQueue) Enqueue(pcb *PCB, policy Policy) error {
	if pcb.queued {
		return ErrAlreadyQueued
	}

	if q.head == 0 {
		q.head = pcb.pid
		q.tail = pcb.pid
	} else {
		policy.insert(q, pcb)
	}
	pcb.queued = true
	q.length++
	return nil
}

// Dequeue removes and returns the head.
func (q *ReadyQueue) Dequeue() (*PCB, error) {
	head := q.table.get(q.head)
	if head == nil {
		return nil, ErrQueueEmpty
	}

	q.head = head.next
	if q.head == 0 {
		q.tail = 0
	}
	head.next = 0
	head.queued = false
	q.length--
	return head, nil
}

// Head returns the next PCB to be dequeued without removing it, or nil.
func (q *ReadyQueue) Head() *PCB {
	return q.table.get(q.head)
}

func (q *ReadyQueue) Len() int {
	return q.length
}

func (q *ReadyQueue) IsEmpty() bool {
	return q.head == 0
}

// Age lowers the job-length score of every queued PCB by one.
func (q *ReadyQueue) Age() {
	for pcb := q.table.get(q.head); pcb != nil; pcb = q.table.get(pcb.next) {
		pcb.DecrementJobLengthScore()
	}
}

// PIDs returns the queued PIDs in dequeue order.
func (q *ReadyQueue) PIDs() []PID {
	pids := make([]PID, 0, q.length)
	for pid := q.head; pid != 0; pid = q.table.get(pid).next {
		pids = append(pids, pid)
	}
	return pids
}

// drain unlinks every queued PCB and returns them in dequeue order.
func (q *ReadyQueue) drain() []*PCB {
	drained := make([]*PCB, 0, q.length)
	for {
		pcb, err := q.Dequeue()
		if err != nil {
			return drained
		}
		drained = append(drained, pcb)
	}
}

func (q *ReadyQueue) appendTail(pcb *PCB) {
	q.table.get(q.tail).next = pcb.pid
	q.tail = pcb.pid
}

// insertOrdered keeps the queue sorted by ascending metric. Equal metrics
// keep arrival order: a newcomer goes after every entry it ties with.
func (q *ReadyQueue) insertOrdered(pcb *PCB, metric func(*PCB) int) {
	m := metric(pcb)
	head := q.table.get(q.head)
	tail := q.table.get(q.tail)

	switch {
	case m < metric(head):
		pcb.next = q.head
		q.head = pcb.pid
	case m >= metric(tail):
		tail.next = pcb.pid
		q.tail = pcb.pid
	default:
		// head <= m < tail, so the walk stops before running off the end.
		prev := head
		cur := q.table.get(head.next)
		for metric(cur) <= m {
			prev = cur
			cur = q.table.get(cur.next)
		}
		prev.next = pcb.pid
		pcb.next = cur.pid
	}
}
