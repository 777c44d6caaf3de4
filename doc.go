// Package simpleos is the scheduling core of a teaching shell: programs are
// loaded line by line into a fixed program memory, tracked by process control
// blocks (PCBs) in a ready queue, and executed under one of five policies
// (FCFS, SJF, RR, AGING, RR30) either on the calling goroutine or by a pool of
// workers.
//
// # Quick Start
//
// Build a runtime from configuration and an Executor that runs one line:
//
//	cfg := config.Default()
//	cfg.Policy = "RR"
//
//	rt, err := simpleos.NewFromConfig(cfg, simpleos.ExecutorFunc(func(ctx context.Context, line string) error {
//		fmt.Println(line)
//		return nil
//	}))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.Close()
//
//	rt.Session.Submit([]string{"echo a", "echo b"})
//	rt.Session.Submit([]string{"echo c"})
//
//	if err := rt.RunSingleThreaded(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Key Concepts
//
// Session: the scheduler context. It owns the program memory, the process
// table and the ready queue, and is the only entry point for submitting
// programs.
//
// Policy: decides where a PCB enters the ready queue and how many lines it
// runs per dispatch. SJF orders by program size, AGING by a job-length score
// that decays while a PCB waits.
//
// Scheduler: runs the queue on the calling goroutine until it drains.
//
// WorkerPool: runs the queue on N workers. Lines are still executed one at a
// time; workers only overlap on queue bookkeeping. Shutdown drains the queue
// before stopping.
//
// # Thread Safety
//
// Executor.Execute is never called concurrently, so executors may keep
// unsynchronized state. An executor may submit programs through
// SessionFromContext, and ask a pool to stop through PoolFromContext.
package simpleos
