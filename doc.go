// Package fibertasking is a fiber-based task-scheduling runtime for
// latency-sensitive, highly parallel workloads such as games.
//
// A bounded pool of worker goroutines drains ready tasks and resumable
// fibers; fibers are themselves long-lived goroutines recycled from a
// free pool rather than spawned per task, so the steady-state cost of
// running a task is a channel rendezvous, not a new goroutine.
//
// Typical usage:
//
//	cfg := fibertasking.Config{FiberPoolSize: 256, ThreadCount: runtime.NumCPU()}
//	err := fibertasking.Run(cfg, func(ctx *fibertasking.TaskContext, arg any) {
//		ctr := fibertasking.NewAtomicCounter(ctx.Scheduler(), 0)
//		ctx.Scheduler().AddTask(fibertasking.Task{Fn: worker, Arg: arg}, ctr)
//		ctx.WaitForCounter(ctr, 0)
//	}, nil)
package fibertasking
