// Command fiberbench runs fibertasking's reference scenarios against a
// live scheduler, as both a runnable demonstration and a throughput probe.
package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"

	ft "github.com/Apache-HB/FiberTaskingLib"
)

func main() {
	app := &cli.App{
		Name:  "fiberbench",
		Usage: "run fibertasking's reference scenarios",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "fibers", Value: 512, Usage: "fiber pool size"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "worker count"},
		},
		Commands: []*cli.Command{
			triangleCommand(),
			producerConsumerCommand(),
			fibtexStressCommand(),
			pinnedWaitCommand(),
			policyCompareCommand(),
			scopedLockCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func cfgFrom(c *cli.Context) ft.Config {
	return ft.Config{
		FiberPoolSize:    c.Int("fibers"),
		ThreadCount:      c.Int("workers"),
		EmptyQueuePolicy: ft.Spin,
	}
}

// triangleCommand sums 1..N by partitioning into chunk-sized tasks.
func triangleCommand() *cli.Command {
	return &cli.Command{
		Name:  "triangle",
		Usage: "sum 1..N in chunks and print the running total",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "n", Value: 47593243},
			&cli.Int64Flag{Name: "chunk", Value: 10000},
		},
		Action: func(c *cli.Context) error {
			n, chunk := c.Int64("n"), c.Int64("chunk")
			var total atomic.Int64
			start := time.Now()
			err := ft.Run(cfgFrom(c), func(ctx *ft.TaskContext, _ any) {
				ctr := ft.NewAtomicCounter(ctx.Scheduler(), 0)
				for lo := int64(1); lo <= n; lo += chunk {
					hi := lo + chunk - 1
					if hi > n {
						hi = n
					}
					lo := lo
					ctx.Scheduler().AddTask(ft.Task{Fn: func(*ft.TaskContext, any) {
						var sum int64
						for v := lo; v <= hi; v++ {
							sum += v
						}
						total.Add(sum)
					}}, ctr)
				}
				ctx.WaitForCounter(ctr, 0)
			}, nil)
			if err != nil {
				return err
			}
			want := n * (n + 1) / 2
			fmt.Printf("sum(1..%d) = %d (want %d, match=%v) in %s\n", n, total.Load(), want, total.Load() == want, time.Since(start))
			return nil
		},
	}
}

// producerConsumerCommand runs P producers that each spawn C consumer
// tasks incrementing a shared atomic.
func producerConsumerCommand() *cli.Command {
	return &cli.Command{
		Name:  "producer-consumer",
		Usage: "producers each spawn many consumers incrementing a shared atomic",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "producers", Value: 100},
			&cli.IntFlag{Name: "consumers", Value: 10000},
		},
		Action: func(c *cli.Context) error {
			producers, consumers := c.Int("producers"), c.Int("consumers")
			var total atomic.Int64
			start := time.Now()
			err := ft.Run(cfgFrom(c), func(ctx *ft.TaskContext, _ any) {
				root := ft.NewAtomicCounter(ctx.Scheduler(), 0)
				producerTask := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					sub := ft.NewAtomicCounter(ctx.Scheduler(), 0)
					tasks := make([]ft.Task, consumers)
					for i := range tasks {
						tasks[i] = ft.Task{Fn: func(*ft.TaskContext, any) { total.Add(1) }}
					}
					ctx.Scheduler().AddTasks(tasks, sub)
					ctx.WaitForCounter(sub, 0)
				}}
				tasks := make([]ft.Task, producers)
				for i := range tasks {
					tasks[i] = producerTask
				}
				ctx.Scheduler().AddTasks(tasks, root)
				ctx.WaitForCounter(root, 0)
			}, nil)
			if err != nil {
				return err
			}
			want := int64(producers) * int64(consumers)
			fmt.Printf("total = %d (want %d, match=%v) in %s\n", total.Load(), want, total.Load() == want, time.Since(start))
			return nil
		},
	}
}

// fibtexStressCommand runs many tasks across the three Fibtex acquisition
// modes, each performing one non-atomic increment under mutual exclusion.
func fibtexStressCommand() *cli.Command {
	return &cli.Command{
		Name:  "fibtex-stress",
		Usage: "hammer a shared Fibtex through all guard variants",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "iterations", Value: 2000},
		},
		Action: func(c *cli.Context) error {
			iterations := c.Int("iterations")
			var counter int
			start := time.Now()
			err := ft.Run(cfgFrom(c), func(ctx *ft.TaskContext, _ any) {
				mu := ft.NewFibtex(ctx.Scheduler(), 32)
				root := ft.NewAtomicCounter(ctx.Scheduler(), 0)

				incLockGuard := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					g := ft.NewLockGuard(ctx, mu)
					counter++
					g.Release()
				}}
				incSpinGuard := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					g := ft.NewSpinLockGuard(ctx, mu)
					counter++
					g.Release()
				}}
				incInfiniteGuard := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					g := ft.NewInfiniteSpinLockGuard(ctx, mu)
					counter++
					g.Release()
				}}
				incUniqueLock := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					u := ft.NewUniqueLock(ctx, mu)
					u.Lock()
					counter++
					u.Unlock()
				}}
				incUniqueSpin := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					u := ft.NewUniqueLock(ctx, mu)
					u.LockSpin()
					counter++
					u.Unlock()
				}}
				incScopedLock := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					sl, _ := ft.NewScopedLock(ctx, false, mu)
					counter++
					sl.Release()
				}}
				variants := []ft.Task{incLockGuard, incSpinGuard, incInfiniteGuard, incUniqueLock, incUniqueSpin, incScopedLock}

				var batch []ft.Task
				for i := 0; i < iterations; i++ {
					for _, v := range variants {
						batch = append(batch, v, v)
					}
				}
				ctx.Scheduler().AddTasks(batch, root)
				ctx.WaitForCounter(root, 0)
			}, nil)
			if err != nil {
				return err
			}
			want := 6 * 2 * iterations
			fmt.Printf("counter = %d (want %d, match=%v) in %s\n", counter, want, counter == want, time.Since(start))
			return nil
		},
	}
}

// pinnedWaitCommand demonstrates that a pinned wait always resumes on the
// worker it parked from.
func pinnedWaitCommand() *cli.Command {
	return &cli.Command{
		Name:  "pinned-wait",
		Usage: "park a fiber pinned to its worker and confirm it resumes there",
		Action: func(c *cli.Context) error {
			err := ft.Run(cfgFrom(c), func(ctx *ft.TaskContext, _ any) {
				ctr := ft.NewAtomicCounter(ctx.Scheduler(), 0)
				parkedWorker := -1
				resumedWorker := -1

				root := ft.NewAtomicCounter(ctx.Scheduler(), 0)
				// Holds ctr at 1 for a while so the waiter below is
				// guaranteed to observe it non-zero and park.
				ctx.Scheduler().AddTask(ft.Task{Fn: func(*ft.TaskContext, any) {
					time.Sleep(10 * time.Millisecond)
				}}, ctr)
				ctx.Scheduler().AddTask(ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					parkedWorker = ctx.WorkerIndex()
					ctx.WaitForCounterPinned(ctr, 0)
					resumedWorker = ctx.WorkerIndex()
				}}, root)
				ctx.WaitForCounter(root, 0)

				fmt.Printf("parked on worker %d, resumed on worker %d, match=%v\n", parkedWorker, resumedWorker, parkedWorker == resumedWorker)
			}, nil)
			return err
		},
	}
}

// policyCompareCommand runs the same workload under each EmptyQueuePolicy,
// to show results are identical while wall time differs.
func policyCompareCommand() *cli.Command {
	return &cli.Command{
		Name:  "policy-compare",
		Usage: "run the producer/consumer workload under each empty-queue policy",
		Action: func(c *cli.Context) error {
			policies := []ft.EmptyQueuePolicy{ft.Spin, ft.Yield, ft.Sleep}
			for _, p := range policies {
				var total atomic.Int64
				cfg := cfgFrom(c)
				cfg.EmptyQueuePolicy = p
				start := time.Now()
				err := ft.Run(cfg, func(ctx *ft.TaskContext, _ any) {
					root := ft.NewAtomicCounter(ctx.Scheduler(), 0)
					tasks := make([]ft.Task, 1000)
					for i := range tasks {
						tasks[i] = ft.Task{Fn: func(*ft.TaskContext, any) { total.Add(1) }}
					}
					ctx.Scheduler().AddTasks(tasks, root)
					ctx.WaitForCounter(root, 0)
				}, nil)
				if err != nil {
					return err
				}
				fmt.Printf("policy=%-6s total=%d elapsed=%s\n", p, total.Load(), time.Since(start))
			}
			return nil
		},
	}
}

// scopedLockCommand runs two fibers locking the same pair of Fibtexes in
// opposite order through ScopedLock, many times, to demonstrate that its
// fixed acquisition order avoids deadlock regardless of the order callers
// list the mutexes in.
func scopedLockCommand() *cli.Command {
	return &cli.Command{
		Name:  "scoped-lock",
		Usage: "lock a pair of Fibtexes in opposite orders via ScopedLock and confirm no deadlock",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "rounds", Value: 5000},
		},
		Action: func(c *cli.Context) error {
			rounds := c.Int("rounds")
			start := time.Now()
			err := ft.Run(cfgFrom(c), func(ctx *ft.TaskContext, _ any) {
				a := ft.NewFibtex(ctx.Scheduler(), 16)
				b := ft.NewFibtex(ctx.Scheduler(), 16)
				root := ft.NewAtomicCounter(ctx.Scheduler(), 0)

				forward := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					sl, ok := ft.NewScopedLock(ctx, false, a, b)
					if ok {
						sl.Release()
					}
				}}
				backward := ft.Task{Fn: func(ctx *ft.TaskContext, _ any) {
					sl, ok := ft.NewScopedLock(ctx, false, b, a)
					if ok {
						sl.Release()
					}
				}}

				var batch []ft.Task
				for i := 0; i < rounds; i++ {
					batch = append(batch, forward, backward)
				}
				ctx.Scheduler().AddTasks(batch, root)
				ctx.WaitForCounter(root, 0)
			}, nil)
			if err != nil {
				return err
			}
			fmt.Printf("completed %d forward/backward round pairs with no deadlock in %s\n", rounds, time.Since(start))
			return nil
		},
	}
}
