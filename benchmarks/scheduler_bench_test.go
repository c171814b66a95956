// Package benchmarks compares fibertasking's throughput against the plain
// Go scheduler and the two goroutine-pool libraries alphadose/itogami's own
// benchmarks package measures itself against: ants and gammazero/workerpool.
package benchmarks

import (
	"sync"
	"testing"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/panjf2000/ants/v2"

	ft "github.com/Apache-HB/FiberTaskingLib"
)

func demoFunc() {
	time.Sleep(time.Duration(BenchParam) * time.Millisecond)
}

func BenchmarkGoroutines(b *testing.B) {
	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			go func() {
				demoFunc()
				wg.Done()
			}()
		}
		wg.Wait()
	}
}

func BenchmarkAntsPool(b *testing.B) {
	p, _ := ants.NewPool(PoolSize, ants.WithExpiryDuration(DefaultExpiredTime))
	defer p.Release()

	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			_ = p.Submit(func() {
				demoFunc()
				wg.Done()
			})
		}
		wg.Wait()
	}
}

func BenchmarkGammaZeroWorkerPool(b *testing.B) {
	p := workerpool.New(PoolSize)
	defer p.StopWait()

	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		wg.Add(RunTimes)
		for j := 0; j < RunTimes; j++ {
			p.Submit(func() {
				demoFunc()
				wg.Done()
			})
		}
		wg.Wait()
	}
}

func BenchmarkFiberTaskingScheduler(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ft.Run(ft.Config{FiberPoolSize: PoolSize, ThreadCount: ft.AutoThreadCount, EmptyQueuePolicy: ft.Spin}, func(ctx *ft.TaskContext, arg any) {
			ctr := ft.NewAtomicCounter(ctx.Scheduler(), 0)
			for j := 0; j < RunTimes; j++ {
				ctx.Scheduler().AddTask(ft.Task{Fn: func(*ft.TaskContext, any) { demoFunc() }}, ctr)
			}
			ctx.WaitForCounter(ctr, 0)
		}, nil)
	}
}
