package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task 处理下标 i 对应的任务
type Task func(ctx context.Context, i int) error

type Config struct {
	BatchSize int           // 每批并发数
	Delay     time.Duration // 批次之间的等待
}

// BatchRunner 顺序执行批次，批次内并发
type BatchRunner struct {
	size  int
	delay time.Duration
}

func NewBatchRunner(cfg Config) *BatchRunner {
	size := cfg.BatchSize
	if size < 1 {
		size = 1
	}
	return &BatchRunner{size: size, delay: cfg.Delay}
}

func (r *BatchRunner) Size() int {
	return r.size
}

// Run executes task for every index in [0, total), one batch at a time.
// afterBatch is called with the number of finished tasks once each batch has fully completed.
// The delay is inserted between batches, never after the last one.
func (r *BatchRunner) Run(ctx context.Context, total int, task Task, afterBatch func(done int)) error {
	for start := 0; start < total; start += r.size {
		if start > 0 && r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		end := min(start+r.size, total)
		if err := r.Batch(ctx, start, end, task); err != nil {
			return err
		}

		if afterBatch != nil {
			afterBatch(end)
		}
	}
	return nil
}

// Batch runs task concurrently for indices [start, end) and waits for all of them.
// A panic inside a task is returned as an error.
func (r *BatchRunner) Batch(ctx context.Context, start, end int, task Task) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := start; i < end; i++ {
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("task %d panicked: %v", i, rec)
				}
			}()
			return task(gctx, i)
		})
	}

	return g.Wait()
}
