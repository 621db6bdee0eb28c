package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerOptions struct {
	Interval     time.Duration
	InitialDelay time.Duration
	TaskTimeout  time.Duration
	WorkerCount  int
	RetryDelay   time.Duration // base delay, doubled per retry
}

// Scheduler enqueues a fresh task once after InitialDelay and then every
// Interval. Workers run tasks on a context detached from the scheduler, so
// Stop never waits for or cancels a task already running.
type Scheduler struct {
	newTask      func() TaskInterface
	interval     time.Duration
	initialDelay time.Duration
	taskTimeout  time.Duration
	retryDelay   time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
	startOnce    sync.Once
	stopOnce     sync.Once
}

func NewScheduler(newTask func() TaskInterface, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &Scheduler{
		newTask:      newTask,
		interval:     opts.Interval,
		initialDelay: opts.InitialDelay,
		taskTimeout:  opts.TaskTimeout,
		retryDelay:   opts.RetryDelay,
		workerCount:  max(opts.WorkerCount, 1),
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 16),
	}
}

// Start returns immediately; nothing runs until InitialDelay has passed.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		for i := 0; i < s.workerCount; i++ {
			go s.worker(i)
		}

		s.wg.Add(1)
		go s.loop()

		slog.Info("Scheduler started", "interval", s.interval.String(), "initial_delay", s.initialDelay.String(), "workers", s.workerCount)
	})
}

// Stop halts scheduling. A task already running finishes on its own.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		slog.Info("Scheduler stopped")
	})
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	initial := time.NewTimer(s.initialDelay)
	defer initial.Stop()

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-initial.C:
			s.enqueue("initial")
		case <-tick:
			s.enqueue("interval")
		}
	}
}

func (s *Scheduler) enqueue(trigger string) {
	task := s.newTask()
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "trigger", trigger, "error", err)
		return
	}
	slog.Debug("Task enqueued", "type", string(task.GetType()), "id", task.GetID(), "trigger", trigger)
}

func (s *Scheduler) worker(id int) {
	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.taskTimeout)
	defer cancel()

	err := s.run(taskCtx, task)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// run converts a panicking task into an error so the worker survives.
func (s *Scheduler) run(ctx context.Context, task TaskInterface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}
