package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mlevkov/iptv-catalog/app/catalog"
	"github.com/mlevkov/iptv-catalog/app/cfg"
	"github.com/mlevkov/iptv-catalog/app/healthcheck"
	"github.com/mlevkov/iptv-catalog/app/metrics"
	"github.com/mlevkov/iptv-catalog/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	definitionCache *sources.DefinitionCache
	store           catalog.Store
	pipeline        *catalog.Pipeline
	prober          *healthcheck.Prober
	interval        time.Duration
	workerCount     int
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	taskQueue       chan TaskInterface
}

func NewScheduler(definitionCache *sources.DefinitionCache, store catalog.Store,
	pipeline *catalog.Pipeline, prober *healthcheck.Prober) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		definitionCache: definitionCache,
		store:           store,
		pipeline:        pipeline,
		prober:          prober,
		interval:        time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:     cfg.WorkerCount,
		ctx:             ctx,
		cancel:          cancel,
		taskQueue:       make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop cancels the scheduler context and waits for workers and pending
// retry goroutines. The task queue is never closed; workers drain out via
// the context, so a late EnqueueTask fails instead of panicking.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}
	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	definitions := s.definitionCache.GetDefinitions()
	if len(definitions) == 0 {
		slog.Debug("No source definitions found")
		return
	}

	slog.Debug("Processing source definitions", "count", len(definitions))

	for _, definition := range definitions {
		syncTask := NewSyncSourceTask(definition.Name, definition, s.store)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceTask", "source", definition.Name, "error", err)
			continue
		}

		if !definition.Settings.Enabled {
			slog.Debug("Source disabled, skipping RefreshSourceTask", "source", definition.Name)
			continue
		}

		refreshTask := NewRefreshSourceTask(definition.Name, definition, s.store, s.pipeline)
		if err := s.EnqueueTask(refreshTask); err != nil {
			slog.Warn("Failed to enqueue RefreshSourceTask", "source", definition.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	definitions := s.definitionCache.GetEnabledDefinitions()
	if len(definitions) == 0 {
		slog.Debug("No enabled source definitions found")
		return
	}

	slog.Debug("Processing enabled source definitions for task scheduling", "count", len(definitions))

	checkHealth := false
	for _, definition := range definitions {
		if definition.Settings.CheckHealth {
			checkHealth = true
		}

		if s.dueForRefresh(definition) {
			refreshTask := NewRefreshSourceTask(definition.Name, definition, s.store, s.pipeline)
			if err := s.EnqueueTask(refreshTask); err != nil {
				slog.Warn("Failed to enqueue RefreshSourceTask", "source", definition.Name, "error", err)
			}
		}
	}

	if checkHealth {
		healthTask := NewHealthCheckTask(s.prober, s.store)
		if err := s.EnqueueTask(healthTask); err != nil {
			slog.Warn("Failed to enqueue HealthCheckTask", "error", err)
		}
	}
}

// dueForRefresh checks a definition's refresh policy against the stored
// last-refresh timestamp. Manual sources never refresh on the ticker;
// unregistered sources wait for their SyncSourceTask.
func (s *Scheduler) dueForRefresh(definition *sources.Definition) bool {
	interval := catalog.RefreshPolicy(definition.Settings.RefreshPolicy).Interval()
	if interval == 0 {
		return false
	}

	location := definition.URL
	if definition.File != "" {
		location = definition.File
	}

	src, err := s.store.GetSourceByURL(location)
	if err != nil {
		slog.Warn("Failed to get source from catalog, skipping", "source", definition.Name, "error", err)
		return false
	}
	if src == nil {
		slog.Debug("Source not registered yet, skipping", "source", definition.Name)
		return false
	}

	if src.LastRefreshAt == nil {
		return true
	}
	return time.Since(*src.LastRefreshAt) >= interval
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

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

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	metrics.TasksExecuted.WithLabelValues(string(task.GetType())).Inc()

	if err != nil {
		metrics.TasksFailed.WithLabelValues(string(task.GetType())).Inc()
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// The retry goroutine joins the WaitGroup so Stop cannot close
			// the task queue underneath a pending re-enqueue.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
