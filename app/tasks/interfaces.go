package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing: queue
// management, worker pool control, and periodic scheduling.
// Example usage:
//
//	scheduler := NewScheduler(definitionCache, store, pipeline, prober)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshSourceTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
