package scheduler

import "errors"

// ErrSchedulerNotRunning is returned when scheduling on a stopped debouncer
var ErrSchedulerNotRunning = errors.New("scheduler is not running")
