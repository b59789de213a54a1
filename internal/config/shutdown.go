package config

import "sync/atomic"

// threadExit is the one process-wide singleton spec §9 allows: the
// subscriber and worker loops must observe it without a context pointer,
// since a signal handler has no way to thread one through.
var threadExit atomic.Bool

// SignalShutdown sets the process-wide exit flag. Worker and subscriber
// loops observe it as a checkpoint between polls (spec §5).
func SignalShutdown() { threadExit.Store(true) }

// ShuttingDown reports whether SignalShutdown has been called.
func ShuttingDown() bool { return threadExit.Load() }

// ResetShutdownForTest clears the flag; only meant for test isolation,
// since the flag is otherwise set exactly once per process lifetime.
func ResetShutdownForTest() { threadExit.Store(false) }
