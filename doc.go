// Package procpool keeps the auxiliary processes of a test suite (databases,
// fake APIs, message brokers) running across tests and stops the ones that
// fall out of use.
//
// A Definition describes a process: executable, arguments, working directory
// and extensions. Its content is hashed into a key, and every definition with
// the same key resolves to the same Instance, so a server started by one test
// is reused by the next. Options such as timeouts and the ready test are not
// part of the key; resolving a definition refreshes them on the cached
// instance.
//
// The pool protects two kinds of running instances: those used since the last
// Cleanup, and the most recently started ones up to WithMaxRunning. Anything
// else that is still running is stopped.
//
// # Basic Usage
//
//	pool := procpool.SharedPool(procpool.WithMaxRunning(2))
//
//	func TestAPI(t *testing.T) {
//	    defer procpool.SharedPool().Cleanup()
//
//	    p := procpool.SharedPool()
//	    inst, err := p.Define("/usr/bin/redis-server").
//	        Extend(procpool.ServerExtension(p)).
//	        Argument("--port", "0").
//	        ReadyTest(procpool.PortOpen).
//	        Start(context.Background())
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    port := inst.(procpool.Portable).Port()
//	    // Use port...
//	}
//
// # Diagnostics
//
// When a test fails because a process died, Pool.ReportFailedInstance prints
// the state log, working directory and log file of the most recently broken
// instance. Pool.ReportStats shows how often each instance was started and
// evicted; a high "extra LRU stops" total means WithMaxRunning is too small
// for the suite.
package procpool
