// Package background runs long-lived processes that stop when asked.
package background

// the shutdown and completed channels for a background process
type shutdown struct {
	shutdown chan struct{}
	finished chan struct{}
}

// T is the handle for a set of running processes
type T struct {
	s []shutdown
}

// Process is run on its own goroutine until shutdown is closed.
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes is the list of processes to start
type Processes []Process

// Start runs each process with args.
func Start(processes Processes, args interface{}) *T {
	register := &T{
		s: make([]shutdown, len(processes)),
	}

	for i, p := range processes {
		sd := make(chan struct{})
		finished := make(chan struct{})
		register.s[i].shutdown = sd
		register.s[i].finished = finished
		go func(p Process) {
			defer close(finished)
			p.Run(args, sd)
		}(p)
	}
	return register
}

// Stop closes every shutdown channel and waits for all processes to return.
// Processes that already returned are not waited on twice.
func (t *T) Stop() {
	if t == nil {
		return
	}
	for _, s := range t.s {
		close(s.shutdown)
	}
	for _, s := range t.s {
		<-s.finished
	}
}
