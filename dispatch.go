package replcraft

import "sync"

// dispatcher runs queued jobs on one dedicated goroutine, in enqueue order.
// Event listeners execute here rather than on the transport read loop, so a
// listener may issue requests of its own: the read loop stays free to match
// the responses. While a listener blocks, delivery of later events pauses but
// response matching does not.
type dispatcher struct {
	mu     sync.Mutex
	jobs   []func()
	closed bool

	filled chan struct{}
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		filled: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// enqueue appends a job. Jobs enqueued after stop are dropped.
func (d *dispatcher) enqueue(job func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.jobs = append(d.jobs, job)
	d.mu.Unlock()

	select {
	case d.filled <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.filled:
			d.drain()
		}
	}
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.jobs) == 0 {
			d.mu.Unlock()
			return
		}
		job := d.jobs[0]
		d.jobs = d.jobs[1:]
		d.mu.Unlock()

		job()
	}
}

// stop discards queued jobs and ends the goroutine once the current job
// returns.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.jobs = nil
	d.mu.Unlock()

	close(d.done)
}
