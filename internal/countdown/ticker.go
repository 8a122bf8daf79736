package countdown

import (
	"sync"
	"time"
)

// DefaultInterval is the refresh period of a countdown display.
const DefaultInterval = time.Second

// Ticker is an owned refresh timer. The caller that starts it is
// responsible for calling Stop.
type Ticker struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start publishes Compute(target, clock.Now()) once immediately and then on
// every interval until Stop is called. publish runs on the ticker's own
// goroutine, one call at a time. A nil clock means SystemClock; a
// non-positive interval means DefaultInterval.
func Start(target time.Time, clock Clock, interval time.Duration, publish func(Remaining)) *Ticker {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	t := &Ticker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go t.run(target, clock, interval, publish)
	return t
}

func (t *Ticker) run(target time.Time, clock Clock, interval time.Duration, publish func(Remaining)) {
	defer close(t.done)

	tk := time.NewTicker(interval)
	defer tk.Stop()

	publish(Compute(target, clock.Now()))
	for {
		select {
		case <-t.stop:
			return
		case <-tk.C:
			// Stop wins over a tick that became ready at the same time.
			select {
			case <-t.stop:
				return
			default:
			}
			publish(Compute(target, clock.Now()))
		}
	}
}

// Stop cancels the ticker and waits for its goroutine to exit. No publish
// call starts after Stop returns. Stop is safe to call more than once and
// must not be called from inside publish.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

// Done is closed once the ticker goroutine has exited.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}
