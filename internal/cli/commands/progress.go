package commands

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/leapstack-labs/leapcrm/internal/entitylist"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
)

// slowRequestDelay is how long a request may run before browse says so.
const slowRequestDelay = 300 * time.Millisecond

// changeSource pings subscribers after every state change. Controllers and
// picklist loaders implement it.
type changeSource interface {
	Subscribe() <-chan struct{}
	Unsubscribe(ch <-chan struct{})
}

// progress prints a status line for every request that is still in flight
// after delay. Each watched source gets its own goroutine until stop.
type progress struct {
	w     io.Writer
	delay time.Duration

	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

func newProgress(w io.Writer, delay time.Duration) *progress {
	return &progress{w: w, delay: delay, done: make(chan struct{})}
}

// watch follows src. status reports whether src is busy and the line to
// print when it stays busy; it is called from the watching goroutine.
func (p *progress) watch(src changeSource, status func() (busy bool, line string)) {
	ch := src.Subscribe()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer src.Unsubscribe(ch)

		var timer *time.Timer
		var fire <-chan time.Time
		armed := false
		disarm := func() {
			if timer != nil {
				timer.Stop()
			}
			timer, fire, armed = nil, nil, false
		}
		defer disarm()

		for {
			select {
			case <-p.done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				busy, _ := status()
				if !busy {
					disarm()
				} else if !armed {
					timer = time.NewTimer(p.delay)
					fire, armed = timer.C, true
				}
			case <-fire:
				// one line per busy period
				fire = nil
				if busy, line := status(); busy {
					_, _ = fmt.Fprintln(p.w, line)
				}
			}
		}
	}()
}

// list watches a list controller.
func (p *progress) list(ctrl *entitylist.Controller) {
	p.watch(ctrl, func() (bool, string) {
		st := ctrl.Snapshot()
		return st.Loading, fmt.Sprintf("Loading %s…", st.EntityType)
	})
}

// loader watches a picklist loader.
func (p *progress) loader(ld *picklist.Loader) {
	p.watch(ld, func() (bool, string) {
		return ld.Snapshot().Loading, fmt.Sprintf("Loading %s…", ld.EntityType())
	})
}

// stop ends every watch and waits for the goroutines to exit.
func (p *progress) stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

// lockedWriter serializes writes from the prompt loop and the watchers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(b []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(b)
}
