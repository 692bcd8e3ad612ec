package camera

import (
	"sync"

	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

// Worker runs a capture source on its own goroutine, converting each raw
// frame and publishing the result to a mailbox. The worker never touches
// GPU state; the render loop is the only GPU writer.
//
// A device error is terminal: the worker records it, closes Done and
// stops producing. Malformed frames are dropped individually and the
// worker keeps going.
type Worker struct {
	src     Source
	mailbox *Mailbox

	stop chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	mu  sync.Mutex
	err error
}

// NewWorker creates a worker publishing into mailbox. The worker takes
// ownership of the source; Stop releases it.
func NewWorker(src Source, mailbox *Mailbox) *Worker {
	return &Worker{
		src:     src,
		mailbox: mailbox,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins streaming and launches the capture goroutine.
func (w *Worker) Start() error {
	if err := w.src.Start(); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Worker) run() {
	defer w.wg.Done()
	defer close(w.done)

	log := logger.WithComponent("capture-worker")
	log.Info().Str("backend", w.src.Name()).Msg("Capture worker started")

	var produced, dropped uint64
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		raw, err := w.src.ReadFrame()
		if err != nil {
			select {
			case <-w.stop:
				// Shutdown path: the read was unblocked by Stop.
				return
			default:
			}
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			log.Error().Err(err).
				Uint64("frames_produced", produced).
				Msg("Capture device failed, worker stopping")
			return
		}

		dec, err := Convert(raw)
		if err != nil {
			dropped++
			log.Warn().Err(err).Uint64("dropped", dropped).Msg("Dropping malformed frame")
			continue
		}

		w.mailbox.Publish(dec)
		produced++
	}
}

// Stop ends capture and joins the goroutine. Safe to call once the GPU
// still holds the last uploaded texture; the worker is fully stopped
// before this returns, so GPU teardown can follow.
func (w *Worker) Stop() {
	close(w.stop)
	w.src.Stop()
	w.wg.Wait()
}

// Done is closed when the worker has stopped producing, whether by Stop
// or by a terminal device error.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err returns the terminal device error, or nil if the worker stopped
// cleanly (or is still running).
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
