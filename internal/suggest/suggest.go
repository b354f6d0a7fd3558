// Package suggest coordinates streaming autocomplete lookups: it debounces
// rapid query changes per input field, dispatches at most one lookup per
// quiescence window, and guarantees that only the most recent dispatch for a
// field can reach the sink.
//
// Cancellation is logical: a superseded lookup runs to completion but its
// result is dropped at delivery time by comparing its generation token against
// the field's current one. All deliveries happen on one goroutine owned by the
// scheduler, so sink implementations never need their own locking.
package suggest

import (
	"context"
	"sync"
	"time"

	"github.com/openfleet/mileage-api/internal/geocode"
)

// DefaultWindow is the quiescence interval: a dispatch fires only after the
// field has been quiet this long.
const DefaultWindow = 150 * time.Millisecond

// deliveryBuffer absorbs bursts from concurrent lookups so worker goroutines
// rarely block on the delivery channel.
const deliveryBuffer = 16

// Result is what a completed lookup delivers: a ranked candidate list, or the
// error that stopped it. A nil-candidates, nil-error result clears the field's
// suggestions.
type Result struct {
	Candidates []geocode.Candidate
	Err        error
}

// Sink receives finished results together with the field that produced them
// and the generation token of the dispatch. Calls are serialized by the
// scheduler's delivery goroutine.
type Sink interface {
	Deliver(fieldID string, token uint64, res Result)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(fieldID string, token uint64, res Result)

// Deliver satisfies Sink.
func (f SinkFunc) Deliver(fieldID string, token uint64, res Result) { f(fieldID, token, res) }

// Scheduler debounces query changes per field and feeds results to a Sink.
// One Scheduler instance serves any number of fields; fields are independent
// of each other.
type Scheduler struct {
	source geocode.Geocoder
	sink   Sink
	window time.Duration

	mu     sync.Mutex
	fields map[string]*fieldState

	deliveries chan delivery
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// fieldState tracks the newest generation for one input field. token is the
// only cross-goroutine shared state per field; it is read and written under
// Scheduler.mu.
type fieldState struct {
	token uint64
	timer *time.Timer
}

type delivery struct {
	fieldID string
	token   uint64
	res     Result
}

// NewScheduler creates a Scheduler that resolves queries through source
// (typically a *geocode.CachedGeocoder, so cache hits skip the network) and
// delivers to sink. window <= 0 selects DefaultWindow.
func NewScheduler(source geocode.Geocoder, sink Sink, window time.Duration) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &Scheduler{
		source:     source,
		sink:       sink,
		window:     window,
		fields:     make(map[string]*fieldState),
		deliveries: make(chan delivery, deliveryBuffer),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.deliverLoop()
	return s
}

// OnChange records a new query value for the field. Any pending dispatch for
// the field is superseded. A blank query cancels scheduling outright and
// clears the field's downstream results immediately, without a network call.
func (s *Scheduler) OnChange(fieldID, text string) {
	s.mu.Lock()
	fs, ok := s.fields[fieldID]
	if !ok {
		fs = &fieldState{}
		s.fields[fieldID] = fs
	}
	if fs.timer != nil {
		fs.timer.Stop()
		fs.timer = nil
	}
	fs.token++
	token := fs.token

	if geocode.Normalize(text) == "" {
		s.mu.Unlock()
		s.enqueue(delivery{fieldID: fieldID, token: token, res: Result{}})
		return
	}

	fs.timer = time.AfterFunc(s.window, func() {
		s.dispatch(fieldID, token, text)
	})
	s.mu.Unlock()
}

// Close stops the delivery goroutine and waits for it to drain. Lookups still
// in flight run to completion but their results are dropped.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// dispatch runs on the timer goroutine after the quiescence window elapsed
// with no newer change. It resolves the query and hands the result to the
// delivery loop; staleness is checked before the lookup (to skip wasted
// network calls) and again at delivery time (the authoritative check).
func (s *Scheduler) dispatch(fieldID string, token uint64, text string) {
	if !s.current(fieldID, token) {
		return
	}

	cands, err := s.source.Candidates(context.Background(), text)
	s.enqueue(delivery{fieldID: fieldID, token: token, res: Result{Candidates: cands, Err: err}})
}

// enqueue hands a finished result to the delivery goroutine, or drops it if
// the scheduler is closed.
func (s *Scheduler) enqueue(d delivery) {
	select {
	case s.deliveries <- d:
	case <-s.done:
	}
}

// deliverLoop is the single owner of sink delivery. The stale check happens
// here, at the moment of delivery: a result whose token no longer matches the
// field's current generation is discarded, never delivered.
func (s *Scheduler) deliverLoop() {
	defer s.wg.Done()
	for {
		select {
		case d := <-s.deliveries:
			if !s.current(d.fieldID, d.token) {
				continue
			}
			s.sink.Deliver(d.fieldID, d.token, d.res)
		case <-s.done:
			return
		}
	}
}

// current reports whether token is still the newest generation for the field.
func (s *Scheduler) current(fieldID string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.fields[fieldID]
	return ok && fs.token == token
}
