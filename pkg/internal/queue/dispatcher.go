package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VoteCreated is the sole boundary between vote admission and aggregation:
// the identity of a freshly admitted vote record.
type VoteCreated struct {
	VoteID  uint      `json:"vote_id"`
	PollID  uint      `json:"poll_id"`
	VoterID uint      `json:"voter_id"`
	Option  string    `json:"option_selected"`
	CastAt  time.Time `json:"timestamp"`
}

// Processor consumes deliveries. Returning an error requests redelivery;
// permanent conditions (orphaned votes) must be swallowed by the processor.
type Processor interface {
	Process(ctx context.Context, event VoteCreated) error
}

type delivery struct {
	ID    string
	Event VoteCreated
}

// Dispatcher hands admitted votes to the aggregation processor with
// at-least-once semantics: a failed delivery is retried with backoff until
// the attempt cap, so the processor has to be idempotent.
type Dispatcher struct {
	processor   Processor
	deliveries  chan delivery
	workers     int
	maxAttempts int
	backoff     time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(processor Processor, buffer, workers int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		processor:   processor,
		deliveries:  make(chan delivery, buffer),
		workers:     workers,
		maxAttempts: 5,
		backoff:     250 * time.Millisecond,
	}
}

func (d *Dispatcher) Start() {
	for idx := 0; idx < d.workers; idx++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop closes the intake and waits until buffered deliveries are drained.
// Publish must not be called after Stop.
func (d *Dispatcher) Stop() {
	close(d.deliveries)
	d.wg.Wait()
}

// Publish enqueues a vote for aggregation. It is fire-and-forget from the
// caller's perspective; admission never waits for the counter update.
func (d *Dispatcher) Publish(event VoteCreated) {
	d.deliveries <- delivery{
		ID:    uuid.NewString(),
		Event: event,
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for item := range d.deliveries {
		d.handle(item)
	}
}

func (d *Dispatcher) handle(item delivery) {
	ctx := context.Background()
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.processor.Process(ctx, item.Event)
		if err == nil {
			return
		}
		log.Warn().Err(err).
			Str("delivery", item.ID).
			Uint("vote", item.Event.VoteID).
			Int("attempt", attempt).
			Msg("An error occurred when processing vote, will redeliver...")
		if attempt < d.maxAttempts {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
	}
	log.Error().
		Str("delivery", item.ID).
		Uint("vote", item.Event.VoteID).
		Msg("Vote delivery exhausted all attempts, giving up...")
}
