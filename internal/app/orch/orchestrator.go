package orch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("orchestrator stopped")

const (
	defaultQueueSize = 1024
	defaultTimeout   = 5 * time.Second
)

type Options struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Meetings *app.MeetingService
	Chat     *app.ChatService
	Verifier core.IdentityVerifier

	StoreTimeout  time.Duration
	VerifyTimeout time.Duration
	QueueSize     int
}

// Orchestrator is the single event loop that owns the connection index and
// the meeting groups. Handlers run on the loop; store and verifier calls run
// in their own goroutines and hand their result back as a continuation, so
// the index is only ever changed here and only after the store answered.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Meetings *app.MeetingService
	Chat     *app.ChatService
	Verifier core.IdentityVerifier

	storeTimeout  time.Duration
	verifyTimeout time.Duration

	events  chan Event
	done    chan struct{}
	pending atomic.Int64
	now     func() time.Time
}

func New(opts Options) *Orchestrator {
	if opts.Registry == nil {
		opts.Registry = app.NewRegistry()
	}
	if opts.Rooms == nil {
		opts.Rooms = app.NewRoomManager()
	}
	if opts.Policy == nil {
		opts.Policy = app.SimplePolicy{}
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultTimeout
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = defaultTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Orchestrator{
		Registry:      opts.Registry,
		Rooms:         opts.Rooms,
		Policy:        opts.Policy,
		Meetings:      opts.Meetings,
		Chat:          opts.Chat,
		Verifier:      opts.Verifier,
		storeTimeout:  opts.StoreTimeout,
		verifyTimeout: opts.VerifyTimeout,
		events:        make(chan Event, opts.QueueSize),
		done:          make(chan struct{}),
		now:           time.Now,
	}
}

// Run processes events until ctx is done. It must run exactly once.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	log.Info().Str("module", "orch").Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch").Int("sessions", o.Registry.Len()).Msg("event loop stopped")
			return nil
		case ev := <-o.events:
			o.dispatch(ev)
		}
	}
}

// Submit queues ev, blocking while the queue is full.
func (o *Orchestrator) Submit(ctx context.Context, ev Event) error {
	select {
	case o.events <- ev:
		return nil
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) dispatch(ev Event) {
	switch e := ev.(type) {
	case Connected:
		o.onConnected(e)
	case Inbound:
		o.onInbound(e)
	case Disconnected:
		o.onDisconnected(e.SID)
	case MeetingEnded:
		o.onMeetingEnded(e.MeetingID)
	case continuation:
		if e != nil {
			e()
		}
		o.pending.Add(-1)
	default:
		log.Error().Str("module", "orch").Msgf("unknown event %T", ev)
	}
}

// async runs work off the loop with a store deadline; the returned func, if
// any, runs back on the loop.
func (o *Orchestrator) async(work func(ctx context.Context) func()) {
	o.pending.Add(1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.storeTimeout)
		next := work(ctx)
		cancel()
		select {
		case o.events <- continuation(next):
		case <-o.done:
			o.pending.Add(-1)
		}
	}()
}

// Authenticate verifies a handshake credential. Anything but a timeout is
// reported as Unauthenticated.
func (o *Orchestrator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.Errorf(domain.KindUnauthenticated, "authentication token required")
	}
	if o.Verifier == nil {
		return domain.Identity{}, domain.Errorf(domain.KindUnavailable, "no identity verifier configured")
	}
	ctx, cancel := context.WithTimeout(ctx, o.verifyTimeout)
	defer cancel()
	id, err := o.Verifier.Verify(ctx, token)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindUnavailable, domain.KindUnauthenticated:
			return domain.Identity{}, err
		}
		return domain.Identity{}, domain.Wrap(domain.KindUnauthenticated, err, "invalid token")
	}
	return id, nil
}

// NotifyMeetingEnded tells the live group that the meeting was ended.
func (o *Orchestrator) NotifyMeetingEnded(ctx context.Context, id domain.MeetingID) error {
	return o.Submit(ctx, MeetingEnded{MeetingID: id})
}

// Drain cancels every live session and waits until their disconnect
// cleanup, including pending store calls, has gone through the loop.
func (o *Orchestrator) Drain(ctx context.Context) error {
	sessions := o.Registry.All()
	for _, s := range sessions {
		o.Registry.Cancel(s.ID())
	}
	log.Info().Str("module", "orch").Int("sessions", len(sessions)).Msg("draining")

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		if o.Registry.Len() == 0 && o.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			log.Warn().Str("module", "orch").Int("sessions", o.Registry.Len()).
				Int64("pending", o.pending.Load()).Msg("drain interrupted")
			return ctx.Err()
		case <-o.done:
			return ErrStopped
		case <-tick.C:
		}
	}
}
