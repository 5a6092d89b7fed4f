// Package session is the synchronization core of the remote control: it
// owns a locally-cached mirror of the remote application's state (scenes,
// sources, audio levels, recording/streaming status, performance stats),
// keeps the mirror consistent with server-pushed events, and exposes
// idempotent command operations that mutate remote state and refresh the
// mirror. Presentation layers consume the Store's read-only snapshots and
// its change bus; they never import the transport directly.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/obsdeck/obsdeck/pkg/obsws"
	"github.com/rs/zerolog"
)

// Transport is the request/response and event surface the session drives.
// *obsws.Client satisfies it. The transport value is injected once and
// reused across connect/disconnect cycles; the session never recreates it.
type Transport interface {
	Connect(ctx context.Context, address, secret string) error
	Close() error
	Call(ctx context.Context, requestType string, params, dest any) error
	Events() <-chan obsws.Event
}

// Options configures a Session. The zero value is usable.
type Options struct {
	Logger   zerolog.Logger
	Notifier Notifier

	StatsInterval     time.Duration // Performance-stats poll interval (default 2s).
	SceneListAttempts int           // Bounded retry for the scene-list fetch (default 3).
	SceneListBackoff  time.Duration // Fixed delay between scene-list attempts (default 1s).

	// AudioKinds lists input kinds treated as audio sources in addition to
	// any kind containing the substring "audio" (default: browser_source).
	AudioKinds []string
}

// Session binds the state Store, the command surface, and the event
// reconciler around a single Transport. Construct independent instances
// freely; there is no hidden global.
type Session struct {
	log    zerolog.Logger
	notify Notifier
	tr     Transport
	store  *Store
	opts   Options

	mu          sync.Mutex
	connecting  bool
	cancelLoops context.CancelFunc
	loops       sync.WaitGroup

	guardMu  sync.Mutex
	guardSeq uint64
	guards   map[Slice]refreshGuard
}

// refreshGuard tracks the in-flight refresh of one slice.
type refreshGuard struct {
	cancel context.CancelFunc
	seq    uint64
}

// New creates a Session around the given transport.
func New(tr Transport, opts Options) *Session {
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 2 * time.Second
	}
	if opts.SceneListAttempts <= 0 {
		opts.SceneListAttempts = 3
	}
	if opts.SceneListBackoff <= 0 {
		opts.SceneListBackoff = time.Second
	}
	if opts.AudioKinds == nil {
		opts.AudioKinds = []string{"browser_source"}
	}

	return &Session{
		log:    opts.Logger,
		notify: opts.Notifier,
		tr:     tr,
		store:  NewStore(),
		opts:   opts,
		guards: make(map[Slice]refreshGuard),
	}
}

// Store returns the state mirror for read access and change subscriptions.
func (s *Session) Store() *Store { return s.store }

// Connect establishes a session with the remote endpoint, then performs a
// best-effort full refresh. It fails fast with ErrAlreadyConnecting when a
// connect is already in flight. When already connected it disconnects
// first, making reconnect idempotent. On failure the state reverts to
// Disconnected and the error is both returned and surfaced through the
// Notifier.
func (s *Session) Connect(ctx context.Context, address, secret string) error {
	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return ErrAlreadyConnecting
	}
	s.connecting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	if s.store.State() == Connected {
		s.disconnect(true)
	}

	s.store.setState(Connecting)

	if err := s.tr.Connect(ctx, address, secret); err != nil {
		s.store.setState(Disconnected)
		s.log.Error().Err(err).Str("address", address).Msg("connect failed")
		s.notify.Error("failed to connect to " + address)
		return &ConnectError{Address: address, Err: err}
	}

	epoch := s.store.markConnected()
	events := s.tr.Events()

	loopCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelLoops = cancel
	s.mu.Unlock()

	s.loops.Add(2)
	go s.reconcile(loopCtx, events)
	go s.pollStats(loopCtx)

	s.log.Info().Str("address", address).Msg("connected")
	s.notify.Success("connected to " + address)

	if err := s.refreshAll(ctx, epoch); err != nil {
		s.log.Warn().Err(err).Msg("initial refresh incomplete")
	}

	return nil
}

// Disconnect closes the transport, clears every cached collection and
// status field, and sets the state to Disconnected. It is a no-op when
// already disconnected; calling it twice leaves the same cleared state as
// calling it once.
func (s *Session) Disconnect() {
	if s.store.State() == Disconnected {
		return
	}

	s.disconnect(true)
	s.log.Info().Msg("disconnected")
	s.notify.Info("disconnected")
}

// disconnect stops the background loops, resets the mirror, and closes the
// transport. The reset is unconditional (stale data never survives) and
// happens before the transport close so the reconciler, on seeing the event
// channel close, finds the state already Disconnected and stays quiet.
func (s *Session) disconnect(wait bool) {
	s.mu.Lock()
	cancel := s.cancelLoops
	s.cancelLoops = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.store.reset()
	_ = s.tr.Close()
	if wait {
		s.loops.Wait()
	}
}

// scoped derives a per-slice refresh context. Starting a new refresh of a
// slice cancels the previous in-flight refresh of the same slice, so a
// superseded fetch can no longer win the write race with fresher data.
// The returned cleanup must be called when the refresh finishes.
func (s *Session) scoped(ctx context.Context, slice Slice) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.guardMu.Lock()
	s.guardSeq++
	seq := s.guardSeq
	if prev, ok := s.guards[slice]; ok {
		prev.cancel()
	}
	s.guards[slice] = refreshGuard{cancel: cancel, seq: seq}
	s.guardMu.Unlock()

	cleanup := func() {
		s.guardMu.Lock()
		if g, ok := s.guards[slice]; ok && g.seq == seq {
			delete(s.guards, slice)
		}
		s.guardMu.Unlock()
		cancel()
	}

	return ctx, cleanup
}
