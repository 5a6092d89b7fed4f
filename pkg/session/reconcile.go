package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/obsdeck/obsdeck/pkg/obsws"
)

// reconcile consumes server-pushed events for one connection and applies
// incremental or scoped-refresh updates to the mirror. Closure of the event
// channel means the transport lost the connection without the session
// asking for it.
func (s *Session) reconcile(ctx context.Context, events <-chan obsws.Event) {
	defer s.loops.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				s.handleTransportClosed()
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

// handleTransportClosed forces the session into Disconnected and clears the
// mirror, exactly as an explicit Disconnect would.
func (s *Session) handleTransportClosed() {
	if s.store.State() == Disconnected {
		return
	}

	// No loops.Wait here: this runs on the reconcile goroutine itself.
	s.disconnect(false)
	s.log.Warn().Msg("connection closed by server")
	s.notify.Error("connection to server closed")
}

// handleEvent dispatches one push notification. Collection-shaped events
// never trust the payload body; the reconciler re-fetches authoritative
// state, because push payload shapes vary across notification types. The
// two output-state events are the exception: their payload is authoritative
// for the status pair, so no round trip is needed.
func (s *Session) handleEvent(ctx context.Context, ev obsws.Event) {
	if s.store.State() != Connected {
		return
	}
	epoch := s.store.currentEpoch()

	switch ev.Type {
	case obsws.EventCurrentProgramSceneChanged:
		var p obsws.CurrentProgramSceneChangedEvent
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn().Err(err).Msg("malformed scene-changed event")
			return
		}
		// The scene name is taken from the payload; the items behind it are
		// re-fetched. Each scene-changed event triggers its own refresh;
		// racing refreshes are resolved by whole-list replacement plus the
		// per-slice supersede in refreshSceneItems.
		s.store.setCurrentScene(epoch, p.SceneName)
		go func() {
			if err := s.refreshSceneItems(ctx, epoch); err != nil {
				s.log.Warn().Err(err).Msg("item refresh after scene change failed")
			}
		}()

	case obsws.EventSceneItemEnableStateChanged:
		go func() {
			if err := s.refreshSceneItems(ctx, epoch); err != nil {
				s.log.Warn().Err(err).Msg("item refresh after enable change failed")
			}
		}()

	case obsws.EventInputVolumeChanged, obsws.EventInputMuteStateChanged:
		go func() {
			if err := s.refreshAudioSources(ctx, epoch); err != nil {
				s.log.Warn().Err(err).Msg("audio refresh after input change failed")
			}
		}()

	case obsws.EventSceneCreated, obsws.EventSceneRemoved, obsws.EventSceneNameChanged:
		go func() {
			if err := s.refreshSceneList(ctx, epoch); err != nil {
				s.log.Warn().Err(err).Msg("scene-list refresh after scene event failed")
				return
			}
			if err := s.refreshCurrentScene(ctx, epoch); err != nil {
				s.log.Warn().Err(err).Msg("current-scene refresh after scene event failed")
			}
		}()

	case obsws.EventRecordStateChanged:
		var p obsws.RecordStateChangedEvent
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn().Err(err).Msg("malformed record-state event")
			return
		}
		paused := p.OutputPaused != nil && *p.OutputPaused
		s.store.setRecord(epoch, recordStateOf(p.OutputActive, paused))

	case obsws.EventStreamStateChanged:
		var p obsws.StreamStateChangedEvent
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn().Err(err).Msg("malformed stream-state event")
			return
		}
		st := StreamStopped
		if p.OutputActive {
			st = StreamLive
		}
		s.store.setStream(epoch, st)

	default:
		// Unsubscribed or irrelevant event categories.
	}
}

// pollStats samples performance stats on a fixed interval while Connected.
// This is the sole polling-based refresh; everything else is push-driven or
// command-triggered.
func (s *Session) pollStats(ctx context.Context) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.store.State() != Connected {
				continue
			}
			if err := s.refreshStats(ctx, s.store.currentEpoch()); err != nil {
				s.log.Debug().Err(err).Msg("stats poll failed")
			}
		}
	}
}
