package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/obsdeck/obsdeck/pkg/obsws"
)

// RefreshAll re-reads the entire remote mirror. It is a no-op unless
// Connected. Stages run in order (scene list, current scene, scene items,
// audio sources, streaming status, recording status, stats) because the
// item and audio stages depend on knowing the current scene. A failed stage
// is logged and reported but does not abort the remaining stages; the
// returned error joins one StageError per failed stage.
func (s *Session) RefreshAll(ctx context.Context) error {
	if s.store.State() != Connected {
		return nil
	}
	return s.refreshAll(ctx, s.store.currentEpoch())
}

func (s *Session) refreshAll(ctx context.Context, epoch uint64) error {
	stages := []struct {
		name string
		fn   func(context.Context, uint64) error
	}{
		{"scene_list", s.refreshSceneList},
		{"current_scene", s.refreshCurrentScene},
		{"scene_items", s.refreshSceneItems},
		{"audio_sources", s.refreshAudioSources},
		{"stream_status", s.refreshStreamStatus},
		{"record_status", s.refreshRecordStatus},
		{"stats", s.refreshStats},
	}

	var errs []error
	for _, stage := range stages {
		if err := stage.fn(ctx, epoch); err != nil {
			s.log.Warn().Err(err).Str("stage", stage.name).Msg("refresh stage failed")
			s.notify.Warn("refresh failed: " + stage.name)
			errs = append(errs, &StageError{Stage: stage.name, Err: err})
		}
	}

	return errors.Join(errs...)
}

// refreshSceneList fetches the scene collection with bounded retry: up to
// SceneListAttempts attempts with a fixed backoff. When every attempt fails
// the prior cached list is left untouched: a failed fetch never overwrites
// good data with nothing. An empty result is ErrNoScenes.
func (s *Session) refreshSceneList(ctx context.Context, epoch uint64) error {
	var resp obsws.SceneListResponse
	var err error

	for attempt := 0; attempt < s.opts.SceneListAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.SceneListBackoff):
			}
		}
		if err = s.tr.Call(ctx, obsws.ReqGetSceneList, nil, &resp); err == nil {
			break
		}
	}
	if err != nil {
		return err
	}

	if len(resp.Scenes) == 0 {
		return ErrNoScenes
	}

	scenes := make([]Scene, 0, len(resp.Scenes))
	for _, entry := range resp.Scenes {
		scenes = append(scenes, Scene{Name: entry.SceneName})
	}
	s.store.setScenes(epoch, scenes)

	return nil
}

// refreshCurrentScene fetches the current program scene name.
func (s *Session) refreshCurrentScene(ctx context.Context, epoch uint64) error {
	var resp obsws.CurrentProgramSceneResponse
	if err := s.tr.Call(ctx, obsws.ReqGetCurrentProgramScene, nil, &resp); err != nil {
		return err
	}
	s.store.setCurrentScene(epoch, resp.CurrentProgramSceneName)
	return nil
}

// refreshSceneItems replaces the current scene's item list wholesale. A
// newer item refresh supersedes an in-flight one. Skipped silently when no
// current scene is known yet.
func (s *Session) refreshSceneItems(ctx context.Context, epoch uint64) error {
	scene := s.store.CurrentScene()
	if scene == "" {
		return nil
	}

	ctx, done := s.scoped(ctx, SliceItems)
	defer done()

	var resp obsws.SceneItemListResponse
	if err := s.tr.Call(ctx, obsws.ReqGetSceneItemList, obsws.SceneItemListParams{SceneName: scene}, &resp); err != nil {
		return err
	}

	items := make([]SceneItem, 0, len(resp.SceneItems))
	for _, entry := range resp.SceneItems {
		items = append(items, SceneItem{
			ID:      entry.SceneItemID,
			Name:    entry.SourceName,
			Enabled: entry.SceneItemEnabled,
		})
	}
	s.store.setItems(epoch, items)

	return nil
}

// refreshAudioSources enumerates all remote inputs, keeps those whose kind
// indicates audio capability (or is explicitly allowlisted), and fetches
// volume and mute per input concurrently. A mute-fetch failure does not
// drop the input; its muted flag defaults to false with a warning. An
// input whose volume cannot be read is omitted from this refresh rather
// than reported with a fabricated level.
func (s *Session) refreshAudioSources(ctx context.Context, epoch uint64) error {
	ctx, done := s.scoped(ctx, SliceAudio)
	defer done()

	var list obsws.InputListResponse
	if err := s.tr.Call(ctx, obsws.ReqGetInputList, obsws.InputListParams{}, &list); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(list.Inputs))
	var candidates []obsws.InputEntry
	for _, in := range list.Inputs {
		if !s.isAudioKind(in.InputKind) {
			continue
		}
		if _, dup := seen[in.InputName]; dup {
			continue
		}
		seen[in.InputName] = struct{}{}
		candidates = append(candidates, in)
	}

	audio := make(map[string]AudioSource, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, in := range candidates {
		wg.Add(1)
		go func(in obsws.InputEntry) {
			defer wg.Done()

			var vol obsws.InputVolumeResponse
			if err := s.tr.Call(ctx, obsws.ReqGetInputVolume, obsws.InputNameParams{InputName: in.InputName}, &vol); err != nil {
				s.log.Warn().Err(err).Str("input", in.InputName).Msg("volume fetch failed, omitting input")
				return
			}

			src := AudioSource{Name: in.InputName, Volume: clamp01(vol.InputVolumeMul)}

			var mute obsws.InputMuteResponse
			if err := s.tr.Call(ctx, obsws.ReqGetInputMute, obsws.InputNameParams{InputName: in.InputName}, &mute); err != nil {
				s.log.Warn().Err(err).Str("input", in.InputName).Msg("mute fetch failed, defaulting to unmuted")
			} else {
				src.Muted = mute.InputMuted
			}

			mu.Lock()
			audio[src.Name] = src
			mu.Unlock()
		}(in)
	}
	wg.Wait()

	s.store.setAudio(epoch, audio)

	return nil
}

// isAudioKind reports whether an input kind counts as an audio source.
func (s *Session) isAudioKind(kind string) bool {
	if strings.Contains(kind, "audio") {
		return true
	}
	for _, allowed := range s.opts.AudioKinds {
		if kind == allowed {
			return true
		}
	}
	return false
}

// refreshStreamStatus fetches the streamer status.
func (s *Session) refreshStreamStatus(ctx context.Context, epoch uint64) error {
	var resp obsws.StreamStatusResponse
	if err := s.tr.Call(ctx, obsws.ReqGetStreamStatus, nil, &resp); err != nil {
		return err
	}

	st := StreamStopped
	if resp.OutputActive {
		st = StreamLive
	}
	s.store.setStream(epoch, st)

	return nil
}

// refreshRecordStatus fetches the recorder status.
func (s *Session) refreshRecordStatus(ctx context.Context, epoch uint64) error {
	var resp obsws.RecordStatusResponse
	if err := s.tr.Call(ctx, obsws.ReqGetRecordStatus, nil, &resp); err != nil {
		return err
	}

	s.store.setRecord(epoch, recordStateOf(resp.OutputActive, resp.OutputPaused))

	return nil
}

// refreshStats fetches performance stats, coercing each value from a JSON
// number or numeric string. Unparsable values are stored as absent.
func (s *Session) refreshStats(ctx context.Context, epoch uint64) error {
	var resp obsws.StatsResponse
	if err := s.tr.Call(ctx, obsws.ReqGetStats, nil, &resp); err != nil {
		return err
	}

	s.store.setStats(epoch, Stats{
		CPUUsage:        coerceFloat(resp.CPUUsage),
		MemoryUsage:     coerceFloat(resp.MemoryUsage),
		FPS:             coerceFloat(resp.ActiveFPS),
		FrameRenderTime: coerceFloat(resp.AverageFrameRenderTime),
		SkippedFrames:   coerceFloat(resp.RenderSkippedFrames),
	})

	return nil
}

// recordStateOf maps the wire representation to a RecordState. Paused is
// only meaningful while the output is active.
func recordStateOf(active, paused bool) RecordState {
	switch {
	case active && paused:
		return RecordPaused
	case active:
		return RecordRecording
	default:
		return RecordStopped
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
