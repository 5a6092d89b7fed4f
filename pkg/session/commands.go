package session

import (
	"context"
	"fmt"

	"github.com/obsdeck/obsdeck/pkg/obsws"
)

// Command operation names used in CommandError classification.
const (
	OpSwitchScene     = "switch_scene"
	OpToggleSource    = "toggle_source"
	OpSetVolume       = "set_volume"
	OpToggleMute      = "toggle_mute"
	OpStartRecording  = "start_recording"
	OpStopRecording   = "stop_recording"
	OpPauseRecording  = "pause_recording"
	OpResumeRecording = "resume_recording"
	OpStartStreaming  = "start_streaming"
	OpStopStreaming   = "stop_streaming"
)

// Every command silently returns when not Connected: the mirror is empty,
// there is nothing meaningful to fail against, and the presentation layer
// already shows the disconnected state. A failed transport call leaves the
// cached state exactly as it was; there is no optimistic mutation.

// SetCurrentScene switches the program scene, records the new name
// immediately, and refreshes the scene items that depend on it.
func (s *Session) SetCurrentScene(ctx context.Context, name string) error {
	if s.store.State() != Connected {
		return nil
	}
	epoch := s.store.currentEpoch()

	params := obsws.SetCurrentProgramSceneParams{SceneName: name}
	if err := s.tr.Call(ctx, obsws.ReqSetCurrentProgramScene, params, nil); err != nil {
		return s.commandFailed(OpSwitchScene, "failed to switch scene", err)
	}

	s.store.setCurrentScene(epoch, name)
	if err := s.refreshSceneItems(ctx, epoch); err != nil {
		s.log.Warn().Err(err).Str("scene", name).Msg("item refresh after scene switch failed")
	}

	return nil
}

// ToggleSourceVisibility enables or disables a source in the current scene.
// The target is resolved by name against the scene's live item list at call
// time, never against a cached id: ids may have changed since the last
// refresh. A missing source is a SourceNotFoundError.
func (s *Session) ToggleSourceVisibility(ctx context.Context, name string, visible bool) error {
	if s.store.State() != Connected {
		return nil
	}
	scene := s.store.CurrentScene()
	if scene == "" {
		return nil
	}
	epoch := s.store.currentEpoch()

	var list obsws.SceneItemListResponse
	if err := s.tr.Call(ctx, obsws.ReqGetSceneItemList, obsws.SceneItemListParams{SceneName: scene}, &list); err != nil {
		return s.commandFailed(OpToggleSource, "failed to toggle source visibility", err)
	}

	itemID := -1
	for _, item := range list.SceneItems {
		if item.SourceName == name {
			itemID = item.SceneItemID
			break
		}
	}
	if itemID < 0 {
		err := &SourceNotFoundError{Name: name}
		s.log.Warn().Str("source", name).Str("scene", scene).Msg("source not found")
		s.notify.Error("source not found: " + name)
		return err
	}

	params := obsws.SetSceneItemEnabledParams{
		SceneName:        scene,
		SceneItemID:      itemID,
		SceneItemEnabled: visible,
	}
	if err := s.tr.Call(ctx, obsws.ReqSetSceneItemEnabled, params, nil); err != nil {
		return s.commandFailed(OpToggleSource, "failed to toggle source visibility", err)
	}

	if err := s.refreshSceneItems(ctx, epoch); err != nil {
		s.log.Warn().Err(err).Msg("item refresh after visibility toggle failed")
	}

	return nil
}

// SetAudioVolume sets a source's volume as a linear multiplier in [0,1].
// Percentage scaling belongs to the presentation layer; out-of-range values
// are rejected here rather than clamped.
func (s *Session) SetAudioVolume(ctx context.Context, name string, volume float64) error {
	if s.store.State() != Connected {
		return nil
	}
	if volume < 0 || volume > 1 {
		return &CommandError{Op: OpSetVolume, Err: fmt.Errorf("volume %v outside [0,1]", volume)}
	}
	epoch := s.store.currentEpoch()

	params := obsws.SetInputVolumeParams{InputName: name, InputVolumeMul: volume}
	if err := s.tr.Call(ctx, obsws.ReqSetInputVolume, params, nil); err != nil {
		return s.commandFailed(OpSetVolume, "failed to adjust volume", err)
	}

	if err := s.refreshAudioSources(ctx, epoch); err != nil {
		s.log.Warn().Err(err).Msg("audio refresh after volume change failed")
	}

	return nil
}

// ToggleAudioMute sets a source's mute flag. Volume is untouched: a muted
// source remembers its level.
func (s *Session) ToggleAudioMute(ctx context.Context, name string, muted bool) error {
	if s.store.State() != Connected {
		return nil
	}
	epoch := s.store.currentEpoch()

	params := obsws.SetInputMuteParams{InputName: name, InputMuted: muted}
	if err := s.tr.Call(ctx, obsws.ReqSetInputMute, params, nil); err != nil {
		return s.commandFailed(OpToggleMute, "failed to toggle mute", err)
	}

	if err := s.refreshAudioSources(ctx, epoch); err != nil {
		s.log.Warn().Err(err).Msg("audio refresh after mute change failed")
	}

	return nil
}

// StartRecording starts the recorder.
func (s *Session) StartRecording(ctx context.Context) error {
	return s.outputCommand(ctx, OpStartRecording, obsws.ReqStartRecord, "failed to start recording", s.refreshRecordStatus)
}

// StopRecording stops the recorder from either Recording or Paused.
func (s *Session) StopRecording(ctx context.Context) error {
	return s.outputCommand(ctx, OpStopRecording, obsws.ReqStopRecord, "failed to stop recording", s.refreshRecordStatus)
}

// PauseRecording pauses the recorder. Paused is reachable only from
// Recording; in any other state this is a no-op.
func (s *Session) PauseRecording(ctx context.Context) error {
	if s.store.RecordStatus() != RecordRecording {
		return nil
	}
	return s.outputCommand(ctx, OpPauseRecording, obsws.ReqPauseRecord, "failed to pause recording", s.refreshRecordStatus)
}

// ResumeRecording resumes a paused recorder. A no-op unless Paused.
func (s *Session) ResumeRecording(ctx context.Context) error {
	if s.store.RecordStatus() != RecordPaused {
		return nil
	}
	return s.outputCommand(ctx, OpResumeRecording, obsws.ReqResumeRecord, "failed to resume recording", s.refreshRecordStatus)
}

// StartStreaming starts the stream output.
func (s *Session) StartStreaming(ctx context.Context) error {
	return s.outputCommand(ctx, OpStartStreaming, obsws.ReqStartStream, "failed to start streaming", s.refreshStreamStatus)
}

// StopStreaming stops the stream output.
func (s *Session) StopStreaming(ctx context.Context) error {
	return s.outputCommand(ctx, OpStopStreaming, obsws.ReqStopStream, "failed to stop streaming", s.refreshStreamStatus)
}

// outputCommand issues one parameterless output request and refreshes the
// affected status slice on success.
func (s *Session) outputCommand(ctx context.Context, op, requestType, failMsg string, refresh func(context.Context, uint64) error) error {
	if s.store.State() != Connected {
		return nil
	}
	epoch := s.store.currentEpoch()

	if err := s.tr.Call(ctx, requestType, nil, nil); err != nil {
		return s.commandFailed(op, failMsg, err)
	}

	if err := refresh(ctx, epoch); err != nil {
		s.log.Warn().Err(err).Str("op", op).Msg("status refresh after command failed")
	}

	return nil
}

// commandFailed logs, notifies, and classifies a failed command.
func (s *Session) commandFailed(op, userMsg string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("command failed")
	s.notify.Error(userMsg)
	return &CommandError{Op: op, Err: err}
}
