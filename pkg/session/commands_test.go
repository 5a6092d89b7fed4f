package session

import (
	"context"
	"errors"
	"testing"

	"github.com/obsdeck/obsdeck/pkg/obsws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsNoOpWhenDisconnected(t *testing.T) {
	s, f := newTestSession(t, Options{})
	ctx := context.Background()

	require.NoError(t, s.SetCurrentScene(ctx, "Scene B"))
	require.NoError(t, s.ToggleSourceVisibility(ctx, "Camera", false))
	require.NoError(t, s.SetAudioVolume(ctx, "Mic", 0.3))
	require.NoError(t, s.ToggleAudioMute(ctx, "Mic", true))
	require.NoError(t, s.StartRecording(ctx))
	require.NoError(t, s.StartStreaming(ctx))

	assert.Zero(t, f.count(obsws.ReqSetCurrentProgramScene))
	assert.Zero(t, f.count(obsws.ReqSetInputVolume))
	assert.Zero(t, f.count(obsws.ReqStartRecord))
	assert.Zero(t, f.count(obsws.ReqStartStream))
}

func TestSetCurrentScene(t *testing.T) {
	s, f := newTestSession(t, Options{})
	connect(t, s)

	require.NoError(t, s.SetCurrentScene(context.Background(), "Scene B"))

	store := s.Store()
	assert.Equal(t, "Scene B", store.CurrentScene())

	items := store.SceneItems()
	require.Len(t, items, 1, "item list must follow the scene switch")
	assert.Equal(t, "Screen", items[0].Name)
	assert.Equal(t, 1, f.count(obsws.ReqSetCurrentProgramScene))
}

func TestSetCurrentSceneFailureKeepsMirror(t *testing.T) {
	s, f := newTestSession(t, Options{})
	connect(t, s)

	f.stub(obsws.ReqSetCurrentProgramScene, func(attempt int, params any) (any, error) {
		return nil, errors.New("rejected")
	})

	err := s.SetCurrentScene(context.Background(), "Scene B")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, OpSwitchScene, cmdErr.Op)

	assert.Equal(t, "Scene A", s.Store().CurrentScene(), "no optimistic mutation on failure")
}

func TestToggleSourceVisibility(t *testing.T) {
	s, f := newTestSession(t, Options{})
	connect(t, s)

	require.NoError(t, s.ToggleSourceVisibility(context.Background(), "Overlay", true))

	items := s.Store().SceneItems()
	require.Len(t, items, 2)
	assert.True(t, items[1].Enabled)
	assert.Equal(t, 1, f.count(obsws.ReqSetSceneItemEnabled))
}

func TestToggleSourceVisibilityNotFound(t *testing.T) {
	notify := &memoNotifier{}
	s, f := newTestSession(t, Options{Notifier: notify})
	connect(t, s)
	before := s.Store().SceneItems()

	err := s.ToggleSourceVisibility(context.Background(), "Ghost", true)

	var notFound *SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Ghost", notFound.Name)

	assert.Zero(t, f.count(obsws.ReqSetSceneItemEnabled))
	assert.Equal(t, before, s.Store().SceneItems())
	assert.Contains(t, notify.errors(), "source not found: Ghost")
}

func TestSetAudioVolumeRoundTrip(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	connect(t, s)

	require.NoError(t, s.SetAudioVolume(context.Background(), "Mic", 0.42))

	src, ok := s.Store().AudioSource("Mic")
	require.True(t, ok)
	assert.InDelta(t, 0.42, src.Volume, 1e-9)
}

func TestSetAudioVolumeRejectsOutOfRange(t *testing.T) {
	s, f := newTestSession(t, Options{})
	connect(t, s)

	for _, v := range []float64{-0.01, 1.01, 2} {
		err := s.SetAudioVolume(context.Background(), "Mic", v)

		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr, "volume %v", v)
		assert.Equal(t, OpSetVolume, cmdErr.Op)
	}

	assert.Zero(t, f.count(obsws.ReqSetInputVolume), "rejected values never reach the wire")

	src, _ := s.Store().AudioSource("Mic")
	assert.InDelta(t, 0.5, src.Volume, 1e-9)
}

func TestToggleAudioMuteKeepsVolume(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	connect(t, s)

	require.NoError(t, s.ToggleAudioMute(context.Background(), "Mic", true))

	src, ok := s.Store().AudioSource("Mic")
	require.True(t, ok)
	assert.True(t, src.Muted)
	assert.InDelta(t, 0.5, src.Volume, 1e-9, "muting must not touch the level")
}

func TestRecordingLifecycle(t *testing.T) {
	s, f := newTestSession(t, Options{})
	connect(t, s)
	ctx := context.Background()
	store := s.Store()

	// Pause before recording starts is a no-op.
	require.NoError(t, s.PauseRecording(ctx))
	assert.Zero(t, f.count(obsws.ReqPauseRecord))
	assert.Equal(t, RecordStopped, store.RecordStatus())

	require.NoError(t, s.StartRecording(ctx))
	assert.Equal(t, RecordRecording, store.RecordStatus())

	// Resume while recording (not paused) is a no-op.
	require.NoError(t, s.ResumeRecording(ctx))
	assert.Zero(t, f.count(obsws.ReqResumeRecord))

	require.NoError(t, s.PauseRecording(ctx))
	assert.Equal(t, RecordPaused, store.RecordStatus())

	require.NoError(t, s.ResumeRecording(ctx))
	assert.Equal(t, RecordRecording, store.RecordStatus())

	require.NoError(t, s.StopRecording(ctx))
	assert.Equal(t, RecordStopped, store.RecordStatus())
}

func TestStreamingLifecycle(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	connect(t, s)
	ctx := context.Background()

	require.NoError(t, s.StartStreaming(ctx))
	assert.Equal(t, StreamLive, s.Store().StreamStatus())

	require.NoError(t, s.StopStreaming(ctx))
	assert.Equal(t, StreamStopped, s.Store().StreamStatus())
}

func TestOutputCommandFailure(t *testing.T) {
	notify := &memoNotifier{}
	s, f := newTestSession(t, Options{Notifier: notify})
	connect(t, s)

	f.stub(obsws.ReqStartRecord, func(attempt int, params any) (any, error) {
		return nil, errors.New("disk full")
	})

	err := s.StartRecording(context.Background())

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, OpStartRecording, cmdErr.Op)
	assert.Equal(t, RecordStopped, s.Store().RecordStatus())
	assert.Contains(t, notify.errors(), "failed to start recording")
}
