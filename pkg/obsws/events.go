package obsws

// Event type names for the push notifications the session layer consumes.
const (
	EventCurrentProgramSceneChanged  = "CurrentProgramSceneChanged"
	EventSceneItemEnableStateChanged = "SceneItemEnableStateChanged"
	EventInputVolumeChanged          = "InputVolumeChanged"
	EventInputMuteStateChanged       = "InputMuteStateChanged"
	EventSceneCreated                = "SceneCreated"
	EventSceneRemoved                = "SceneRemoved"
	EventSceneNameChanged            = "SceneNameChanged"
	EventRecordStateChanged          = "RecordStateChanged"
	EventStreamStateChanged          = "StreamStateChanged"
)

// CurrentProgramSceneChangedEvent carries the new program scene name.
type CurrentProgramSceneChangedEvent struct {
	SceneName string `json:"sceneName"`
}

// RecordStateChangedEvent reports the recorder's output state. OutputPaused
// is a pointer because older servers omit it entirely.
type RecordStateChangedEvent struct {
	OutputActive bool  `json:"outputActive"`
	OutputPaused *bool `json:"outputPaused"`
}

// StreamStateChangedEvent reports the streamer's output state.
type StreamStateChangedEvent struct {
	OutputActive bool `json:"outputActive"`
}
