package obsws

import "encoding/json"

// Request type names for the subset of the obs-websocket v5 surface this
// client exercises.
const (
	ReqGetSceneList           = "GetSceneList"
	ReqGetCurrentProgramScene = "GetCurrentProgramScene"
	ReqSetCurrentProgramScene = "SetCurrentProgramScene"
	ReqGetSceneItemList       = "GetSceneItemList"
	ReqSetSceneItemEnabled    = "SetSceneItemEnabled"
	ReqGetInputList           = "GetInputList"
	ReqGetInputVolume         = "GetInputVolume"
	ReqSetInputVolume         = "SetInputVolume"
	ReqGetInputMute           = "GetInputMute"
	ReqSetInputMute           = "SetInputMute"
	ReqGetStreamStatus        = "GetStreamStatus"
	ReqGetRecordStatus        = "GetRecordStatus"
	ReqStartRecord            = "StartRecord"
	ReqStopRecord             = "StopRecord"
	ReqPauseRecord            = "PauseRecord"
	ReqResumeRecord           = "ResumeRecord"
	ReqStartStream            = "StartStream"
	ReqStopStream             = "StopStream"
	ReqGetStats               = "GetStats"
)

// SceneEntry is one scene in a GetSceneList response. The server returns
// scenes in its own display order, which callers are expected to preserve.
type SceneEntry struct {
	SceneName  string `json:"sceneName"`
	SceneIndex int    `json:"sceneIndex"`
}

// SceneListResponse is the response to GetSceneList.
type SceneListResponse struct {
	CurrentProgramSceneName string       `json:"currentProgramSceneName"`
	Scenes                  []SceneEntry `json:"scenes"`
}

// CurrentProgramSceneResponse is the response to GetCurrentProgramScene.
type CurrentProgramSceneResponse struct {
	CurrentProgramSceneName string `json:"currentProgramSceneName"`
}

// SetCurrentProgramSceneParams selects the program scene.
type SetCurrentProgramSceneParams struct {
	SceneName string `json:"sceneName"`
}

// SceneItemListParams requests the item list of one scene.
type SceneItemListParams struct {
	SceneName string `json:"sceneName"`
}

// SceneItemEntry is one item in a GetSceneItemList response.
type SceneItemEntry struct {
	SceneItemID      int    `json:"sceneItemId"`
	SourceName       string `json:"sourceName"`
	SceneItemEnabled bool   `json:"sceneItemEnabled"`
}

// SceneItemListResponse is the response to GetSceneItemList.
type SceneItemListResponse struct {
	SceneItems []SceneItemEntry `json:"sceneItems"`
}

// SetSceneItemEnabledParams toggles one scene item's enabled flag.
type SetSceneItemEnabledParams struct {
	SceneName        string `json:"sceneName"`
	SceneItemID      int    `json:"sceneItemId"`
	SceneItemEnabled bool   `json:"sceneItemEnabled"`
}

// InputListParams requests inputs, optionally restricted to one kind.
type InputListParams struct {
	InputKind string `json:"inputKind,omitempty"`
}

// InputEntry is one input in a GetInputList response.
type InputEntry struct {
	InputName string `json:"inputName"`
	InputKind string `json:"inputKind"`
}

// InputListResponse is the response to GetInputList.
type InputListResponse struct {
	Inputs []InputEntry `json:"inputs"`
}

// InputNameParams addresses a single input by name.
type InputNameParams struct {
	InputName string `json:"inputName"`
}

// InputVolumeResponse is the response to GetInputVolume. VolumeMul is a
// linear multiplier in [0,1]; VolumeDb is the same level in decibels.
type InputVolumeResponse struct {
	InputVolumeMul float64 `json:"inputVolumeMul"`
	InputVolumeDb  float64 `json:"inputVolumeDb"`
}

// SetInputVolumeParams sets an input's volume as a linear multiplier.
type SetInputVolumeParams struct {
	InputName      string  `json:"inputName"`
	InputVolumeMul float64 `json:"inputVolumeMul"`
}

// InputMuteResponse is the response to GetInputMute.
type InputMuteResponse struct {
	InputMuted bool `json:"inputMuted"`
}

// SetInputMuteParams sets an input's mute flag.
type SetInputMuteParams struct {
	InputName  string `json:"inputName"`
	InputMuted bool   `json:"inputMuted"`
}

// StreamStatusResponse is the response to GetStreamStatus.
type StreamStatusResponse struct {
	OutputActive bool `json:"outputActive"`
}

// RecordStatusResponse is the response to GetRecordStatus.
type RecordStatusResponse struct {
	OutputActive bool `json:"outputActive"`
	OutputPaused bool `json:"outputPaused"`
}

// StatsResponse is the response to GetStats. Fields are kept raw because
// servers have been observed returning numbers as either JSON numbers or
// numeric strings; the caller coerces them.
type StatsResponse struct {
	CPUUsage                json.RawMessage `json:"cpuUsage"`
	MemoryUsage             json.RawMessage `json:"memoryUsage"`
	ActiveFPS               json.RawMessage `json:"activeFps"`
	AverageFrameRenderTime  json.RawMessage `json:"averageFrameRenderTime"`
	RenderSkippedFrames     json.RawMessage `json:"renderSkippedFrames"`
	OutputSkippedFrames     json.RawMessage `json:"outputSkippedFrames"`
	WebSocketSessionInbound json.RawMessage `json:"webSocketSessionIncomingMessages"`
}
