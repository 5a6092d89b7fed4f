package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/obsdeck/obsdeck/pkg/obsws"
)

// fakeTransport is an in-memory Transport backed by a small model of the
// remote application. Tests can override individual request types with stub;
// a stub returning (nil, nil) falls through to the model.
type fakeTransport struct {
	mu     sync.Mutex
	events chan obsws.Event

	connectErr     error
	connectStarted chan struct{}
	connectGate    chan struct{}
	connected      bool

	counts map[string]int
	stubs  map[string]func(attempt int, params any) (any, error)

	scenes       []obsws.SceneEntry
	currentScene string
	itemsByScene map[string][]obsws.SceneItemEntry
	inputs       []obsws.InputEntry
	volumes      map[string]float64
	mutes        map[string]bool
	recording    bool
	recordPaused bool
	streaming    bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		counts: make(map[string]int),
		stubs:  make(map[string]func(int, any) (any, error)),
		scenes: []obsws.SceneEntry{
			{SceneName: "Scene A", SceneIndex: 0},
			{SceneName: "Scene B", SceneIndex: 1},
		},
		currentScene: "Scene A",
		itemsByScene: map[string][]obsws.SceneItemEntry{
			"Scene A": {
				{SceneItemID: 1, SourceName: "Camera", SceneItemEnabled: true},
				{SceneItemID: 2, SourceName: "Overlay", SceneItemEnabled: false},
			},
			"Scene B": {
				{SceneItemID: 7, SourceName: "Screen", SceneItemEnabled: true},
			},
		},
		inputs: []obsws.InputEntry{
			{InputName: "Mic", InputKind: "audio_input_capture"},
			{InputName: "Music", InputKind: "browser_source"},
			{InputName: "Webcam", InputKind: "dshow_input"},
		},
		volumes: map[string]float64{"Mic": 0.5, "Music": 0.8},
		mutes:   map[string]bool{"Mic": false, "Music": true},
	}
}

func (f *fakeTransport) Connect(ctx context.Context, address, secret string) error {
	if f.connectGate != nil {
		close(f.connectStarted)
		<-f.connectGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	f.events = make(chan obsws.Event, 16)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.connected = false
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) Events() <-chan obsws.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

// serverClose simulates the server dropping the connection.
func (f *fakeTransport) serverClose() {
	_ = f.Close()
}

// pushEvent delivers one server-pushed event to the session.
func (f *fakeTransport) pushEvent(t *testing.T, eventType string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal event payload: %v", err)
	}

	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	ch <- obsws.Event{Type: eventType, Data: raw}
}

// stub overrides one request type. attempt counts calls of that type,
// starting at 1. Returning (nil, nil) falls through to the built-in model.
func (f *fakeTransport) stub(requestType string, fn func(attempt int, params any) (any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs[requestType] = fn
}

func (f *fakeTransport) count(requestType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[requestType]
}

func (f *fakeTransport) setVolume(name string, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[name] = v
}

func (f *fakeTransport) addScene(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes = append(f.scenes, obsws.SceneEntry{SceneName: name, SceneIndex: len(f.scenes)})
}

func (f *fakeTransport) Call(ctx context.Context, requestType string, params, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counts[requestType]++

	if stub, ok := f.stubs[requestType]; ok {
		resp, err := stub(f.counts[requestType], params)
		if err != nil {
			return err
		}
		if resp != nil {
			return fill(dest, resp)
		}
	}

	resp, err := f.handle(requestType, params)
	if err != nil {
		return err
	}
	return fill(dest, resp)
}

func (f *fakeTransport) handle(requestType string, params any) (any, error) {
	switch requestType {
	case obsws.ReqGetSceneList:
		return obsws.SceneListResponse{CurrentProgramSceneName: f.currentScene, Scenes: f.scenes}, nil

	case obsws.ReqGetCurrentProgramScene:
		return obsws.CurrentProgramSceneResponse{CurrentProgramSceneName: f.currentScene}, nil

	case obsws.ReqSetCurrentProgramScene:
		p := params.(obsws.SetCurrentProgramSceneParams)
		f.currentScene = p.SceneName
		return nil, nil

	case obsws.ReqGetSceneItemList:
		p := params.(obsws.SceneItemListParams)
		return obsws.SceneItemListResponse{SceneItems: f.itemsByScene[p.SceneName]}, nil

	case obsws.ReqSetSceneItemEnabled:
		p := params.(obsws.SetSceneItemEnabledParams)
		items := f.itemsByScene[p.SceneName]
		for i := range items {
			if items[i].SceneItemID == p.SceneItemID {
				items[i].SceneItemEnabled = p.SceneItemEnabled
				return nil, nil
			}
		}
		return nil, fmt.Errorf("no scene item %d in %s", p.SceneItemID, p.SceneName)

	case obsws.ReqGetInputList:
		return obsws.InputListResponse{Inputs: f.inputs}, nil

	case obsws.ReqGetInputVolume:
		p := params.(obsws.InputNameParams)
		vol, ok := f.volumes[p.InputName]
		if !ok {
			return nil, fmt.Errorf("no such input %s", p.InputName)
		}
		return obsws.InputVolumeResponse{InputVolumeMul: vol}, nil

	case obsws.ReqSetInputVolume:
		p := params.(obsws.SetInputVolumeParams)
		f.volumes[p.InputName] = p.InputVolumeMul
		return nil, nil

	case obsws.ReqGetInputMute:
		p := params.(obsws.InputNameParams)
		return obsws.InputMuteResponse{InputMuted: f.mutes[p.InputName]}, nil

	case obsws.ReqSetInputMute:
		p := params.(obsws.SetInputMuteParams)
		f.mutes[p.InputName] = p.InputMuted
		return nil, nil

	case obsws.ReqGetStreamStatus:
		return obsws.StreamStatusResponse{OutputActive: f.streaming}, nil

	case obsws.ReqGetRecordStatus:
		return obsws.RecordStatusResponse{OutputActive: f.recording, OutputPaused: f.recordPaused}, nil

	case obsws.ReqStartRecord:
		f.recording = true
		f.recordPaused = false
		return nil, nil

	case obsws.ReqStopRecord:
		f.recording = false
		f.recordPaused = false
		return nil, nil

	case obsws.ReqPauseRecord:
		f.recordPaused = true
		return nil, nil

	case obsws.ReqResumeRecord:
		f.recordPaused = false
		return nil, nil

	case obsws.ReqStartStream:
		f.streaming = true
		return nil, nil

	case obsws.ReqStopStream:
		f.streaming = false
		return nil, nil

	case obsws.ReqGetStats:
		return obsws.StatsResponse{
			CPUUsage:               json.RawMessage(`12.5`),
			MemoryUsage:            json.RawMessage(`"512.0"`),
			ActiveFPS:              json.RawMessage(`60`),
			AverageFrameRenderTime: json.RawMessage(`1.5`),
			RenderSkippedFrames:    json.RawMessage(`0`),
		}, nil

	default:
		return nil, errors.New("unexpected request " + requestType)
	}
}

// fill copies a typed response into the caller's dest through JSON, the same
// shape conversion the real transport performs.
func fill(dest, resp any) error {
	if dest == nil || resp == nil {
		return nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

// memoNotifier records notification messages per severity.
type memoNotifier struct {
	mu    sync.Mutex
	infos []string
	warns []string
	errs  []string
	oks   []string
}

func (n *memoNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *memoNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.oks = append(n.oks, msg)
}

func (n *memoNotifier) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warns = append(n.warns, msg)
}

func (n *memoNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, msg)
}

func (n *memoNotifier) errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errs...)
}

// newTestSession builds a Session over a fresh fake with fast retry timing.
func newTestSession(t *testing.T, opts Options) (*Session, *fakeTransport) {
	t.Helper()

	f := newFakeTransport()
	if opts.SceneListBackoff == 0 {
		opts.SceneListBackoff = time.Millisecond
	}
	s := New(f, opts)
	t.Cleanup(s.Disconnect)
	return s, f
}

// connect establishes a session against the fake and fails the test on error.
func connect(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Connect(context.Background(), "ws://localhost:4455", "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
