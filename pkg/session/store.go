package session

import (
	"sort"
	"sync"
)

// ConnState is the connection lifecycle state. Exactly one state holds at
// any time; transitions happen only through Connect/Disconnect or an
// unsolicited transport closure.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Scene is one remote scene. Name is the unique key; collection order is
// server-defined and preserved for display.
type Scene struct {
	Name string
}

// SceneItem is one source inside the current scene. ID is stable only until
// the next refresh; items are replaced wholesale, never merged.
type SceneItem struct {
	ID      int
	Name    string
	Enabled bool
}

// AudioSource is one audio-capable input. Volume is a linear multiplier in
// [0,1]. Volume and Muted are independent: muting does not erase the
// remembered volume.
type AudioSource struct {
	Name   string
	Volume float64
	Muted  bool
}

// RecordState is the recorder's operational status.
type RecordState string

const (
	RecordStopped   RecordState = "stopped"
	RecordRecording RecordState = "recording"
	RecordPaused    RecordState = "paused"
)

// StreamState is the streamer's operational status.
type StreamState string

const (
	StreamStopped StreamState = "stopped"
	StreamLive    StreamState = "streaming"
)

// Stats holds performance samples. A nil field means "not yet sampled" or
// "value unparsable", never zero.
type Stats struct {
	CPUUsage        *float64
	MemoryUsage     *float64
	FPS             *float64
	FrameRenderTime *float64
	SkippedFrames   *float64
}

// Store is the authoritative in-memory mirror of remote state plus the
// connection lifecycle flag. All mutation goes through Session operations;
// external collaborators hold read-only access and observe changes through
// the Bus. Safe for concurrent use.
//
// The epoch counter is bumped on every connect and every mirror reset.
// Mutators take the epoch their data was fetched under and refuse to write
// when it is stale, so a response that arrives after a disconnect can never
// resurrect old state.
type Store struct {
	bus *Bus

	mu           sync.RWMutex
	epoch        uint64
	state        ConnState
	scenes       []Scene
	currentScene string
	items        []SceneItem
	audio        map[string]AudioSource
	record       RecordState
	stream       StreamState
	stats        Stats
}

// NewStore creates an empty, disconnected Store.
func NewStore() *Store {
	return &Store{
		bus:    NewBus(),
		state:  Disconnected,
		audio:  make(map[string]AudioSource),
		record: RecordStopped,
		stream: StreamStopped,
	}
}

// Bus returns the change-notification bus.
func (s *Store) Bus() *Bus { return s.bus }

// State returns the connection state.
func (s *Store) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Scenes returns a copy of the scene collection in server order.
func (s *Store) Scenes() []Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Scene, len(s.scenes))
	copy(out, s.scenes)
	return out
}

// CurrentScene returns the current program scene name, or "" when no
// session is synchronized.
func (s *Store) CurrentScene() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentScene
}

// SceneItems returns a copy of the current scene's item list.
func (s *Store) SceneItems() []SceneItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SceneItem, len(s.items))
	copy(out, s.items)
	return out
}

// AudioSources returns the audio sources sorted by name. The mirror keys
// audio state by source name; fetch order across refreshes is not stable,
// so a name-sorted view is the only meaningful ordering.
func (s *Store) AudioSources() []AudioSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AudioSource, 0, len(s.audio))
	for _, src := range s.audio {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AudioSource returns one audio source by name.
func (s *Store) AudioSource(name string) (AudioSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.audio[name]
	return src, ok
}

// RecordStatus returns the recorder status.
func (s *Store) RecordStatus() RecordState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// StreamStatus returns the streamer status.
func (s *Store) StreamStatus() StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream
}

// Stats returns a deep copy of the latest performance samples.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		CPUUsage:        copyFloat(s.stats.CPUUsage),
		MemoryUsage:     copyFloat(s.stats.MemoryUsage),
		FPS:             copyFloat(s.stats.FPS),
		FrameRenderTime: copyFloat(s.stats.FrameRenderTime),
		SkippedFrames:   copyFloat(s.stats.SkippedFrames),
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// --- mutators (session-internal) ---

// currentEpoch returns the epoch under which in-flight work should write.
func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// setState records a lifecycle transition without touching the mirror.
func (s *Store) setState(st ConnState) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed {
		s.bus.Publish(Change{Slice: SliceConnection})
	}
}

// markConnected transitions to Connected under a fresh epoch and returns
// that epoch for subsequent refreshes.
func (s *Store) markConnected() uint64 {
	s.mu.Lock()
	s.epoch++
	s.state = Connected
	epoch := s.epoch
	s.mu.Unlock()
	s.bus.Publish(Change{Slice: SliceConnection})
	return epoch
}

// reset unconditionally clears every cached collection and status field and
// transitions to Disconnected under a fresh epoch. Stale data must never
// survive a disconnect.
func (s *Store) reset() {
	s.mu.Lock()
	s.epoch++
	s.state = Disconnected
	s.scenes = nil
	s.currentScene = ""
	s.items = nil
	s.audio = make(map[string]AudioSource)
	s.record = RecordStopped
	s.stream = StreamStopped
	s.stats = Stats{}
	s.mu.Unlock()

	for _, sl := range []Slice{SliceConnection, SliceScenes, SliceItems, SliceAudio, SliceStatus, SliceStats} {
		s.bus.Publish(Change{Slice: sl})
	}
}

// write runs fn under the lock if epoch is still current, then publishes
// the given slice. Returns false when the write was discarded as stale.
func (s *Store) write(epoch uint64, slice Slice, fn func()) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	fn()
	s.mu.Unlock()
	s.bus.Publish(Change{Slice: slice})
	return true
}

func (s *Store) setScenes(epoch uint64, scenes []Scene) bool {
	return s.write(epoch, SliceScenes, func() { s.scenes = scenes })
}

func (s *Store) setCurrentScene(epoch uint64, name string) bool {
	return s.write(epoch, SliceScenes, func() { s.currentScene = name })
}

func (s *Store) setItems(epoch uint64, items []SceneItem) bool {
	return s.write(epoch, SliceItems, func() { s.items = items })
}

func (s *Store) setAudio(epoch uint64, audio map[string]AudioSource) bool {
	return s.write(epoch, SliceAudio, func() { s.audio = audio })
}

func (s *Store) setRecord(epoch uint64, st RecordState) bool {
	return s.write(epoch, SliceStatus, func() { s.record = st })
}

func (s *Store) setStream(epoch uint64, st StreamState) bool {
	return s.write(epoch, SliceStatus, func() { s.stream = st })
}

func (s *Store) setStats(epoch uint64, st Stats) bool {
	return s.write(epoch, SliceStats, func() { s.stats = st })
}
