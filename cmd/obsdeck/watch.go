package main

import (
	"context"
	"fmt"

	"github.com/obsdeck/obsdeck/pkg/session"
)

// runWatch stays connected and prints a line for every state change until
// interrupted or the server closes the connection.
func runWatch(ctx context.Context, sess *session.Session) error {
	store := sess.Store()
	sub := store.Bus().Subscribe(64)
	defer store.Bus().Unsubscribe(sub)

	fmt.Println("watching; press ctrl-c to stop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-sub.C:
			printChange(store, change)
			if change.Slice == session.SliceConnection && store.State() == session.Disconnected {
				return nil
			}
		}
	}
}

func printChange(store *session.Store, change session.Change) {
	switch change.Slice {
	case session.SliceConnection:
		fmt.Printf("connection: %s\n", store.State())
	case session.SliceScenes:
		fmt.Printf("scene: %s (%d scenes)\n", orDash(store.CurrentScene()), len(store.Scenes()))
	case session.SliceItems:
		fmt.Printf("sources: %d items in %s\n", len(store.SceneItems()), orDash(store.CurrentScene()))
	case session.SliceAudio:
		for _, src := range store.AudioSources() {
			muteFlag := ""
			if src.Muted {
				muteFlag = " [muted]"
			}
			fmt.Printf("audio: %s volume %.0f%%%s\n", src.Name, src.Volume*100, muteFlag)
		}
	case session.SliceStatus:
		fmt.Printf("recording: %s, streaming: %s\n", store.RecordStatus(), store.StreamStatus())
	case session.SliceStats:
		stats := store.Stats()
		fmt.Printf("stats: cpu %s, fps %s\n", fmtSample(stats.CPUUsage, "%.1f%%"), fmtSample(stats.FPS, "%.1f"))
	}
}
