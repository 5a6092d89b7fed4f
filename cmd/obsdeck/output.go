package main

import (
	"fmt"
	"os"

	"github.com/obsdeck/obsdeck/pkg/session"
)

// consoleNotifier prints session notifications to stderr so they never mix
// with command output on stdout.
type consoleNotifier struct{}

func (consoleNotifier) Info(msg string)    { fmt.Fprintln(os.Stderr, msg) }
func (consoleNotifier) Success(msg string) { fmt.Fprintln(os.Stderr, msg) }
func (consoleNotifier) Warn(msg string)    { fmt.Fprintln(os.Stderr, "warning: "+msg) }
func (consoleNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, "error: "+msg) }

func printStatus(sess *session.Session) error {
	store := sess.Store()

	fmt.Printf("connection: %s\n", store.State())
	fmt.Printf("scene:      %s\n", orDash(store.CurrentScene()))
	fmt.Printf("recording:  %s\n", store.RecordStatus())
	fmt.Printf("streaming:  %s\n", store.StreamStatus())

	stats := store.Stats()
	fmt.Printf("cpu:        %s\n", fmtSample(stats.CPUUsage, "%.1f%%"))
	fmt.Printf("memory:     %s\n", fmtSample(stats.MemoryUsage, "%.0f MB"))
	fmt.Printf("fps:        %s\n", fmtSample(stats.FPS, "%.1f"))
	fmt.Printf("render:     %s\n", fmtSample(stats.FrameRenderTime, "%.2f ms"))
	fmt.Printf("skipped:    %s\n", fmtSample(stats.SkippedFrames, "%.0f"))

	return nil
}

func printScenes(sess *session.Session) error {
	store := sess.Store()
	current := store.CurrentScene()

	for _, scene := range store.Scenes() {
		marker := " "
		if scene.Name == current {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, scene.Name)
	}

	return nil
}

func printSources(sess *session.Session) error {
	store := sess.Store()

	for _, item := range store.SceneItems() {
		state := "hidden"
		if item.Enabled {
			state = "visible"
		}
		fmt.Printf("%-30s %s\n", item.Name, state)
	}

	for _, src := range store.AudioSources() {
		muteFlag := ""
		if src.Muted {
			muteFlag = " [muted]"
		}
		fmt.Printf("%-30s volume %.0f%%%s\n", src.Name, src.Volume*100, muteFlag)
	}

	return nil
}

func fmtSample(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
