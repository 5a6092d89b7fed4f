package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/obsdeck/obsdeck/pkg/deckdir"
	"github.com/obsdeck/obsdeck/pkg/presets"
	"github.com/obsdeck/obsdeck/pkg/session"
)

const presetUsage = "usage: obsdeck preset save|apply|list|delete [scene]"

// runPresetOffline handles the preset subcommands that only touch disk.
func runPresetOffline(dir deckdir.Dir, rest []string) error {
	store := presets.NewStore(dir)

	switch rest[0] {
	case "list":
		all, err := store.All()
		if err != nil {
			return err
		}
		for _, p := range all {
			fmt.Printf("%s (%d sources)\n", p.Scene, len(p.Levels))
		}
		return nil
	case "delete":
		if len(rest) != 2 {
			return errors.New("usage: obsdeck preset delete <scene>")
		}
		return store.Delete(rest[1])
	default:
		return errors.New(presetUsage)
	}
}

// runPreset handles the preset subcommands that need a live session.
func runPreset(ctx context.Context, sess *session.Session, dir deckdir.Dir, rest []string) error {
	if len(rest) == 0 {
		return errors.New(presetUsage)
	}
	store := presets.NewStore(dir)

	switch rest[0] {
	case "save":
		p, err := presets.Capture(sess)
		if err != nil {
			return err
		}
		if err := store.Save(p); err != nil {
			return err
		}
		fmt.Printf("saved preset for %s (%d sources)\n", p.Scene, len(p.Levels))
		return nil
	case "apply":
		scene := sess.Store().CurrentScene()
		if len(rest) == 2 {
			scene = rest[1]
		}
		p, ok, err := store.Load(scene)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no preset for scene %q", scene)
		}
		return presets.Apply(ctx, sess, p)
	default:
		return errors.New(presetUsage)
	}
}
