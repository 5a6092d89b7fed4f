// Command obsdeck is a command-line remote control for an OBS instance over
// the obs-websocket protocol. It is a thin consumer of pkg/session: every
// subcommand connects, issues commands or reads the mirrored state, and
// prints plain text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/obsdeck/obsdeck/pkg/creds"
	"github.com/obsdeck/obsdeck/pkg/deckdir"
	"github.com/obsdeck/obsdeck/pkg/obsws"
	"github.com/obsdeck/obsdeck/pkg/session"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: obsdeck <command> [flags] [args]

Commands:
  connect                     connect and store credentials (with -remember)
  forget                      clear stored credentials
  status                      show connection, outputs, and performance stats
  scenes                      list scenes, marking the current one
  scene <name>                switch the program scene
  sources                     list the current scene's sources
  toggle <source> on|off      show or hide a source in the current scene
  volume <source> <0..1>      set a source's volume (linear fraction)
  mute <source> on|off        mute or unmute a source
  record start|stop|pause|resume
  stream start|stop
  preset save|apply|list|delete [scene]
  watch                       stay connected and print state changes

Connection flags (every command): -address, -password, -env, -deck-dir,
-timeout, -verbose. Address and password fall back to OBSDECK_ADDRESS and
OBSDECK_PASSWORD, then to stored credentials.
`)
}

// connConfig carries the flags shared by every subcommand.
type connConfig struct {
	address  string
	password string
	envFile  string
	deckDir  string
	timeout  time.Duration
	verbose  bool
}

// bindConnFlags registers the shared connection flags on a FlagSet.
func bindConnFlags(fs *flag.FlagSet, cfg *connConfig) {
	fs.StringVar(&cfg.address, "address", "", "endpoint address (default: OBSDECK_ADDRESS or stored credentials)")
	fs.StringVar(&cfg.password, "password", "", "endpoint password (default: OBSDECK_PASSWORD or stored credentials)")
	fs.StringVar(&cfg.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.StringVar(&cfg.deckDir, "deck-dir", "", "path to the .obsdeck directory (default: ~/.obsdeck)")
	fs.DurationVar(&cfg.timeout, "timeout", 15*time.Second, "per-command timeout")
	fs.BoolVar(&cfg.verbose, "verbose", false, "enable debug logging")
}

func run(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var cfg connConfig
	bindConnFlags(fs, &cfg)

	var remember, bypass bool
	if cmd == "connect" {
		fs.BoolVar(&remember, "remember", false, "store credentials for later commands")
		fs.BoolVar(&bypass, "bypass-insecure", false, "allow auto-connect to a non-local ws:// endpoint")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()

	if err := loadDotEnv(cfg.envFile); err != nil {
		return err
	}

	dir, err := resolveDeckDir(cfg.deckDir)
	if err != nil {
		return err
	}
	credStore := creds.NewStore(dir)

	switch cmd {
	case "forget":
		if err := credStore.Clear(); err != nil {
			return err
		}
		fmt.Println("stored credentials cleared")
		return nil
	case "preset":
		// preset list/delete work without a connection.
		if len(rest) > 0 && (rest[0] == "list" || rest[0] == "delete") {
			return runPresetOffline(dir, rest)
		}
	}

	sess, done, err := open(ctx, cfg, credStore)
	if err != nil {
		return err
	}
	defer done()

	switch cmd {
	case "connect":
		if err := credStore.Save(creds.Record{
			Address:               cfg.address,
			Secret:                cfg.password,
			Remember:              remember,
			BypassInsecureWarning: bypass,
		}); err != nil {
			return err
		}
		return printStatus(sess)
	case "status":
		return printStatus(sess)
	case "scenes":
		return printScenes(sess)
	case "scene":
		if len(rest) != 1 {
			return errors.New("usage: obsdeck scene <name>")
		}
		return sess.SetCurrentScene(ctx, rest[0])
	case "sources":
		return printSources(sess)
	case "toggle":
		visible, err := parseOnOff(rest, "toggle <source> on|off")
		if err != nil {
			return err
		}
		return sess.ToggleSourceVisibility(ctx, rest[0], visible)
	case "volume":
		if len(rest) != 2 {
			return errors.New("usage: obsdeck volume <source> <0..1>")
		}
		frac, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", rest[1], err)
		}
		return sess.SetAudioVolume(ctx, rest[0], frac)
	case "mute":
		muted, err := parseOnOff(rest, "mute <source> on|off")
		if err != nil {
			return err
		}
		return sess.ToggleAudioMute(ctx, rest[0], muted)
	case "record":
		return runRecord(ctx, sess, rest)
	case "stream":
		return runStream(ctx, sess, rest)
	case "preset":
		return runPreset(ctx, sess, dir, rest)
	case "watch":
		return runWatch(ctx, sess)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// open builds the transport and session, resolves the address and password,
// and connects. The returned cleanup disconnects.
func open(ctx context.Context, cfg connConfig, credStore *creds.Store) (*session.Session, func(), error) {
	logger := newLogger(cfg.verbose)

	address, password, err := resolveEndpoint(cfg, credStore)
	if err != nil {
		return nil, nil, err
	}

	client := obsws.New(obsws.Options{Logger: logger})
	sess := session.New(client, session.Options{
		Logger:   logger,
		Notifier: consoleNotifier{},
	})

	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	if err := sess.Connect(connectCtx, address, password); err != nil {
		return nil, nil, err
	}

	return sess, sess.Disconnect, nil
}

// resolveEndpoint picks address/password from flags, then environment, then
// the stored credential record (which must pass the auto-connect policy).
func resolveEndpoint(cfg connConfig, credStore *creds.Store) (string, string, error) {
	address := cfg.address
	password := cfg.password

	if address == "" {
		address = os.Getenv("OBSDECK_ADDRESS")
	}
	if password == "" {
		password = os.Getenv("OBSDECK_PASSWORD")
	}

	if address == "" {
		rec, ok, err := credStore.Load()
		if err != nil {
			return "", "", err
		}
		if ok && creds.AutoConnectAllowed(rec) {
			address = rec.Address
			if password == "" {
				password = rec.Secret
			}
		} else if ok {
			return "", "", errors.New("stored endpoint is insecure and non-local; pass -address explicitly or reconnect with -bypass-insecure")
		}
	}

	if address == "" {
		return "", "", errors.New("no address: pass -address, set OBSDECK_ADDRESS, or store credentials with `obsdeck connect -remember`")
	}

	return address, password, nil
}

func resolveDeckDir(path string) (deckdir.Dir, error) {
	if path != "" {
		return deckdir.New(path), nil
	}
	return deckdir.Default()
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// loadDotEnv loads the env file if present; a missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func parseOnOff(rest []string, usageLine string) (bool, error) {
	if len(rest) != 2 {
		return false, fmt.Errorf("usage: obsdeck %s", usageLine)
	}
	switch rest[1] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("usage: obsdeck %s", usageLine)
	}
}

func runRecord(ctx context.Context, sess *session.Session, rest []string) error {
	if len(rest) != 1 {
		return errors.New("usage: obsdeck record start|stop|pause|resume")
	}
	switch rest[0] {
	case "start":
		return sess.StartRecording(ctx)
	case "stop":
		return sess.StopRecording(ctx)
	case "pause":
		return sess.PauseRecording(ctx)
	case "resume":
		return sess.ResumeRecording(ctx)
	default:
		return errors.New("usage: obsdeck record start|stop|pause|resume")
	}
}

func runStream(ctx context.Context, sess *session.Session, rest []string) error {
	if len(rest) != 1 {
		return errors.New("usage: obsdeck stream start|stop")
	}
	switch rest[0] {
	case "start":
		return sess.StartStreaming(ctx)
	case "stop":
		return sess.StopStreaming(ctx)
	default:
		return errors.New("usage: obsdeck stream start|stop")
	}
}
