package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/tatianab/ravi-adventure/internal/config"
	"github.com/tatianab/ravi-adventure/internal/dialogue"
	"github.com/tatianab/ravi-adventure/internal/engine"
	"github.com/tatianab/ravi-adventure/internal/journal"
	"github.com/tatianab/ravi-adventure/internal/tui"
)

const usage = `Usage: ravi <command> [flags]

Commands:
  start     [--name N] [--debug] [--plain]   begin a new game
  continue  [--debug] [--plain]              resume the saved game
  saves                                      list saved games
  reset     [--slot S]                       delete a saved game
  journal   --out FILE.pdf [--slot S]        export a journal of a saved game
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	switch args[0] {
	case "start":
		return play(ctx, cfg, args[1:], false, in, out)
	case "continue":
		return play(ctx, cfg, args[1:], true, in, out)
	case "saves":
		return listSaves(cfg, out)
	case "reset":
		return reset(cfg, args[1:], out)
	case "journal":
		return exportJournal(ctx, cfg, args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func play(ctx context.Context, cfg *config.Config, args []string, resume bool, in io.Reader, out io.Writer) error {
	name := "start"
	if resume {
		name = "continue"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	player := fs.String("name", engine.DefaultPlayerName, "your name")
	debug := fs.Bool("debug", false, "log at debug level")
	plain := fs.Bool("plain", false, "use a line-based prompt instead of the full-screen interface")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.LogFile, *debug)
	if err != nil {
		return err
	}
	defer closeLog()

	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore.Close()

	opts := engine.Options{
		PlayerName: *player,
		Store:      store,
		Slot:       cfg.Slot,
		ContentDir: cfg.ContentDir,
		Logger:     logger,
	}
	if cfg.HasGemini() {
		fb, err := dialogue.NewGeminiFallback(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			logger.Warn("gemini unavailable, using canned replies", "error", err)
		} else {
			defer fb.Close()
			opts.Fallback = fb
		}
	}

	eng, err := engine.New(ctx, opts)
	if err != nil {
		return err
	}

	resumed := false
	if resume {
		resumed, err = eng.Load(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(out, "Your save couldn't be read (%v). Starting a new game.\n\n", err)
		case !resumed:
			fmt.Fprintln(out, "No saved game found. Starting a new one.")
			fmt.Fprintln(out)
		}
	}

	intro := eng.Intro(resumed)
	if *plain {
		err = tui.RunPlain(ctx, eng, in, out, intro)
	} else {
		err = tui.Run(eng, intro)
	}
	if err != nil {
		return err
	}

	if err := eng.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved to slot %q. Run 'ravi continue' to pick up where you left off.\n", cfg.Slot)
	return nil
}

func listSaves(cfg *config.Config, out io.Writer) error {
	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore.Close()

	saves, err := store.List()
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Fprintln(out, "No saved games.")
		return nil
	}
	for _, s := range saves {
		fmt.Fprintf(out, "%-12s %-10s turn %-4d %s\n", s.Slot, s.Location, s.Turns, s.LastSaved.Local().Format(time.DateTime))
	}
	return nil
}

func reset(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	slot := fs.String("slot", cfg.Slot, "save slot to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.ValidateSlot(*slot); err != nil {
		return err
	}

	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore.Close()

	if err := store.Delete(*slot); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted save %q.\n", *slot)
	return nil
}

func exportJournal(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	path := fs.String("out", "ravi-journal.pdf", "PDF file to write")
	slot := fs.String("slot", cfg.Slot, "save slot to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.ValidateSlot(*slot); err != nil {
		return err
	}

	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore.Close()

	eng, err := engine.New(ctx, engine.Options{Store: store, Slot: *slot, ContentDir: cfg.ContentDir})
	if err != nil {
		return err
	}
	ok, err := eng.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no saved game in slot %q", *slot)
	}

	if err := journal.Export(eng, *path, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Journal written to %s.\n", *path)
	return nil
}

// newLogger writes structured logs to path. The terminal belongs to the
// game, so nothing is logged to stdout or stderr.
func newLogger(path string, debug bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}
