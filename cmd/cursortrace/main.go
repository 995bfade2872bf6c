// Command cursortrace records pointer-activity sessions, persists them as
// JSON document sets, and derives analytics artifacts from saved sessions.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cursortrace/internal/config"
	"cursortrace/internal/hook"
	"cursortrace/internal/logging"
	"cursortrace/internal/render"
	"cursortrace/internal/session"
	"cursortrace/internal/snapshot"
	"cursortrace/internal/store"
	"cursortrace/internal/watcher"
)

const usage = `usage: cursortrace [-config file] <command> [args]

commands:
  record    capture a session from the demo event source and save it
  list      list saved session document sets in the data directory
  watch     follow the data directory and print sessions as they appear
  report    print statistics for a saved session: report <token>
  render    write PNG artifacts for a saved session: render <token>
  archive   copy a saved session into the SQLite archive: archive <token>
  sessions  list sessions in the SQLite archive
`

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Logging)

	var cmdErr error
	switch cmd := flag.Arg(0); cmd {
	case "record":
		cmdErr = runRecord(cfg, logger, flag.Args()[1:])
	case "list":
		cmdErr = runList(cfg)
	case "watch":
		cmdErr = runWatch(cfg, logger)
	case "report":
		cmdErr = runReport(cfg, flag.Args()[1:])
	case "render":
		cmdErr = runRender(cfg, logger, flag.Args()[1:])
	case "archive":
		cmdErr = runArchive(cfg, logger, flag.Args()[1:])
	case "sessions":
		cmdErr = runSessions(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if cmdErr != nil {
		logger.Error("command failed", "error", cmdErr)
		os.Exit(1)
	}
}

// runRecord captures a session from the synthetic demo source. Interrupt
// acts as the cancel signal, mirroring the hook's cancel key.
func runRecord(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	duration := fs.Duration("duration", 10*time.Second, "how long the demo source runs")
	seed := fs.Int64("seed", time.Now().UnixNano(), "demo source random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	interval := 20 * time.Millisecond
	steps := hook.Wander(int(*duration/interval), cfg.Capture.ScreenWidth,
		cfg.Capture.ScreenHeight, interval, *seed)
	steps = append(steps, hook.Step{Kind: hook.StepCancel})
	src := &hook.ScriptSource{Steps: steps}

	rec := session.NewRecorder(session.Options{
		GridSize:      cfg.Capture.GridSize,
		TraceCapacity: cfg.Capture.TraceCapacity,
		Logger:        logger,
	})
	if err := rec.Start(src); err != nil {
		return err
	}
	fmt.Printf("Recording session %s (interrupt to stop early)...\n", rec.ID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-sigCh:
			logger.Info("interrupt received, stopping recording")
			rec.Stop()
			break wait
		case <-ticker.C:
			if !rec.IsRecording() {
				break wait
			}
		}
	}
	// The source may still be attached when the script cancelled itself.
	_ = src.Detach()

	snap, err := snapshot.FromRecorder(rec, snapshot.NewToken(time.Now()))
	if err != nil {
		return err
	}
	if err := snap.Save(cfg.Storage.DataDir); err != nil {
		return err
	}

	fmt.Printf("\nSaved session %s to %s\n\n", snap.Token, cfg.Storage.DataDir)
	fmt.Print(rec.Stats().Summary())
	return nil
}

func runList(cfg config.Config) error {
	sets, err := watcher.Scan(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("scan data dir: %w", err)
	}
	if len(sets) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}
	for _, s := range sets {
		status := "complete"
		if !s.Loadable() {
			status = "missing movements"
		} else if !s.HasClicks || !s.HasScrolls || !s.HasHover || !s.HasStats {
			status = "partial"
		}
		fmt.Printf("%s  (%s)\n", s.Token, status)
	}
	return nil
}

// runWatch follows the data directory until interrupted, printing the
// session index every time a document set appears or changes.
func runWatch(cfg config.Config, logger *slog.Logger) error {
	w := watcher.New(func(sets []watcher.SnapshotSet) {
		fmt.Printf("-- %d saved session(s) --\n", len(sets))
		for _, s := range sets {
			fmt.Printf("%s  loadable=%v\n", s.Token, s.Loadable())
		}
	}, logger)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := w.Watch(cfg.Storage.DataDir); err != nil {
		return fmt.Errorf("watch data dir: %w", err)
	}
	defer w.Shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("watch stopped")
	return nil
}

func runReport(cfg config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("report requires exactly one token")
	}
	snap, err := snapshot.Load(cfg.Storage.DataDir, args[0])
	if err != nil {
		return err
	}
	fmt.Print(snap.Stats.Summary())
	fmt.Printf("Unique Hover Locations: %d\n", len(snap.Hover))
	return nil
}

func runRender(cfg config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("render requires exactly one token")
	}
	snap, err := snapshot.Load(cfg.Storage.DataDir, args[0])
	if err != nil {
		return err
	}

	r := render.New(cfg.Capture.ScreenWidth, cfg.Capture.ScreenHeight)
	written, renderErr := r.RenderAll(snap, cfg.Storage.ArtifactDir)
	for _, p := range written {
		fmt.Printf("wrote %s\n", p)
	}
	if renderErr != nil {
		// Partial artifact sets are expected for sparse sessions.
		logger.Warn("some artifacts were skipped", "error", renderErr)
	}
	if len(written) == 0 {
		return fmt.Errorf("no artifacts could be rendered")
	}
	return nil
}

func runArchive(cfg config.Config, logger *slog.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("archive requires exactly one token")
	}
	snap, err := snapshot.Load(cfg.Storage.DataDir, args[0])
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.ArchivePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Archive(snap); err != nil {
		return err
	}
	logger.Info("session archived", "token", snap.Token,
		"movements", snap.Stats.TotalMovements)
	fmt.Printf("Archived session %s\n", snap.Token)
	return nil
}

func runSessions(cfg config.Config) error {
	db, err := store.Open(cfg.Storage.ArchivePath)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Sessions()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Archive is empty.")
		return nil
	}
	for _, row := range rows {
		fmt.Printf("%s  archived %s  %d movements, %d clicks, %.1fs\n",
			row.Token, row.ArchivedAt.Format(time.RFC3339),
			row.Stats.TotalMovements, row.Stats.TotalClicks, row.Stats.TotalTime)
	}
	return nil
}
