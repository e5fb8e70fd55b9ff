package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/boxer-emu/boxer/internal/changeset"
	"github.com/boxer-emu/boxer/internal/config"
	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/emulator"
	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/boxer-emu/boxer/internal/engine/sim"
	"github.com/boxer-emu/boxer/internal/gamebox"
	"github.com/boxer-emu/boxer/internal/log"
	"github.com/boxer-emu/boxer/internal/session"
	"github.com/boxer-emu/boxer/internal/shell"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	runConfs     []string
	runMounts    []string
	runExec      []string
	runLaunch    string
	runCore      string
	runCycles    int
	runAutoSpeed bool
	runNoDiff    bool
	runNoGamebox bool
)

var runCmd = &cobra.Command{
	Use:   "run [-- program args]",
	Short: "Start a DOS session",
	Long: `Start a DOS session and attach it to the terminal.

Lines read from stdin are typed at the DOS prompt, one per prompt. The
session exits once input ends (Ctrl-D) and Ctrl-C stops it immediately.

Settings are layered: ~/.boxer/config.yaml, then engine configuration files
(Lua), then the --core/--cycles/--auto-speed flags. Configuration files are
applied in order: conf_files from config.yaml, the boxer.lua of the gamebox
containing the current directory, then each --conf.

Examples:
  boxer run --mount C=~/dos/keen
  boxer run --conf ~/dos/keen/boxer.lua --launch 'C:\KEEN4.EXE'
  boxer run -m C=~/dos -e 'CD GAMES' -e DIR
  echo DIR | boxer run -m C=~/dos`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runConfs, "conf", "c", []string{}, "engine configuration file (repeatable, applied in order)")
	runCmd.Flags().StringArrayVarP(&runMounts, "mount", "m", []string{}, "drive to mount, LETTER=path[:ro|:rw] (repeatable)")
	runCmd.Flags().StringArrayVarP(&runExec, "exec", "e", []string{}, "command to type at the prompt (repeatable)")
	runCmd.Flags().StringVarP(&runLaunch, "launch", "l", "", "DOS path of a program to launch, e.g. C:\\GAMES\\KEEN4.EXE")
	runCmd.Flags().StringVar(&runCore, "core", "", "CPU core: normal, dynamic, simple, full")
	runCmd.Flags().IntVar(&runCycles, "cycles", 0, "fixed CPU speed in cycles")
	runCmd.Flags().BoolVar(&runAutoSpeed, "auto-speed", false, "run the CPU as fast as possible")
	runCmd.Flags().BoolVar(&runNoDiff, "no-diff", false, "disable change tracking and summary")
	runCmd.Flags().BoolVar(&runNoGamebox, "no-gamebox", false, "disable automatic boxer.lua detection from the current directory")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	Debug("Config loaded successfully")

	validator, err := drive.NewValidator(cfg.BlockedPaths)
	if err != nil {
		return fmt.Errorf("failed to create drive validator: %w", err)
	}

	base, err := cfg.Emulation.Settings()
	if err != nil {
		return fmt.Errorf("invalid emulation settings: %w", err)
	}

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	logger := log.New(os.Stderr, debug)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	rec := session.NewRecord()
	recorder := newSessionRecorder(rec, logger, cfg.ShouldTrackChanges() && !runNoDiff)

	var em *emulator.Emulator
	eng := sim.New(sim.Options{
		Output:     os.Stdout,
		Logger:     logger,
		ShowPrompt: interactive,
		Ticks:      cfg.Emulation.Ticks,
		Idle:       time.Millisecond,
		OnRelease:  func(key string) { em.DriveReleased(key) },
	})
	// App config settings are the engine's baseline; Lua configs may override them.
	eng.ApplySettings(base)

	opts := []emulator.Option{
		emulator.WithLogger(logger),
		emulator.WithValidator(validator),
		emulator.WithDelegate(recorder),
		emulator.WithObserver(emulator.ObserverFunc(func(n emulator.Notification) {
			if n.Name != emulator.DidStart {
				return
			}
			if err := recorder.save(store); err != nil {
				logger.Errorf("failed to save session: %v", err)
			}
			if err := recorder.saveSnapshots(store); err != nil {
				logger.Errorf("%v", err)
			}
		})),
	}
	if s, ok := flagSettings(cmd, base); ok {
		opts = append(opts, emulator.WithSettings(s))
	}
	em = emulator.New(eng, opts...)

	confs := append([]string{}, cfg.ConfFiles...)
	if !runNoGamebox {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		if path := gamebox.ConfigPath(cwd); path != "" {
			Debug("Gamebox detected: %s", path)
			confs = append(confs, path)
		}
	}
	for _, path := range append(confs, runConfs...) {
		em.ApplyConfigurationAtPath(path)
	}
	for _, spec := range append(append([]string{}, cfg.Drives...), runMounts...) {
		b, err := drive.Parse(spec)
		if err != nil {
			return fmt.Errorf("invalid drive '%s': %w", spec, err)
		}
		if err := em.BindDrive(b.Key, b.Handle); err != nil {
			return fmt.Errorf("drive validation failed: %w", err)
		}
		Debug("Drive %s: %s", b.Key, b.Handle)
	}

	enqueue := func(line string) {
		recorder.command(line)
		em.Enqueue(line, shell.DisplayEncoding)
	}
	for _, line := range append(append([]string{}, cfg.Startup...), runExec...) {
		enqueue(line)
	}
	if runLaunch != "" {
		if err := em.Launch(runLaunch, strings.Join(args, " ")); err != nil {
			return fmt.Errorf("failed to launch %s: %w", runLaunch, err)
		}
		recorder.command(runLaunch)
	}

	if err := recorder.save(store); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	Debug("Session %s created", rec.ID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go readInput(os.Stdin, enqueue)

	em.Start(ctx)

	if err := recorder.save(store); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, key := range em.ReleasingDrives() {
		logger.Errorf("drive %s was not released by the engine", key)
	}

	cs, runErr := recorder.result()
	if cs != nil {
		if err := changeset.SaveChangeset(store.ChangesPath(rec.ID), cs); err != nil {
			logger.Errorf("failed to save changes: %v", err)
		} else if err := store.RemoveSnapshots(rec.ID); err != nil {
			logger.Errorf("%v", err)
		}
		changeset.PrintSummary(os.Stderr, cs)
	}

	fmt.Fprintf(os.Stderr, "\nSession %s %s (%s).\n", rec.ID, rec.ExitReason, rec.Duration(time.Now()).Round(time.Millisecond))
	if runErr != nil {
		return fmt.Errorf("session %s failed: %w", rec.ID, runErr)
	}
	return nil
}

// flagSettings returns the settings requested on the command line, layered
// over base, and whether any were given.
func flagSettings(cmd *cobra.Command, base engine.Settings) (engine.Settings, bool) {
	s := base
	changed := false
	if cmd.Flags().Changed("core") {
		core, err := engine.ParseCoreMode(runCore)
		if err == nil {
			s.Core = core
			changed = true
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring --core: %v\n", err)
		}
	}
	if cmd.Flags().Changed("cycles") {
		s.FixedSpeed = engine.ClampSpeed(runCycles)
		s.AutoSpeed = false
		changed = true
	}
	if cmd.Flags().Changed("auto-speed") {
		s.AutoSpeed = runAutoSpeed
		changed = true
	}
	return s, changed
}

// readInput types each line of r at the prompt and exits the shell once
// input ends.
func readInput(r io.Reader, enqueue func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		enqueue(scanner.Text())
	}
	enqueue("EXIT")
}
