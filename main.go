package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"go-midiroll/config"
	"go-midiroll/debug"
	"go-midiroll/midi"
	"go-midiroll/render"
	"go-midiroll/roll"
	"go-midiroll/theme"
	"go-midiroll/tui"
)

// text renderer strip width
const textColumns = 64

type options struct {
	configPath string
	saveConfig bool
	file       string
	echo       bool
	cfg        *config.Config
}

func parseOptions(args []string) (*options, error) {
	fs := flag.NewFlagSet("go-midiroll", flag.ContinueOnError)
	def := config.DefaultConfig()

	configPath := fs.String("config", "", "config file (default ~/.config/go-midiroll/config.json)")
	saveConfig := fs.Bool("save-config", false, "write the effective config and exit")
	file := fs.String("file", "", "MIDI file to play back instead of capturing live input")
	echo := fs.Bool("echo", false, "text renderer: print every incoming message")
	renderer := fs.String("renderer", def.Renderer, "renderer: text or tui")
	port := fs.String("port", "", "MIDI input port name (exact or substring)")
	lookback := fs.Duration("lookback", time.Duration(def.Lookback), "time window shown on screen")
	fps := fs.Int("fps", def.FPS, "frames per second")
	palette := fs.String("palette", "", "GIMP .gpl palette for channel colors")
	dbg := fs.Bool("debug", false, "log to ~/.config/go-midiroll/debug.log")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// explicitly set flags win over the config file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "renderer":
			cfg.Renderer = *renderer
		case "port":
			cfg.Port = *port
		case "lookback":
			cfg.Lookback = config.Duration(*lookback)
		case "fps":
			cfg.FPS = *fps
		case "palette":
			cfg.Palette = *palette
		case "debug":
			cfg.Debug = *dbg
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &options{
		configPath: *configPath,
		saveConfig: *saveConfig,
		file:       *file,
		echo:       *echo,
		cfg:        cfg,
	}, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := sourceHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

func run(opts *options) error {
	cfg := opts.cfg

	if opts.saveConfig {
		if opts.configPath != "" {
			return cfg.SaveFile(opts.configPath)
		}
		return cfg.Save()
	}

	if cfg.Debug {
		if err := debug.Enable(""); err != nil {
			return fmt.Errorf("enable debug log: %w", err)
		}
		defer debug.Disable()
	}

	palette, err := theme.LoadOrDefault(cfg.Palette)
	if err != nil {
		return fmt.Errorf("load palette: %w", err)
	}

	src, err := midi.Open(midi.Options{
		File: opts.file,
		Live: midi.LiveOptions{
			Port:      cfg.Port,
			Preferred: cfg.PreferredPorts,
			Excluded:  cfg.ExcludedPorts,
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dist := midi.NewDistributor()
	timeline := roll.NewTimeline()
	builder := roll.NewBuilder(timeline, dist.Subscribe())
	var echo *midi.Subscription
	if opts.echo && cfg.Renderer == config.RendererText {
		echo = dist.Subscribe()
	}

	var wg sync.WaitGroup

	// The builder ends on stream close, after the source is closed below,
	// so nothing already queued is lost.
	wg.Add(1)
	go func() {
		defer wg.Done()
		builder.Run(context.WithoutCancel(ctx))
	}()

	if err := src.Start(ctx, dist); err != nil {
		src.Close()
		dist.Close()
		wg.Wait()
		return err
	}
	debug.L().Info("session started",
		zap.String("source", src.Name()),
		zap.String("renderer", cfg.Renderer),
		zap.Time("epoch", src.Epoch().Time()))

	lookback := time.Duration(cfg.Lookback)
	switch cfg.Renderer {
	case config.RendererText:
		text := &render.Text{
			Out:      os.Stdout,
			Sampler:  timeline,
			Source:   src,
			Lookback: lookback,
			Interval: cfg.FrameInterval(),
			Columns:  textColumns,
			Echo:     echo,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			text.Run(ctx)
		}()
		<-ctx.Done()

	case config.RendererTUI:
		th := theme.New(palette)
		m := tui.NewModel(timeline, src, th, lookback, cfg.FrameInterval())
		p := tea.NewProgram(m, tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			debug.L().Error("tui exited", zap.Error(err))
		}
	}

	stop()
	src.Close()
	wg.Wait()

	applied, dropped := builder.Stats()
	debug.L().Info("session ended",
		zap.Int("notes", timeline.Len()),
		zap.Int64("applied", applied),
		zap.Int64("dropped", dropped))
	return nil
}

// sourceHint explains startup failures in user terms.
func sourceHint(err error) string {
	switch {
	case errors.Is(err, midi.ErrSourceUnavailable):
		return "Connect a MIDI device, pick one with -port, or play a file with -file."
	case errors.Is(err, midi.ErrTimeFormat):
		return "Only tick based (metrical) MIDI files can be played."
	}
	return ""
}
