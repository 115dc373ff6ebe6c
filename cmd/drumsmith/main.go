package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/drumsmith-go"
	"github.com/cbegin/drumsmith-go/internal/project"
)

const usage = `usage: drumsmith <command> [flags]

commands:
  init     write a starter project file
  render   bounce the arrangement to a WAV file
  midi     export the arrangement as a Standard MIDI File
  play     edit and loop a pattern live
  arrange  play the arrangement live
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "init":
		err = runInit(args)
	case "render":
		err = runRender(args)
	case "midi":
		err = runMIDI(args)
	case "play":
		err = runPlay(args, false)
	case "arrange":
		err = runPlay(args, true)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(drumsmith.Message(err))
	}
}

func initLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	out := fs.String("o", "drumsmith.yaml", "project file to create")
	force := fs.Bool("f", false, "overwrite an existing file")
	fs.Parse(args)

	if !*force {
		if _, err := os.Stat(*out); err == nil {
			return fmt.Errorf("%s already exists (use -f to overwrite)", *out)
		}
	}
	if err := os.WriteFile(*out, []byte(project.Example), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		in         = fs.String("in", "drumsmith.yaml", "project file")
		out        = fs.String("o", "", "output WAV file (default: timestamped name)")
		sampleRate = fs.Int("sample-rate", drumsmith.DefaultSampleRate, "output sample rate")
		seed       = fs.Int64("seed", 1, "noise seed; equal seeds render identical files")
		timeout    = fs.Duration("timeout", drumsmith.DefaultRenderTimeout, "give up after this long")
		margin     = fs.Float64("margin", drumsmith.DefaultRenderMargin, "seconds of tail after the last pattern")
		eq         = fs.String("eq", "", "master EQ gains as five comma-separated values, 1 = unity")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	fs.Parse(args)
	initLogger(*verbose)

	proj, err := project.Load(*in)
	if err != nil {
		return err
	}
	opts := []drumsmith.RendererOption{
		drumsmith.WithRenderSampleRate(*sampleRate),
		drumsmith.WithRenderSeed(*seed),
		drumsmith.WithRenderTimeout(*timeout),
		drumsmith.WithTailMargin(*margin),
	}
	if *eq != "" {
		gains, err := parseEQ(*eq)
		if err != nil {
			return err
		}
		opts = append(opts, drumsmith.WithMasterEQ(gains))
	}
	r, err := drumsmith.NewRenderer(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	data, err := r.Render(ctx, proj.Arrangement.Patterns(), func(percent int) {
		fmt.Fprintf(os.Stderr, "\rrendering %3d%%", percent)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = drumsmith.ExportFileName(time.Now())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	slog.Info("rendered", "file", path, "bytes", len(data), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func parseEQ(s string) ([5]float64, error) {
	var gains [5]float64
	parts := strings.Split(s, ",")
	if len(parts) != len(gains) {
		return gains, fmt.Errorf("invalid -eq %q (expected 5 comma-separated gains)", s)
	}
	for i, p := range parts {
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &gains[i]); err != nil {
			return gains, fmt.Errorf("invalid -eq band %d %q", i+1, p)
		}
	}
	return gains, nil
}

func runMIDI(args []string) error {
	fs := flag.NewFlagSet("midi", flag.ExitOnError)
	in := fs.String("in", "drumsmith.yaml", "project file")
	out := fs.String("o", "drumsmith.mid", "output MIDI file")
	fs.Parse(args)

	proj, err := project.Load(*in)
	if err != nil {
		return err
	}
	data, err := drumsmith.ExportMIDI(proj.Arrangement.Patterns())
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d patterns)\n", *out, proj.Arrangement.Len())
	return nil
}

func runPlay(args []string, arrange bool) error {
	name := "play"
	if arrange {
		name = "arrange"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var (
		in         = fs.String("in", "drumsmith.yaml", "project file")
		slot       = fs.Int("slot", 1, "bank slot to edit (play)")
		sampleRate = fs.Int("sample-rate", drumsmith.DefaultSampleRate, "output sample rate")
		volume     = fs.Float64("volume", 1.0, "master volume (0..1)")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	fs.Parse(args)

	// The TUI owns the terminal; log to a file instead of stderr.
	logFile, err := os.OpenFile("drumsmith.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})))

	proj, err := project.Load(*in)
	if err != nil {
		return err
	}
	pl, err := drumsmith.NewPlayer(drumsmith.WithSampleRate(*sampleRate), drumsmith.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer pl.Close()
	pl.SetMasterVolume(*volume)

	m := newModel(pl, proj, *in, *slot-1)
	if arrange {
		if err := m.playArrangement(); err != nil {
			return err
		}
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
