package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/graphview/internal/datasource"
	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/export"
	"github.com/vanderheijden86/graphview/pkg/graph"
	"github.com/vanderheijden86/graphview/pkg/metrics"
	"github.com/vanderheijden86/graphview/pkg/scene"
	"github.com/vanderheijden86/graphview/pkg/ui"
	"github.com/vanderheijden86/graphview/pkg/version"
	"github.com/vanderheijden86/graphview/pkg/watcher"
)

func main() {
	scenePath := flag.String("scene", "", "Scene file to open (.scene.yaml, .scene.json, .scene.db)")
	configPath := flag.String("config", "", "Config file (default: ~/.config/graphview/config.yaml)")
	watchFlag := flag.Bool("watch", false, "Reload the scene when it changes on disk")
	demoFlag := flag.Bool("demo", false, "Open the built-in demo scene")
	listFlag := flag.Bool("list", false, "List discovered scene sources and exit")
	dumpFlag := flag.Bool("dump", false, "Print the scene hierarchy as JSON and exit")
	exportPath := flag.String("export", "", "Write the scene to another file (format from extension) and exit")
	imagePath := flag.String("image", "", "Render the scene hierarchy to an SVG or PNG file and exit")
	diffPath := flag.String("diff", "", "Compare the scene with another source and exit")
	statsFlag := flag.Bool("stats", false, "Print timing metrics as JSON on exit")
	debugFlag := flag.Bool("debug", false, "Write debug log to the state directory")
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	versionFlag := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: graphview [options]")
		fmt.Println("\nA terminal inspector for node graph scenes.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("graphview %s\n", version.String())
		os.Exit(0)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *debugFlag {
		if closer, err := openDebugLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		} else {
			defer closer.Close()
		}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	if *scenePath == "" {
		*scenePath = cfg.Scene.Path
	}

	if *listFlag {
		if err := listSources(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	doc, path, err := resolveScene(*scenePath, *demoFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		os.Exit(1)
	}

	if *diffPath != "" {
		if err := diffScene(os.Stdout, doc, path, *diffPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	sys := graph.NewSystem()
	idx, err := scene.Build(sys, doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building scene: %v\n", err)
		os.Exit(1)
	}
	sel := graph.NewSelection(sys)
	defer sel.Close()

	if *exportPath != "" {
		out := scene.Export(sys, idx)
		out.Name = doc.Name
		if err := datasource.Save(*exportPath, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting scene: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d nodes)\n", *exportPath, out.NodeCount())
		os.Exit(0)
	}

	if *imagePath != "" {
		opts := export.ImageOptions{Path: *imagePath, Title: doc.Name}
		if err := export.SaveHierarchyImage(scene.TakeSnapshot(sys, sel), opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering hierarchy: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *imagePath)
		os.Exit(0)
	}

	if *dumpFlag {
		if err := writeJSON(os.Stdout, scene.TakeSnapshot(sys, sel)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	m, err := ui.NewModel(sys, sel, idx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var w *watcher.Watcher
	if (*watchFlag || cfg.Scene.Watch) && path != "" {
		w, err = watcher.New(path, watcher.WithOnError(func(err error) {
			debug.Log("watch %s: %v", path, err)
		}))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot watch %s: %v\n", path, err)
			w = nil
		}
	}
	m = m.WithScene(path, w)

	if err := run(m, w, cfg); err != nil {
		fmt.Printf("Error running graphview: %v\n", err)
		os.Exit(1)
	}

	if *statsFlag {
		_ = writeJSON(os.Stderr, map[string]any{
			"timings":  metrics.AllTimingStats(),
			"counters": metrics.CounterValues(),
		})
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func openDebugLog() (io.Closer, error) {
	dir := config.StateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	debug.SetOutput(f)
	debug.SetEnabled(true)
	return f, nil
}

// resolveScene picks the scene to open: an explicit path, the demo, or the
// best source in the working directory. The returned path is empty for the
// demo scene.
func resolveScene(path string, demo bool) (*scene.Document, string, error) {
	if demo {
		return scene.Demo(), "", nil
	}
	if path != "" {
		doc, err := datasource.Load(path)
		if err != nil {
			return nil, "", err
		}
		abs, _ := filepath.Abs(path)
		return doc, abs, nil
	}

	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		ValidateAfterDiscovery: true,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("%s", msg) },
	})
	if err != nil {
		return nil, "", err
	}
	switch len(sources) {
	case 0:
		fmt.Fprintln(os.Stderr, "No *.scene.{yaml,json,db} files here; opening the demo scene.")
		return scene.Demo(), "", nil
	case 1:
	default:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			chosen, err := chooseSource(sources)
			if err != nil {
				return nil, "", err
			}
			sources = []datasource.DataSource{chosen}
		}
	}

	best, err := datasource.SelectBestSource(sources)
	if err != nil {
		return nil, "", err
	}
	doc, err := datasource.LoadFromSource(best)
	return doc, best.Path, err
}

func chooseSource(sources []datasource.DataSource) (datasource.DataSource, error) {
	options := make([]huh.Option[int], len(sources))
	for i, s := range sources {
		options[i] = huh.NewOption(s.Label(), i)
	}
	var picked int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Several scenes found. Which one?").
				Options(options...).
				Value(&picked),
		),
	).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		return datasource.DataSource{}, err
	}
	return sources[picked], nil
}

func listSources(out io.Writer) error {
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(out, "No scene sources found.")
		return nil
	}
	for _, s := range sources {
		fmt.Fprintln(out, s.String())
	}
	return nil
}

func diffScene(out io.Writer, doc *scene.Document, path, other string) error {
	src, err := datasource.SourceFor(other)
	if err != nil {
		return err
	}
	otherDoc, err := datasource.LoadFromSource(src)
	if err != nil {
		return err
	}
	if path == "" {
		path = "demo"
	}
	diff := datasource.DetectInconsistencies(doc, otherDoc, path, src.Path, datasource.DefaultDiffOptions())
	fmt.Fprint(out, diff.Summary())
	if diff.HasInconsistencies() {
		fmt.Fprintln(out)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// run drives the program and the scene watcher together. Either ending
// stops the other.
func run(m ui.Model, w *watcher.Watcher, cfg config.Config) error {
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithoutSignalHandler(), tea.WithReportFocus()}
	if cfg.MouseEnabled() {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if w != nil {
		if err := w.Start(ctx); err != nil {
			debug.Log("watcher start: %v", err)
		} else {
			defer w.Stop()
		}
	}

	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
		}
		p.Quit()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
		return nil
	})
	return g.Wait()
}
