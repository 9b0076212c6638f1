// Command handsim plays a scripted hand movement through the contact
// engine and reports what the hand touched. It can record hand events to
// SQLite, plot bone distances and serve the recording over /debug/.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/handcontact/internal/config"
	"github.com/banshee-data/handcontact/internal/contact"
	"github.com/banshee-data/handcontact/internal/framesync"
	"github.com/banshee-data/handcontact/internal/hands"
	"github.com/banshee-data/handcontact/internal/layers"
	"github.com/banshee-data/handcontact/internal/monitor"
	"github.com/banshee-data/handcontact/internal/monitoring"
	"github.com/banshee-data/handcontact/internal/recorder"
	"github.com/banshee-data/handcontact/internal/scenario"
	"github.com/banshee-data/handcontact/internal/skeleton"
	"github.com/banshee-data/handcontact/internal/timeutil"
	"github.com/banshee-data/handcontact/internal/version"
)

var (
	configPath  = flag.String("config", "", "Tuning config JSON (built-in defaults when empty)")
	handName    = flag.String("hand", "right", "Hand to script: left or right")
	duration    = flag.Duration("duration", 2*time.Second, "Simulated run length")
	tickEvery   = flag.Duration("tick", 10*time.Millisecond, "Host tick interval")
	realtime    = flag.Bool("realtime", false, "Pace the run against the wall clock")
	dbPath      = flag.String("db", "", "Record hand events to this SQLite file")
	plotDir     = flag.String("plot-dir", "", "Write bone distance PNGs to this directory")
	chartPath   = flag.String("chart", "", "Write an HTML bone distance chart to this file")
	debugAddr   = flag.String("debug-addr", "", "After the run, serve /debug/ routes on this address until interrupted")
	debugFrames = flag.Bool("debug", false, "Log per-bone contact state of the final step")
	verbose     = flag.Bool("v", false, "Log every hand event")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// options is the parsed command line.
type options struct {
	Tuning    *config.TuningConfig
	Hand      skeleton.Chirality
	Duration  time.Duration
	Tick      time.Duration
	Realtime  bool
	DBPath    string
	PlotDir   string
	ChartPath string
	Debug     bool
	Verbose   bool
}

// summary is what a run produced.
type summary struct {
	Ticks   int
	Steps   uint64
	Dropped int64
	Events  map[hands.EventKind]int
	Bodies  map[string]int // contact_begin per body
	Final   framesync.OutputFrame
	Debug   *contact.DebugFrame
	Plots   int

	rec     *recorder.Recorder
	plotter *monitor.DistancePlotter
}

func parseHand(s string) (skeleton.Chirality, error) {
	switch s {
	case "left":
		return skeleton.Left, nil
	case "right":
		return skeleton.Right, nil
	}
	return 0, fmt.Errorf("unknown hand %q (want left or right)", s)
}

func loadOptions() (options, error) {
	opts := options{
		Duration:  *duration,
		Tick:      *tickEvery,
		Realtime:  *realtime,
		DBPath:    *dbPath,
		PlotDir:   *plotDir,
		ChartPath: *chartPath,
		Debug:     *debugFrames,
		Verbose:   *verbose,
	}

	hand, err := parseHand(*handName)
	if err != nil {
		return opts, err
	}
	opts.Hand = hand

	if *configPath == "" {
		opts.Tuning = config.DefaultTuningConfig()
	} else if opts.Tuning, err = config.LoadTuningConfig(*configPath); err != nil {
		return opts, err
	}

	if opts.Duration <= 0 || opts.Tick <= 0 {
		return opts, fmt.Errorf("duration and tick must be positive")
	}
	return opts, nil
}

// run plays the reach scenario and returns its summary. The caller owns
// the returned recorder, if any.
func run(ctx context.Context, opts options) (*summary, error) {
	reg := layers.NewRegistry()
	table, err := scenario.NewTabletop(reg)
	if err != nil {
		return nil, err
	}

	sum := &summary{
		Events: make(map[hands.EventKind]int),
		Bodies: make(map[string]int),
	}

	if opts.DBPath != "" {
		if sum.rec, err = recorder.Open(opts.DBPath); err != nil {
			return nil, err
		}
	}
	sink := hands.EventSinkFunc(func(e hands.Event) {
		sum.Events[e.Kind]++
		if e.Kind == hands.EventContactBegin {
			sum.Bodies[e.Body]++
		}
		if opts.Verbose {
			log.Printf("step %d %s %s %s", e.Step, e.Hand, e.Kind, e.Body)
		}
		if sum.rec != nil {
			sum.rec.HandEvent(e)
		}
	})

	syncOpts := []framesync.Option{framesync.WithEventSink(sink)}
	if opts.Debug {
		dc := contact.NewDebugCollector()
		dc.SetEnabled(true)
		syncOpts = append(syncOpts, framesync.WithDebugCollector(dc))
	}
	s := framesync.New(framesync.ConfigFromTuning(opts.Tuning), reg, table.Scene, syncOpts...)
	if err := s.Err(); err != nil {
		return sum, err
	}

	sum.plotter = monitor.NewDistancePlotter(contact.ThresholdsFromTuning(opts.Tuning))
	sum.plotter.Start()

	src := scenario.NewSource(scenario.Reach(opts.Hand))

	var clock timeutil.Clock = timeutil.RealClock{}
	var mock *timeutil.MockClock
	if !opts.Realtime {
		mock = timeutil.NewMockClock(time.Now())
		clock = mock
	}

	runner := framesync.NewRunner(s, clock, src)
	runner.OnQuery = func(out framesync.OutputFrame) {
		sum.Ticks++
		sum.plotter.Sample(out)
		sum.Final = out
	}

	// Step 1: drive the runner, offline or against the wall clock.
	if opts.Realtime {
		runCtx, cancel := context.WithTimeout(ctx, opts.Duration)
		defer cancel()
		if err := runner.Run(runCtx, opts.Tick); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return sum, err
		}
	} else {
		for elapsed := time.Duration(0); elapsed < opts.Duration; elapsed += opts.Tick {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			mock.Advance(opts.Tick)
			if _, err := runner.Tick(); err != nil {
				return sum, err
			}
		}
	}
	sum.plotter.Stop()
	sum.Steps = s.Steps()
	sum.Dropped = runner.DroppedSteps()
	sum.Debug = s.LastDebugFrame()

	// Step 2: render outputs.
	if opts.PlotDir != "" {
		if sum.Plots, err = sum.plotter.GeneratePlots(opts.PlotDir); err != nil {
			return sum, fmt.Errorf("plots: %w", err)
		}
	}
	if opts.ChartPath != "" {
		if err := writeChart(sum.plotter, opts.Hand, opts.ChartPath); err != nil {
			return sum, fmt.Errorf("chart: %w", err)
		}
	}
	return sum, nil
}

func writeChart(p *monitor.DistancePlotter, hand skeleton.Chirality, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.RenderChart(f, hand); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func logSummary(sum *summary) {
	log.Printf("ran %d ticks, %d fixed steps (%d dropped)", sum.Ticks, sum.Steps, sum.Dropped)

	kinds := make([]string, 0, len(sum.Events))
	for k := range sum.Events {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		log.Printf("  %-14s %d", k, sum.Events[hands.EventKind(k)])
	}

	bodies := make([]string, 0, len(sum.Bodies))
	for b := range sum.Bodies {
		bodies = append(bodies, b)
	}
	sort.Strings(bodies)
	for _, b := range bodies {
		log.Printf("  touched %s %d time(s)", b, sum.Bodies[b])
	}

	if sum.Debug != nil {
		for _, b := range sum.Debug.Bones {
			if b.Relations == 0 {
				continue
			}
			log.Printf("  step %d %s/%s nearest=%s distance=%.4f contacting=%v grabbing=%v",
				sum.Debug.Step, b.Hand, b.Bone, b.NearestBody, b.Distance, b.Contacting, b.Grabbing)
		}
	}
	if sum.Plots > 0 {
		log.Printf("wrote %d plot(s)", sum.Plots)
	}
}

// serveDebug exposes the recording and the distance chart until ctx ends.
func serveDebug(ctx context.Context, addr string, sum *summary) error {
	mux := http.NewServeMux()
	if sum.rec != nil {
		if err := sum.rec.AttachAdminRoutes(mux); err != nil {
			return err
		}
	}
	tsweb.Debugger(mux).Handle("hand-distance", "Bone distance chart (?hand=left|right)", sum.plotter)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("debug server shutdown: %v", err)
		}
	}()

	log.Printf("serving debug routes on http://%s/debug/", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// closeRecorder closes the run's recorder, if it opened one.
func closeRecorder(sum *summary) error {
	if sum == nil || sum.rec == nil {
		return nil
	}
	if err := sum.rec.Close(); err != nil {
		return fmt.Errorf("close recorder: %w", err)
	}
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("handsim"))
		return
	}

	opts, err := loadOptions()
	if err != nil {
		log.Fatalf("handsim: %v", err)
	}
	monitoring.SetLogger(log.Printf)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// log.Fatalf skips deferred calls, so the recorder is closed by hand.
	sum, err := run(ctx, opts)
	if err == nil {
		logSummary(sum)
		if *debugAddr != "" {
			err = serveDebug(ctx, *debugAddr, sum)
		}
	}
	if cerr := closeRecorder(sum); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("handsim: %v", err)
	}
}
