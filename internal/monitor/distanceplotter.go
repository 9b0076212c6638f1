// Package monitor samples per-bone object distances from the synchronizer's
// output frames and renders them for offline inspection: PNG plots through
// gonum/plot and an interactive HTML chart through go-echarts.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/handcontact/internal/contact"
	"github.com/banshee-data/handcontact/internal/framesync"
	"github.com/banshee-data/handcontact/internal/skeleton"
)

// Sample is one bone's published state at one fixed step. Distance is
// +Inf when the bone hovers over nothing.
type Sample struct {
	Step       uint64
	Distance   float64
	Hovering   bool
	Contacting bool
	Grabbing   bool
}

// SeriesKey identifies a bone of one hand.
type SeriesKey struct {
	Hand skeleton.Chirality
	Bone skeleton.BoneID
}

// String returns e.g. "left/index_2".
func (k SeriesKey) String() string {
	return k.Hand.String() + "/" + k.Bone.String()
}

// DistancePlotter records bone distances over time. It is fed one output
// frame per fixed step via Sample and plots after the run.
type DistancePlotter struct {
	mu         sync.Mutex
	enabled    bool
	thresholds contact.Thresholds
	samples    map[SeriesKey][]Sample
	firstStep  uint64
	lastStep   uint64
	frames     int
}

// NewDistancePlotter creates a plotter that marks th's hover and contact
// bands on every plot.
func NewDistancePlotter(th contact.Thresholds) *DistancePlotter {
	return &DistancePlotter{
		thresholds: th,
		samples:    make(map[SeriesKey][]Sample),
	}
}

// Start clears previous samples and begins recording.
func (dp *DistancePlotter) Start() {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.enabled = true
	dp.samples = make(map[SeriesKey][]Sample)
	dp.frames = 0
	dp.firstStep, dp.lastStep = 0, 0
}

// Stop disables sampling. Recorded samples remain available.
func (dp *DistancePlotter) Stop() {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (dp *DistancePlotter) IsEnabled() bool {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.enabled
}

// Sample captures every tracked bone of f. Untracked hands are skipped so
// their series show a gap.
func (dp *DistancePlotter) Sample(f framesync.OutputFrame) {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	if !dp.enabled {
		return
	}
	if dp.frames == 0 {
		dp.firstStep = f.Step
	}
	dp.lastStep = f.Step
	dp.frames++

	for _, h := range f.Hands {
		if !h.Tracked {
			continue
		}
		for _, b := range h.Bones {
			key := SeriesKey{Hand: h.Chirality, Bone: b.ID}
			dp.samples[key] = append(dp.samples[key], Sample{
				Step:       f.Step,
				Distance:   b.ObjectDistance,
				Hovering:   b.Hovering,
				Contacting: b.Contacting,
				Grabbing:   b.Grabbing,
			})
		}
	}
}

// Series returns a copy of the samples recorded for one bone.
func (dp *DistancePlotter) Series(key SeriesKey) []Sample {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return append([]Sample(nil), dp.samples[key]...)
}

// FrameCount returns the number of frames sampled since Start.
func (dp *DistancePlotter) FrameCount() int {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.frames
}

// SampleCount returns the total number of samples collected.
func (dp *DistancePlotter) SampleCount() int {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	count := 0
	for _, s := range dp.samples {
		count += len(s)
	}
	return count
}

// activeKeys returns, in bone order, the keys of hand that hovered at least
// once. Bones that never came near anything only add noise to a plot.
func (dp *DistancePlotter) activeKeys(hand skeleton.Chirality) []SeriesKey {
	var keys []SeriesKey
	for key, samples := range dp.samples {
		if key.Hand != hand {
			continue
		}
		for _, s := range samples {
			if s.Hovering {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Bone.Index() < keys[j].Bone.Index() })
	return keys
}

// GeneratePlots writes one PNG per hand with any hovering bone into
// outputDir. Returns the number of plots written.
func (dp *DistancePlotter) GeneratePlots(outputDir string) (int, error) {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	if outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(dp.samples) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	plotCount := 0
	for c := skeleton.Chirality(0); c < skeleton.NumHands; c++ {
		keys := dp.activeKeys(c)
		if len(keys) == 0 {
			continue
		}
		file := filepath.Join(outputDir, fmt.Sprintf("%s_bone_distance.png", c))
		if err := dp.generateHandPlot(c, keys, file); err != nil {
			return plotCount, fmt.Errorf("%s hand: %w", c, err)
		}
		plotCount++
	}
	return plotCount, nil
}

func (dp *DistancePlotter) generateHandPlot(hand skeleton.Chirality, keys []SeriesKey, file string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s hand - bone to object distance", hand)
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Distance (m)"
	p.Y.Min = 0
	p.Y.Max = dp.thresholds.Hover * 1.25

	colors := generateColors(len(keys))
	for i, key := range keys {
		runs := finiteRuns(dp.samples[key])
		for j, run := range runs {
			line, err := plotter.NewLine(run)
			if err != nil {
				return err
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			if j == 0 {
				p.Legend.Add(key.Bone.String(), line)
			}
		}
	}

	if err := dp.addThreshold(p, "hover", dp.thresholds.Hover, color.RGBA{R: 120, G: 120, B: 120, A: 255}); err != nil {
		return err
	}
	if err := dp.addThreshold(p, "contact", dp.thresholds.Contact, color.RGBA{R: 200, A: 255}); err != nil {
		return err
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save distance plot: %w", err)
	}
	return nil
}

func (dp *DistancePlotter) addThreshold(p *plot.Plot, name string, value float64, c color.Color) error {
	pts := plotter.XYs{
		{X: float64(dp.firstStep), Y: value},
		{X: float64(dp.lastStep), Y: value},
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(0.5)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// finiteRuns splits samples into runs of consecutive steps with a finite
// distance. plotter.NewLine rejects non-finite values, and a gap in steps
// (hand untracked) must not be bridged.
func finiteRuns(samples []Sample) []plotter.XYs {
	var (
		runs []plotter.XYs
		cur  plotter.XYs
		last uint64
	)
	for _, s := range samples {
		finite := !math.IsInf(s.Distance, 0) && !math.IsNaN(s.Distance)
		if !finite || (len(cur) > 0 && s.Step != last+1) {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
		}
		if finite {
			cur = append(cur, plotter.XY{X: float64(s.Step), Y: s.Distance})
		}
		last = s.Step
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// generateColors creates a palette of distinct colors for bone lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
