package monitor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/handcontact/internal/skeleton"
)

// RenderChart writes an HTML line chart of hand's bone distances to w.
// Steps where a bone hovered over nothing are rendered as gaps.
func (dp *DistancePlotter) RenderChart(w io.Writer, hand skeleton.Chirality) error {
	dp.mu.Lock()
	keys := dp.activeKeys(hand)
	first, last := dp.firstStep, dp.lastStep
	series := make(map[SeriesKey][]Sample, len(keys))
	for _, k := range keys {
		series[k] = dp.samples[k]
	}
	th := dp.thresholds
	frames := dp.frames
	dp.mu.Unlock()

	steps := make([]uint64, 0, last-first+1)
	if frames > 0 {
		for s := first; s <= last; s++ {
			steps = append(steps, s)
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Bone distance", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s hand - bone to object distance", hand), Subtitle: fmt.Sprintf("steps=%d bones=%d", len(steps), len(keys))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Step", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Distance (m)", Min: 0, Max: th.Hover * 1.25}),
	)
	line.SetXAxis(steps)

	for _, k := range keys {
		line.AddSeries(k.Bone.String(), lineData(series[k], first, len(steps)))
	}
	line.AddSeries("hover", constantData(th.Hover, len(steps)))
	line.AddSeries("contact", constantData(th.Contact, len(steps)))

	return line.Render(w)
}

// lineData places samples on the step axis. Missing or infinite values
// become "-", which echarts draws as a gap.
func lineData(samples []Sample, first uint64, n int) []opts.LineData {
	data := make([]opts.LineData, n)
	for i := range data {
		data[i] = opts.LineData{Value: "-"}
	}
	for _, s := range samples {
		i := int(s.Step - first)
		if i < 0 || i >= n || math.IsInf(s.Distance, 0) || math.IsNaN(s.Distance) {
			continue
		}
		data[i] = opts.LineData{Value: s.Distance}
	}
	return data
}

func constantData(v float64, n int) []opts.LineData {
	data := make([]opts.LineData, n)
	for i := range data {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

// ServeHTTP renders the chart for ?hand=left|right (default right).
func (dp *DistancePlotter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hand := skeleton.Right
	switch r.URL.Query().Get("hand") {
	case "", "right":
	case "left":
		hand = skeleton.Left
	default:
		http.Error(w, "hand must be left or right", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := dp.RenderChart(&buf, hand); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
