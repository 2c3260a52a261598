package web

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-posegame/pkg/store"
)

// echartsAssetsHost serves the echarts javascript.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderResultChart renders total score and max multiplier per session as an
// HTML page. results are newest first; the chart runs oldest to newest.
func RenderResultChart(routineName string, results []store.Result) ([]byte, error) {
	ordered := slices.Clone(results)
	slices.Reverse(ordered)

	x := make([]string, len(ordered))
	scores := make([]opts.LineData, len(ordered))
	mults := make([]opts.BarData, len(ordered))
	for i, r := range ordered {
		x[i] = r.Time().Format(TimeFormat)
		scores[i] = opts.LineData{Value: r.TotalScore}
		mults[i] = opts.BarData{Value: r.MaxMultiplier}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Results", Width: "100%", Height: "480px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: routineName, Subtitle: fmt.Sprintf("sessions=%d", len(ordered))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score"}),
	)
	line.SetXAxis(x).AddSeries("score", scores,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Max multiplier"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("multiplier", mults)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(line, bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) handleResultChart(c *fiber.Ctx) error {
	name := store.CleanName(c.Params("routine"))
	results, err := s.repo.LoadResults(name)
	if err != nil {
		return s.fail(c, err)
	}
	html, err := RenderResultChart(name, results)
	if err != nil {
		return s.fail(c, fmt.Errorf("render chart: %w", err))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(html)
}
