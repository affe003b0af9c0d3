// Package render computes fallback chart geometry from derived
// statistics: pie segments, bar rows, and polyline points expressed as
// percentages, ready to be drawn with basic primitives when the primary
// charting layer is unavailable.
//
// All functions tolerate empty input and return empty geometry rather
// than dividing by zero.
package render

import "github.com/calclabs/mathstream/pkg/mathstream/stats"

// DefaultPalette is used when the caller supplies none.
var DefaultPalette = []string{
	"hsl(252, 87%, 53%)",
	"hsl(252, 87%, 63%)",
	"hsl(252, 87%, 73%)",
}

// PieSegment is one slice of a donut/pie chart. Start and End are
// percentages of the full circle; Share is the slice's fraction of the
// total value.
type PieSegment struct {
	Name  string
	Value int
	Start float64
	End   float64
	Share float64
	Color string
}

// PieSegments converts a frequency table into pie geometry. Colors come
// from the colors map when present, otherwise positionally from the
// palette (index modulo palette size).
func PieSegments(data []stats.Bucket, palette []string, colors map[string]string) []PieSegment {
	total := 0
	for _, d := range data {
		total += d.Count
	}
	if total == 0 {
		return []PieSegment{}
	}

	segments := make([]PieSegment, 0, len(data))
	start := 0.0
	for i, d := range data {
		share := float64(d.Count) / float64(total)
		segments = append(segments, PieSegment{
			Name:  d.Name,
			Value: d.Count,
			Start: start,
			End:   start + share*100,
			Share: share,
			Color: colorFor(d.Name, i, palette, colors),
		})
		start += share * 100
	}
	return segments
}

// BarRow is one row of a horizontal bar chart. Width is a percentage of
// the widest bar.
type BarRow struct {
	Name  string
	Value int
	Width float64
	Color string
}

// BarRows converts a frequency table into bar geometry.
func BarRows(data []stats.Bucket, palette []string, colors map[string]string) []BarRow {
	maxValue := 0
	for _, d := range data {
		if d.Count > maxValue {
			maxValue = d.Count
		}
	}
	if maxValue == 0 {
		return []BarRow{}
	}

	rows := make([]BarRow, 0, len(data))
	for i, d := range data {
		rows = append(rows, BarRow{
			Name:  d.Name,
			Value: d.Count,
			Width: float64(d.Count) / float64(maxValue) * 100,
			Color: colorFor(d.Name, i, palette, colors),
		})
	}
	return rows
}

// Point is one polyline vertex. X and Y are percentages of the plot
// area; Y grows downward so 0 is the top edge.
type Point struct {
	X float64
	Y float64
}

// LinePath is one series of a line chart.
type LinePath struct {
	Label  string
	Color  string
	Points []Point
}

// HourlyLines builds polyline geometry for the hourly activity chart:
// one path for query counts and one for distinct-user counts, normalized
// against the maximum value across both series.
func HourlyLines(buckets []stats.HourBucket, queryColor, userColor string) []LinePath {
	if len(buckets) == 0 {
		return []LinePath{}
	}

	maxValue := 0
	for _, b := range buckets {
		if b.Queries > maxValue {
			maxValue = b.Queries
		}
		if b.Users > maxValue {
			maxValue = b.Users
		}
	}
	if maxValue == 0 {
		maxValue = 1
	}

	queries := make([]Point, len(buckets))
	users := make([]Point, len(buckets))
	for i, b := range buckets {
		x := 0.0
		if len(buckets) > 1 {
			x = float64(i) / float64(len(buckets)-1) * 100
		}
		queries[i] = Point{X: x, Y: 100 - float64(b.Queries)/float64(maxValue)*100}
		users[i] = Point{X: x, Y: 100 - float64(b.Users)/float64(maxValue)*100}
	}

	return []LinePath{
		{Label: "Queries", Color: queryColor, Points: queries},
		{Label: "Users", Color: userColor, Points: users},
	}
}

// LegendEntry pairs a name with its resolved color.
type LegendEntry struct {
	Name  string
	Color string
}

// Legend resolves colors for a frequency table, using the same
// positional fallback as the chart builders.
func Legend(data []stats.Bucket, palette []string, colors map[string]string) []LegendEntry {
	entries := make([]LegendEntry, 0, len(data))
	for i, d := range data {
		entries = append(entries, LegendEntry{
			Name:  d.Name,
			Color: colorFor(d.Name, i, palette, colors),
		})
	}
	return entries
}

// colorFor picks an explicit color when mapped, else a positional one.
func colorFor(name string, i int, palette []string, colors map[string]string) string {
	if c, ok := colors[name]; ok {
		return c
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return palette[i%len(palette)]
}
