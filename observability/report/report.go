// Package report summarises completed programs into turnaround and dispatch
// distributions.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/lukawerner/MySimpleOS/core"
)

// Distribution describes one sample set.
type Distribution struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	P50    float64
	P90    float64
	P99    float64
	Max    float64
}

// Summary is the scheduling report of a batch of completions.
type Summary struct {
	Completions int
	Background  int

	// Turnaround is in seconds, from submission to completion.
	Turnaround Distribution
	Dispatches Distribution

	// ByPolicy splits Turnaround by the policy that ran each program.
	ByPolicy map[string]Distribution
}

// Summarize builds a Summary from completion records, in any order.
func Summarize(records []core.CompletionRecord) Summary {
	s := Summary{Completions: len(records), ByPolicy: make(map[string]Distribution)}
	if len(records) == 0 {
		return s
	}

	turnaround := make([]float64, 0, len(records))
	dispatches := make([]float64, 0, len(records))
	perPolicy := make(map[string][]float64)
	for _, r := range records {
		if r.Background {
			s.Background++
		}
		secs := r.Turnaround.Seconds()
		turnaround = append(turnaround, secs)
		dispatches = append(dispatches, float64(r.Dispatches))
		perPolicy[r.Policy] = append(perPolicy[r.Policy], secs)
	}

	s.Turnaround = Describe(turnaround)
	s.Dispatches = Describe(dispatches)
	for policy, xs := range perPolicy {
		s.ByPolicy[policy] = Describe(xs)
	}
	return s
}

// Describe computes a Distribution over xs. xs is sorted in place.
func Describe(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	sort.Float64s(xs)

	d := Distribution{
		Count: len(xs),
		Min:   xs[0],
		Max:   xs[len(xs)-1],
		P50:   stat.Quantile(0.5, stat.Empirical, xs, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, xs, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, xs, nil),
	}
	if len(xs) == 1 {
		d.Mean = xs[0]
		return d
	}
	d.Mean, d.StdDev = stat.MeanStdDev(xs, nil)
	return d
}

// Write prints s as an aligned table.
func (s Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "completions\t%d\t(background %d)\n", s.Completions, s.Background)
	fmt.Fprintln(tw, "metric\tmean\tstddev\tp50\tp90\tp99\tmax")
	writeRow(tw, "turnaround", s.Turnaround, secondsString)
	writeRow(tw, "dispatches", s.Dispatches, func(v float64) string { return fmt.Sprintf("%.1f", v) })

	policies := make([]string, 0, len(s.ByPolicy))
	for p := range s.ByPolicy {
		policies = append(policies, p)
	}
	sort.Strings(policies)
	for _, p := range policies {
		writeRow(tw, "turnaround["+p+"]", s.ByPolicy[p], secondsString)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, name string, d Distribution, format func(float64) string) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		name, format(d.Mean), format(d.StdDev), format(d.P50), format(d.P90), format(d.P99), format(d.Max))
}

func secondsString(v float64) string {
	return time.Duration(v * float64(time.Second)).Round(time.Microsecond).String()
}
