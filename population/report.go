package population

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Report holds the per-individual values written for one generation.
type Report struct {
	Generation    int
	ExpandedLinks []int
	FlatLinks     []int
	Distances     []float64
	Fitness       []float64
}

// Report collects segment counts, displacements and fitness for every
// individual, in population order.
func (p *Population) Report(generation int) (Report, error) {
	r := Report{
		Generation:    generation,
		ExpandedLinks: make([]int, len(p.Individuals)),
		FlatLinks:     make([]int, len(p.Individuals)),
		Distances:     make([]float64, len(p.Individuals)),
		Fitness:       p.Fitness(),
	}
	for i, ind := range p.Individuals {
		exp, err := ind.ExpandedSegments()
		if err != nil {
			return Report{}, fmt.Errorf("individual %d: %w", i, err)
		}
		flat, err := ind.FlatSegments()
		if err != nil {
			return Report{}, fmt.Errorf("individual %d: %w", i, err)
		}
		r.ExpandedLinks[i] = len(exp)
		r.FlatLinks[i] = len(flat)
		r.Distances[i] = ind.Displacement()
	}
	return r, nil
}

// WriteReport writes the generation report to dir.
func (p *Population) WriteReport(generation int, dir string) error {
	r, err := p.Report(generation)
	if err != nil {
		return err
	}
	return r.Write(dir)
}

// Write stores each metric as a single comma-joined row in
// <generation>_<metric>.csv.
func (r Report) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	rows := []struct {
		metric string
		values []string
	}{
		{"n_exp_links", formatInts(r.ExpandedLinks)},
		{"n_flat_links", formatInts(r.FlatLinks)},
		{"distances", formatFloats(r.Distances)},
		{"fitness", formatFloats(r.Fitness)},
	}
	for _, row := range rows {
		name := filepath.Join(dir, fmt.Sprintf("%d_%s.csv", r.Generation, row.metric))
		line := strings.Join(row.values, ",") + "\n"
		if err := os.WriteFile(name, []byte(line), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}

func formatInts(vs []int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.Itoa(v)
	}
	return out
}

func formatFloats(vs []float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}
