package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/morphogen/genome"
	"github.com/pthm-cable/morphogen/population"
	"github.com/pthm-cable/morphogen/traits"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeChromosome(t *testing.T, dir string) string {
	t.Helper()
	width := traits.Default().Len()
	c := make(genome.Chromosome, 3)
	for i := range c {
		c[i] = make(genome.Gene, width)
		for j := range c[i] {
			c[i][j] = 0.5
		}
	}
	path := filepath.Join(dir, "dna_0.csv")
	if err := population.WriteChromosome(path, c); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	data := `evolution:
  population_size: 4
  gene_count: 3
  elites: 1
  random_injections: 1
  generations: 1
  seed: 3
simulation:
  workers: 2
  frames: 24
  control_interval: 12
output:
  dir: ` + filepath.Join(dir, "data") + `
  reports: false
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "morphogen ") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRenderAndInspect(t *testing.T) {
	dir := t.TempDir()
	path := writeChromosome(t, dir)

	out, err := run(t, "render", "--config", "", "--log-format", "text", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<robot") || !strings.Contains(out, "<joint") {
		t.Errorf("render output is not a robot description:\n%s", out)
	}

	out, err = run(t, "inspect", "--config", "", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"flat segments", "Link_0", "Link_2"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, err := run(t, "version", "--log-level", "loud"); err == nil {
		t.Error("expected error for invalid log level")
	}
	run(t, "version", "--log-level", "info")
}

func TestEvolveThenReplay(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	if _, err := run(t, "evolve", "--config", cfgPath, "--log-format", "text", "--run-id", "cli-run"); err != nil {
		t.Fatal(err)
	}
	if _, n, err := population.LatestGenerationDir(filepath.Join(dir, "data"), "dna"); err != nil || n != 1 {
		t.Fatalf("latest generation = %d, %v", n, err)
	}

	outDir := filepath.Join(dir, "replay")
	out, err := run(t, "replay", "--config", cfgPath, "-o", outDir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "FITNESS") {
		t.Errorf("replay table missing header:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "fittest.csv")); err != nil {
		t.Errorf("fittest.csv not written: %v", err)
	}
}
