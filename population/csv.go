package population

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/genome"
	"github.com/pthm-cable/morphogen/traits"
)

// ErrNoGenerations is returned when no generation directory exists yet.
var ErrNoGenerations = errors.New("no generation directories found")

var trailingIndex = regexp.MustCompile(`(\d+)\.csv$`)

// ChromosomeFile returns the file name for the i-th individual.
func ChromosomeFile(identifier string, i int) string {
	return fmt.Sprintf("%s_cr_%d.csv", identifier, i)
}

// WriteChromosome writes one gene per row with shortest round-trip floats.
func WriteChromosome(path string, c genome.Chromosome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chromosome file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := make([]string, c.Width())
	for _, g := range c {
		for j, v := range g {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadChromosome reads a chromosome written by WriteChromosome.
func ReadChromosome(path string) (genome.Chromosome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chromosome file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c := make(genome.Chromosome, len(records))
	for i, rec := range records {
		g := make(genome.Gene, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %d: %w", path, i, j, err)
			}
			g[j] = v
		}
		c[i] = g
	}
	return c, nil
}

// SaveIndividuals writes each individual's chromosome to dir as
// <identifier>_cr_<i>.csv, creating dir if needed.
func SaveIndividuals(inds []*creature.Individual, dir, identifier string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for i, ind := range inds {
		if err := WriteChromosome(filepath.Join(dir, ChromosomeFile(identifier, i)), ind.Chromosome()); err != nil {
			return err
		}
	}
	return nil
}

// chromosomeFiles lists files in dir whose names start with identifier and
// end in .csv, ordered by their trailing number. Files without one sort last
// by name.
func chromosomeFiles(dir, identifier string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	match := regexp.MustCompile(`^` + regexp.QuoteMeta(identifier) + `.*\.csv$`)

	type file struct {
		name  string
		index int
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || !match.MatchString(e.Name()) {
			continue
		}
		idx := -1
		if m := trailingIndex.FindStringSubmatch(e.Name()); m != nil {
			idx, _ = strconv.Atoi(m[1])
		}
		files = append(files, file{e.Name(), idx})
	}
	sort.Slice(files, func(a, b int) bool {
		fa, fb := files[a], files[b]
		if (fa.index < 0) != (fb.index < 0) {
			return fb.index < 0
		}
		if fa.index != fb.index {
			return fa.index < fb.index
		}
		return fa.name < fb.name
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Join(dir, f.name)
	}
	return out, nil
}

// LoadIndividuals reads every chromosome file for identifier in dir.
func LoadIndividuals(spec *traits.Spec, dir, identifier string) ([]*creature.Individual, error) {
	paths, err := chromosomeFiles(dir, identifier)
	if err != nil {
		return nil, err
	}
	inds := make([]*creature.Individual, 0, len(paths))
	for _, path := range paths {
		c, err := ReadChromosome(path)
		if err != nil {
			return nil, err
		}
		ind, err := creature.New(spec, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		inds = append(inds, ind)
	}
	return inds, nil
}

// SaveCSV writes the whole population.
func (p *Population) SaveCSV(dir, identifier string) error {
	return SaveIndividuals(p.Individuals, dir, identifier)
}

// SaveFittestCSV writes the n fittest individuals, fittest first.
func (p *Population) SaveFittestCSV(n int, dir, identifier string) error {
	return SaveIndividuals(p.Fittest(n), dir, identifier)
}

// LoadCSV replaces the population with the chromosomes saved in dir. Size
// follows the number of chromosomes found.
func (p *Population) LoadCSV(dir, identifier string) error {
	inds, err := LoadIndividuals(p.spec, dir, identifier)
	if err != nil {
		return err
	}
	if len(inds) == 0 {
		return fmt.Errorf("%w: no %s chromosomes in %s", ErrEmpty, identifier, dir)
	}
	return p.Reset(inds)
}

// GenerationDir returns the directory holding generation n.
func GenerationDir(base, identifier string, n int) string {
	return filepath.Join(base, fmt.Sprintf("%s_iter_%d", identifier, n))
}

// LatestGenerationDir finds the generation directory under base with the
// highest _iter_<n> suffix.
func LatestGenerationDir(base, identifier string) (string, int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, ErrNoGenerations
		}
		return "", 0, fmt.Errorf("listing %s: %w", base, err)
	}
	match := regexp.MustCompile(`^` + regexp.QuoteMeta(identifier) + `_iter_(\d+)$`)

	best, bestName := -1, ""
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := match.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > best {
			best, bestName = n, e.Name()
		}
	}
	if best < 0 {
		return "", 0, ErrNoGenerations
	}
	return filepath.Join(base, bestName), best, nil
}
