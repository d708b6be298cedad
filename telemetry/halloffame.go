package telemetry

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/genome"
)

// HallEntry is one champion chromosome and where it came from.
type HallEntry struct {
	ID         string            `json:"id"`
	Generation int               `json:"generation"`
	Fitness    float64           `json:"fitness"`
	Distance   float64           `json:"distance"`
	Chromosome genome.Chromosome `json:"chromosome"`
}

// HallOfFame keeps the best chromosomes seen across a run, fittest first.
// An individual carried over as an elite occupies one slot.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall holding at most maxSize entries.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{entries: make([]HallEntry, 0, maxSize), maxSize: maxSize}
}

// Consider offers an evaluated individual. Returns true if the hall changed.
func (hof *HallOfFame) Consider(generation int, ind *creature.Individual, fitness float64) bool {
	id := ind.ID.String()
	for i, e := range hof.entries {
		if e.ID != id {
			continue
		}
		if e.Fitness >= fitness {
			return false
		}
		hof.entries = append(hof.entries[:i], hof.entries[i+1:]...)
		break
	}

	entry := HallEntry{
		ID:         id,
		Generation: generation,
		Fitness:    fitness,
		Distance:   ind.Displacement(),
		Chromosome: ind.Chromosome().Clone(),
	}
	hof.entries = hof.insertEntry(hof.entries, entry)
	return hof.contains(id)
}

func (hof *HallOfFame) contains(id string) bool {
	for _, e := range hof.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// insertEntry adds an entry keeping descending fitness order. When the hall
// is full the lowest entry is dropped.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Sample picks a chromosome by tournament selection (k=3).
// Returns nil if the hall is empty.
func (hof *HallOfFame) Sample(rng *rand.Rand) genome.Chromosome {
	if len(hof.entries) == 0 {
		return nil
	}
	const tournamentSize = 3
	best := -1
	for range tournamentSize {
		i := rng.IntN(len(hof.entries))
		if best < 0 || hof.entries[i].Fitness > hof.entries[best].Fitness {
			best = i
		}
	}
	return hof.entries[best].Chromosome.Clone()
}

// Entries returns a copy of the entries, fittest first.
func (hof *HallOfFame) Entries() []HallEntry {
	out := make([]HallEntry, len(hof.entries))
	copy(out, hof.entries)
	return out
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int { return len(hof.entries) }

// TopFitness returns the best fitness seen, or 0 if the hall is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

type hallFile struct {
	MaxSize int         `json:"max_size"`
	Entries []HallEntry `json:"entries"`
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hallFile{MaxSize: hof.maxSize, Entries: hof.entries}, "", "  ")
}

// LoadHallOfFameFromFile reads a hall written by OutputManager.WriteHallOfFame.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}
	var f hallFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(max(f.MaxSize, len(f.Entries)))
	for _, e := range f.Entries {
		hof.entries = hof.insertEntry(hof.entries, e)
	}
	return hof, nil
}
