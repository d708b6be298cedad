// Package traits defines the gene layout: how each slot of a fixed-width gene
// decodes into a named, typed trait value.
package traits

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects how a scaled gene value is turned into a trait value.
type Kind uint8

const (
	Continuous  Kind = iota // Scaled value used as-is
	Discrete                // ceil(scaled)
	Categorical             // ceil(scaled) - 1, a zero-based category index
)

// Names of the traits in the default specification.
const (
	LinkShape       = "link_shape"
	LinkLength1     = "link_length_1"
	LinkLength2     = "link_length_2"
	LinkLength3     = "link_length_3"
	LinkRadius      = "link_radius"
	LinkRecurrence  = "link_recurrence"
	LinkMassDensity = "link_mass_density"
	JointType       = "joint_type"
	JointAxis       = "joint_axis_xyz"
	JointOriginRPY1 = "joint_origin_rpy_1"
	JointOriginRPY2 = "joint_origin_rpy_2"
	JointOriginRPY3 = "joint_origin_rpy_3"
	JointOriginXYZ1 = "joint_origin_xyz_1"
	JointOriginXYZ2 = "joint_origin_xyz_2"
	JointOriginXYZ3 = "joint_origin_xyz_3"
	ControlWaveform = "control_waveform"
	ControlAmp      = "control_amp"
	ControlFreq     = "control_freq"
)

var (
	// ErrInvalidSpec is returned for malformed trait specifications.
	ErrInvalidSpec = errors.New("invalid trait specification")
	// ErrGeneWidth is returned when a gene has fewer slots than the spec has traits.
	ErrGeneWidth = errors.New("gene narrower than trait specification")
)

// String returns the YAML name of the kind.
func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuous":
		return Continuous, nil
	case "discrete":
		return Discrete, nil
	case "categorical":
		return Categorical, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, s)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Trait describes one gene slot.
type Trait struct {
	Name  string  `yaml:"name"`
	Kind  Kind    `yaml:"kind"`
	Scale float64 `yaml:"scale"`
	Index int     `yaml:"index"`
}

// Spec is an immutable, validated, ordered set of traits.
// The zero value is not usable; build one with NewSpec or Default.
type Spec struct {
	traits []Trait
	byName map[string]int
}

// Validate checks that kinds are known, scales are finite, names are unique
// and non-empty, and indices are unique and contiguous from zero.
func Validate(traits []Trait) error {
	if len(traits) == 0 {
		return fmt.Errorf("%w: no traits", ErrInvalidSpec)
	}
	names := make(map[string]bool, len(traits))
	seen := make([]bool, len(traits))
	for _, t := range traits {
		if t.Name == "" {
			return fmt.Errorf("%w: trait with empty name", ErrInvalidSpec)
		}
		if names[t.Name] {
			return fmt.Errorf("%w: duplicate trait %q", ErrInvalidSpec, t.Name)
		}
		names[t.Name] = true

		if t.Kind > Categorical {
			return fmt.Errorf("%w: trait %q has invalid kind %s", ErrInvalidSpec, t.Name, t.Kind)
		}
		if math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
			return fmt.Errorf("%w: trait %q has non-finite scale", ErrInvalidSpec, t.Name)
		}
		if t.Index < 0 || t.Index >= len(traits) {
			return fmt.Errorf("%w: trait %q index %d outside 0..%d", ErrInvalidSpec, t.Name, t.Index, len(traits)-1)
		}
		if seen[t.Index] {
			return fmt.Errorf("%w: double index %d", ErrInvalidSpec, t.Index)
		}
		seen[t.Index] = true
	}
	return nil
}

// NewSpec validates traits and returns an immutable spec.
func NewSpec(traits []Trait) (*Spec, error) {
	if err := Validate(traits); err != nil {
		return nil, err
	}
	s := &Spec{
		traits: make([]Trait, len(traits)),
		byName: make(map[string]int, len(traits)),
	}
	copy(s.traits, traits)
	for i, t := range s.traits {
		s.byName[t.Name] = i
	}
	return s, nil
}

// Default returns the built-in 18-trait specification.
// Indices follow declaration order.
func Default() *Spec {
	decl := []Trait{
		{Name: LinkShape, Kind: Categorical, Scale: 3},
		{Name: LinkLength1, Scale: 1},
		{Name: LinkLength2, Scale: 1},
		{Name: LinkLength3, Scale: 1},
		{Name: LinkRadius, Scale: 1},
		{Name: LinkRecurrence, Kind: Discrete, Scale: 3},
		{Name: LinkMassDensity, Scale: 5},
		{Name: JointType, Kind: Categorical, Scale: 2},
		{Name: JointAxis, Kind: Categorical, Scale: 3},
		{Name: JointOriginRPY1, Scale: 2 * math.Pi},
		{Name: JointOriginRPY2, Scale: 2 * math.Pi},
		{Name: JointOriginRPY3, Scale: 2 * math.Pi},
		{Name: JointOriginXYZ1, Scale: 1},
		{Name: JointOriginXYZ2, Scale: 1},
		{Name: JointOriginXYZ3, Scale: 1},
		{Name: ControlWaveform, Kind: Categorical, Scale: 2},
		{Name: ControlAmp, Scale: 0.25},
		{Name: ControlFreq, Scale: 1},
	}
	for i := range decl {
		decl[i].Index = i
	}
	s, err := NewSpec(decl)
	if err != nil {
		panic(fmt.Sprintf("traits: default spec invalid: %v", err))
	}
	return s
}

// Len returns the number of traits, which is also the gene width.
func (s *Spec) Len() int {
	return len(s.traits)
}

// Traits returns a copy of the traits in declaration order.
func (s *Spec) Traits() []Trait {
	out := make([]Trait, len(s.traits))
	copy(out, s.traits)
	return out
}

// Lookup returns the trait with the given name.
func (s *Spec) Lookup(name string) (Trait, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Trait{}, false
	}
	return s.traits[i], true
}

// Values maps trait names to decoded values. Discrete and categorical values
// are stored as integral floats.
type Values map[string]float64

// Float returns the named value (0 if absent).
func (v Values) Float(name string) float64 {
	return v[name]
}

// Int returns the named value truncated to an int.
func (v Values) Int(name string) int {
	return int(v[name])
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Decode scales each gene slot by its trait and applies the trait kind.
// Categorical indices are not clamped; an out-of-range index is reported by
// whoever looks the category up.
func (s *Spec) Decode(gene []float64) (Values, error) {
	if len(gene) < len(s.traits) {
		return nil, fmt.Errorf("%w: gene has %d slots, spec has %d traits", ErrGeneWidth, len(gene), len(s.traits))
	}
	values := make(Values, len(s.traits))
	for _, t := range s.traits {
		raw := gene[t.Index] * t.Scale
		switch t.Kind {
		case Discrete:
			raw = math.Ceil(raw)
		case Categorical:
			raw = math.Ceil(raw) - 1
		}
		values[t.Name] = raw
	}
	return values, nil
}

// specFile is the on-disk YAML layout. Kind and scale are required. Index is
// optional; when every trait omits it, declaration order is used.
type specFile struct {
	Traits []struct {
		Name  string   `yaml:"name"`
		Kind  *Kind    `yaml:"kind"`
		Scale *float64 `yaml:"scale"`
		Index *int     `yaml:"index"`
	} `yaml:"traits"`
}

// ParseSpec parses and validates a YAML trait specification.
func ParseSpec(data []byte) (*Spec, error) {
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	explicit := 0
	for i, t := range f.Traits {
		if t.Kind == nil {
			return nil, fmt.Errorf("%w: trait %d (%q) has no kind", ErrInvalidSpec, i, t.Name)
		}
		if t.Scale == nil {
			return nil, fmt.Errorf("%w: trait %d (%q) has no scale", ErrInvalidSpec, i, t.Name)
		}
		if t.Index != nil {
			explicit++
		}
	}
	if explicit != 0 && explicit != len(f.Traits) {
		return nil, fmt.Errorf("%w: index must be given for all traits or none", ErrInvalidSpec)
	}

	decl := make([]Trait, len(f.Traits))
	for i, t := range f.Traits {
		decl[i] = Trait{Name: t.Name, Kind: *t.Kind, Scale: *t.Scale, Index: i}
		if t.Index != nil {
			decl[i].Index = *t.Index
		}
	}
	return NewSpec(decl)
}

// LoadSpec reads a YAML trait specification from path.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trait spec: %w", err)
	}
	return ParseSpec(data)
}

// MarshalYAML implements yaml.Marshaler.
func (s *Spec) MarshalYAML() (interface{}, error) {
	return struct {
		Traits []Trait `yaml:"traits"`
	}{Traits: s.Traits()}, nil
}

// WriteSpec writes the spec as YAML.
func (s *Spec) WriteSpec(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling trait spec: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing trait spec: %w", err)
	}
	return nil
}
