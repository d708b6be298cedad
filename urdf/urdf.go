// Package urdf renders an expanded body plan as a URDF robot description and
// parses such descriptions back for engines that consume them.
package urdf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pthm-cable/morphogen/morphology"
	"github.com/pthm-cable/morphogen/traits"
)

// ErrCategory is returned when a categorical trait decodes outside its table.
var ErrCategory = errors.New("category index out of range")

// Category tables, indexed by the decoded categorical traits.
var (
	Shapes     = []string{"box", "cylinder", "sphere"}
	JointTypes = []string{"revolute", "continuous"}
	Axes       = []string{"1 0 0", "0 1 0", "0 0 1"}
)

// Shape is a geometry primitive. Only the attributes relevant to the
// primitive are set.
type Shape struct {
	Size   string `xml:"size,attr,omitempty"`
	Radius string `xml:"radius,attr,omitempty"`
	Length string `xml:"length,attr,omitempty"`
}

// Geometry holds exactly one primitive.
type Geometry struct {
	Box      *Shape `xml:"box"`
	Cylinder *Shape `xml:"cylinder"`
	Sphere   *Shape `xml:"sphere"`
}

// Kind returns the name of the primitive that is set.
func (g Geometry) Kind() string {
	switch {
	case g.Box != nil:
		return "box"
	case g.Cylinder != nil:
		return "cylinder"
	case g.Sphere != nil:
		return "sphere"
	}
	return ""
}

type Body struct {
	Geometry Geometry `xml:"geometry"`
}

type Mass struct {
	Value string `xml:"value,attr"`
}

type Inertia struct {
	Ixx string `xml:"ixx,attr"`
	Ixy string `xml:"ixy,attr"`
	Ixz string `xml:"ixz,attr"`
	Iyy string `xml:"iyy,attr"`
	Iyz string `xml:"iyz,attr"`
	Izz string `xml:"izz,attr"`
}

type Inertial struct {
	Mass    Mass    `xml:"mass"`
	Inertia Inertia `xml:"inertia"`
}

// Link is a <link> element.
type Link struct {
	XMLName   xml.Name `xml:"link"`
	Name      string   `xml:"name,attr"`
	Visual    Body     `xml:"visual"`
	Collision Body     `xml:"collision"`
	Inertial  Inertial `xml:"inertial"`
}

// MassValue parses the link mass.
func (l Link) MassValue() (float64, error) {
	return strconv.ParseFloat(l.Inertial.Mass.Value, 64)
}

type LinkRef struct {
	Link string `xml:"link,attr"`
}

type Axis struct {
	XYZ string `xml:"xyz,attr"`
}

type Origin struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

type Limit struct {
	Effort   string `xml:"effort,attr"`
	Upper    string `xml:"upper,attr"`
	Lower    string `xml:"lower,attr"`
	Velocity string `xml:"velocity,attr"`
}

// Joint is a <joint> element connecting a parent link to a child link.
type Joint struct {
	XMLName xml.Name `xml:"joint"`
	Name    string   `xml:"name,attr"`
	Type    string   `xml:"type,attr"`
	Parent  LinkRef  `xml:"parent"`
	Child   LinkRef  `xml:"child"`
	Axis    Axis     `xml:"axis"`
	Origin  Origin   `xml:"origin"`
	Limit   Limit    `xml:"limit"`
}

// Robot is a document under construction. Elements holds *Link and *Joint
// values in emission order.
type Robot struct {
	XMLName  xml.Name `xml:"robot"`
	Name     string   `xml:"name,attr"`
	Elements []any
}

// Description is a parsed document with links and joints separated.
type Description struct {
	XMLName xml.Name `xml:"robot"`
	Name    string   `xml:"name,attr"`
	Links   []Link   `xml:"link"`
	Joints  []Joint  `xml:"joint"`
}

// formatFloat renders v as the shortest round-trip decimal in the format
// robot description consumers already expect: integral values keep a
// trailing ".0", and magnitudes outside [1e-4, 1e16) use exponent form.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func joinFloats(vs ...float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func category(table []string, v traits.Values, name string) (string, error) {
	idx := v.Int(name)
	if idx < 0 || idx >= len(table) {
		return "", fmt.Errorf("%w: %s=%d, want 0..%d", ErrCategory, name, idx, len(table)-1)
	}
	return table[idx], nil
}

// geometry builds the primitive for v and returns it with its volume.
func geometry(shape string, v traits.Values) (Geometry, float64) {
	l1 := v.Float(traits.LinkLength1)
	l2 := v.Float(traits.LinkLength2)
	l3 := v.Float(traits.LinkLength3)
	r := v.Float(traits.LinkRadius)

	switch shape {
	case "box":
		return Geometry{Box: &Shape{Size: joinFloats(l1, l2, l3)}}, l1 * l2 * l3
	case "cylinder":
		mean := (l1 + l2 + l3) / 3
		// Volume uses link_length_1 as the radius term, not link_radius.
		return Geometry{Cylinder: &Shape{Radius: formatFloat(r), Length: formatFloat(mean)}}, math.Pi * l1 * l1 * mean
	default:
		return Geometry{Sphere: &Shape{Radius: formatFloat(r)}}, 4.0 / 3.0 * math.Pi * r * r * r
	}
}

// SegmentToTags builds the link and joint elements for one expanded segment.
// The joint is meaningless for the root and is dropped by BuildDocument.
func SegmentToTags(seg morphology.ExpandedSegment) (Link, Joint, error) {
	v := seg.Traits
	shape, err := category(Shapes, v, traits.LinkShape)
	if err != nil {
		return Link{}, Joint{}, fmt.Errorf("segment %s: %w", seg.Name, err)
	}
	jointType, err := category(JointTypes, v, traits.JointType)
	if err != nil {
		return Link{}, Joint{}, fmt.Errorf("segment %s: %w", seg.Name, err)
	}
	axis, err := category(Axes, v, traits.JointAxis)
	if err != nil {
		return Link{}, Joint{}, fmt.Errorf("segment %s: %w", seg.Name, err)
	}

	geom, volume := geometry(shape, v)
	// Each body gets its own copy so the primitives are not aliased.
	visual, collision := geom, geom
	visual.Box, visual.Cylinder, visual.Sphere = copyShape(geom.Box), copyShape(geom.Cylinder), copyShape(geom.Sphere)

	link := Link{
		Name:      seg.Name,
		Visual:    Body{Geometry: visual},
		Collision: Body{Geometry: collision},
		Inertial: Inertial{
			Mass: Mass{Value: formatFloat(volume * v.Float(traits.LinkMassDensity))},
			Inertia: Inertia{
				Ixx: "0.03", Ixy: "0.03", Ixz: "0.03",
				Iyy: "0", Iyz: "0", Izz: "0",
			},
		},
	}

	joint := Joint{
		Name:   "joint_" + seg.Name,
		Type:   jointType,
		Parent: LinkRef{Link: seg.ParentName},
		Child:  LinkRef{Link: seg.Name},
		Axis:   Axis{XYZ: axis},
		Origin: Origin{
			// The x offset is scaled by the sibling index encoded in the name.
			XYZ: joinFloats(
				v.Float(traits.JointOriginXYZ1)*float64(morphology.SiblingIndex(seg.Name)),
				v.Float(traits.JointOriginXYZ2),
				v.Float(traits.JointOriginXYZ3),
			),
			RPY: joinFloats(
				v.Float(traits.JointOriginRPY1),
				v.Float(traits.JointOriginRPY2),
				v.Float(traits.JointOriginRPY3),
			),
		},
		// Upper and lower are intentionally inverted; engines read the pair as-is.
		Limit: Limit{
			Effort:   "1",
			Upper:    formatFloat(-math.Pi),
			Lower:    formatFloat(math.Pi),
			Velocity: "1",
		},
	}
	return link, joint, nil
}

func copyShape(s *Shape) *Shape {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// BuildDocument emits, for each segment in order, its link followed by its
// joint. The first segment is the root and has no joint.
func BuildDocument(name string, segs []morphology.ExpandedSegment) (*Robot, error) {
	r := &Robot{Name: name, Elements: make([]any, 0, 2*len(segs))}
	for i, seg := range segs {
		link, joint, err := SegmentToTags(seg)
		if err != nil {
			return nil, err
		}
		r.Elements = append(r.Elements, &link)
		if i != 0 {
			r.Elements = append(r.Elements, &joint)
		}
	}
	return r, nil
}

// Len returns the number of child elements of <robot>.
func (r *Robot) Len() int {
	return len(r.Elements)
}

// Marshal renders the document as indented XML with a header.
func (r *Robot) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling robot %s: %w", r.Name, err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// WriteFile writes the rendered document to path.
func (r *Robot) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing robot description: %w", err)
	}
	return nil
}

// Parse reads a robot description.
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := xml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing robot description: %w", err)
	}
	return &d, nil
}

// ParseVector parses a space separated triple such as an origin or axis.
func ParseVector(s string) ([3]float64, error) {
	var out [3]float64
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return out, fmt.Errorf("vector %q: want 3 components, got %d", s, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, fmt.Errorf("vector %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
