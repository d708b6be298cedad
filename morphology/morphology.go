// Package morphology turns decoded genes into a body plan: a flat chain of
// segments, then a tree of concrete segment instances after applying each
// segment's repeat count.
package morphology

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pthm-cable/morphogen/traits"
)

// RootParent is the parent name recorded for the root segment.
const RootParent = "None"

// ErrPrecheck is returned when a flat segment list violates the root invariant.
var ErrPrecheck = errors.New("morphology precheck failed")

// FlatSegment is one body segment as encoded by one gene.
type FlatSegment struct {
	Name       string
	ParentName string
	Traits     traits.Values
	Repeat     int // Copies instantiated under each parent instance
}

// ExpandedSegment is one concrete body part in the expanded tree.
type ExpandedSegment struct {
	Name       string
	ParentName string
	Traits     traits.Values // Shared with the flat segment; treat as read-only
	Repeat     int
	Sibling    int // Repeat index under its parent instance
	Depth      int // Index of the flat segment this instance came from; 0 for the root
}

// String implements fmt.Stringer.
func (s FlatSegment) String() string {
	return fmt.Sprintf("%s (parent %s, repeat %d)", s.Name, s.ParentName, s.Repeat)
}

// FlatName returns the name of the flat segment at index i.
func FlatName(i int) string {
	return "Link_" + strconv.Itoa(i)
}

// Flatten builds one flat segment per decoded gene. Segment i hangs off
// segment i-1; the root always has repeat 1.
func Flatten(values []traits.Values) []FlatSegment {
	segs := make([]FlatSegment, len(values))
	for i, v := range values {
		seg := FlatSegment{
			Name:       FlatName(i),
			ParentName: RootParent,
			Traits:     v,
			Repeat:     1,
		}
		if i > 0 {
			seg.ParentName = segs[i-1].Name
			seg.Repeat = int(math.Ceil(v.Float(traits.LinkRecurrence)))
		}
		segs[i] = seg
	}
	return segs
}

// namer hands out the instance counter embedded in expanded segment names.
// One namer lives for exactly one Expand call.
type namer struct {
	next int
}

func (n *namer) take() int {
	id := n.next
	n.next++
	return id
}

// Expand instantiates the flat chain as a tree. Each flat segment is copied
// Repeat times under every instance of its parent. Output is pre-order:
// an instance is followed by its whole subtree before its next sibling, and
// siblings appear in ascending repeat index.
func Expand(flat []FlatSegment) ([]ExpandedSegment, error) {
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrPrecheck)
	}
	if flat[0].Repeat != 1 {
		return nil, fmt.Errorf("%w: root repeat is %d, must be 1", ErrPrecheck, flat[0].Repeat)
	}

	var n namer
	out := make([]ExpandedSegment, 0, ExpectedCount(flat))
	return expand(out, flat, 0, 0, flat[0].ParentName, &n), nil
}

func expand(out []ExpandedSegment, flat []FlatSegment, idx, sibling int, parent string, n *namer) []ExpandedSegment {
	seg := flat[idx]
	inst := ExpandedSegment{
		Name:       seg.Name + "_" + strconv.Itoa(sibling) + "_" + strconv.Itoa(n.take()),
		ParentName: parent,
		Traits:     seg.Traits,
		Repeat:     seg.Repeat,
		Sibling:    sibling,
		Depth:      idx,
	}
	out = append(out, inst)

	if idx+1 < len(flat) {
		for i := 0; i < flat[idx+1].Repeat; i++ {
			out = expand(out, flat, idx+1, i, inst.Name, n)
		}
	}
	return out
}

// ExpectedCount returns 1 + sum over k of the product of repeats 1..k, the
// number of instances Expand produces for flat.
func ExpectedCount(flat []FlatSegment) int {
	if len(flat) == 0 {
		return 0
	}
	total, level := 1, 1
	for _, seg := range flat[1:] {
		level *= max(seg.Repeat, 0)
		total += level
	}
	return total
}

// SiblingIndex parses the sibling index out of an expanded segment name
// ("Link_3_1_7" -> 1). Returns 0 when the name has no such field.
func SiblingIndex(name string) int {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0
	}
	i, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0
	}
	return i
}
