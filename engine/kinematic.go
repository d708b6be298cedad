// Package engine provides a deterministic kinematic stand-in for a physics
// engine. Robots are loaded from URDF into an ECS world; joints integrate
// their target velocities and grounded joints push the base across a flat
// plane. It is not a rigid-body simulator.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/morphogen/components"
	"github.com/pthm-cable/morphogen/sim"
	"github.com/pthm-cable/morphogen/urdf"
)

var (
	// ErrUnknownHandle is returned for handles not issued since the last Reset.
	ErrUnknownHandle = errors.New("unknown body handle")
	// ErrDiverged is returned when the base state stops being finite.
	ErrDiverged = errors.New("simulation diverged")
)

// Config holds the engine constants.
type Config struct {
	DT          float64 `yaml:"dt"`
	Gravity     float64 `yaml:"gravity"`
	DriveGain   float64 `yaml:"drive_gain"`
	Drag        float64 `yaml:"drag"`
	JointLoad   float64 `yaml:"joint_load"`
	SpawnHeight float64 `yaml:"spawn_height"`
}

// DefaultConfig matches a 240 Hz step with gravity of 10 m/s^2 and spawns
// bodies 3 m above the ground.
func DefaultConfig() Config {
	return Config{
		DT:          1.0 / 240.0,
		Gravity:     10,
		DriveGain:   4,
		Drag:        2,
		JointLoad:   1,
		SpawnHeight: 3,
	}
}

// body tracks the entities belonging to one handle.
type body struct {
	base   ecs.Entity
	joints []ecs.Entity
}

// Kinematic implements sim.Engine. It is not safe for concurrent use.
type Kinematic struct {
	cfg    Config
	world  *ecs.World
	bodies []body

	baseMap     *ecs.Map3[components.Position, components.Velocity, components.Body]
	linkMap     *ecs.Map1[components.Link]
	jointMap    *ecs.Map1[components.Joint]
	jointFilter *ecs.Filter1[components.Joint]
	linkFilter  *ecs.Filter1[components.Link]
}

var _ sim.Engine = (*Kinematic)(nil)

// New creates an engine with an empty world.
func New(cfg Config) *Kinematic {
	k := &Kinematic{cfg: cfg}
	k.newWorld()
	return k
}

// Factory returns a sim.EngineFactory producing engines with cfg.
func Factory(cfg Config) sim.EngineFactory {
	return func(int) (sim.Engine, error) {
		return New(cfg), nil
	}
}

func (k *Kinematic) newWorld() {
	w := ecs.NewWorld()
	k.world = w
	k.bodies = k.bodies[:0]
	k.baseMap = ecs.NewMap3[components.Position, components.Velocity, components.Body](w)
	k.linkMap = ecs.NewMap1[components.Link](w)
	k.jointMap = ecs.NewMap1[components.Joint](w)
	k.jointFilter = ecs.NewFilter1[components.Joint](w)
	k.linkFilter = ecs.NewFilter1[components.Link](w)
}

// Reset discards every loaded body.
func (k *Kinematic) Reset() error {
	k.newWorld()
	return nil
}

// Close releases the world.
func (k *Kinematic) Close() error {
	k.world = nil
	k.bodies = nil
	return nil
}

func extent(g urdf.Geometry) (float64, error) {
	switch {
	case g.Box != nil:
		v, err := urdf.ParseVector(g.Box.Size)
		if err != nil {
			return 0, err
		}
		return floats.Max(v[:]) / 2, nil
	case g.Cylinder != nil:
		var r, l float64
		if _, err := fmt.Sscan(g.Cylinder.Radius, &r); err != nil {
			return 0, fmt.Errorf("cylinder radius: %w", err)
		}
		if _, err := fmt.Sscan(g.Cylinder.Length, &l); err != nil {
			return 0, fmt.Errorf("cylinder length: %w", err)
		}
		return math.Max(r, l/2), nil
	case g.Sphere != nil:
		var r float64
		if _, err := fmt.Sscan(g.Sphere.Radius, &r); err != nil {
			return 0, fmt.Errorf("sphere radius: %w", err)
		}
		return r, nil
	}
	return 0, errors.New("link has no geometry")
}

// Load spawns a robot description with its base at the spawn height.
func (k *Kinematic) Load(doc []byte) (sim.Handle, error) {
	d, err := urdf.Parse(doc)
	if err != nil {
		return 0, err
	}
	if len(d.Links) == 0 {
		return 0, errors.New("robot has no links")
	}
	h := len(k.bodies)

	masses := make(map[string]float64, len(d.Links))
	total := 0.0
	var rest float64
	for i, l := range d.Links {
		m, err := l.MassValue()
		if err != nil {
			return 0, fmt.Errorf("link %s mass: %w", l.Name, err)
		}
		ext, err := extent(l.Collision.Geometry)
		if err != nil {
			return 0, fmt.Errorf("link %s: %w", l.Name, err)
		}
		if i == 0 {
			rest = ext
		}
		masses[l.Name] = m
		total += m
		k.linkMap.NewEntity(&components.Link{Handle: h, Name: l.Name, Mass: m, Extent: ext})
	}

	b := body{}
	pos := components.Position{Z: k.cfg.SpawnHeight}
	vel := components.Velocity{}
	meta := components.Body{Handle: h, TotalMass: total, RestHeight: rest, Links: len(d.Links)}
	b.base = k.baseMap.NewEntity(&pos, &vel, &meta)

	for i, j := range d.Joints {
		axis, err := urdf.ParseVector(j.Axis.XYZ)
		if err != nil {
			return 0, fmt.Errorf("joint %s axis: %w", j.Name, err)
		}
		origin, err := urdf.ParseVector(j.Origin.XYZ)
		if err != nil {
			return 0, fmt.Errorf("joint %s origin: %w", j.Name, err)
		}
		var lower, upper float64
		if _, err := fmt.Sscan(j.Limit.Lower, &lower); err != nil {
			return 0, fmt.Errorf("joint %s lower limit: %w", j.Name, err)
		}
		if _, err := fmt.Sscan(j.Limit.Upper, &upper); err != nil {
			return 0, fmt.Errorf("joint %s upper limit: %w", j.Name, err)
		}
		jc := components.Joint{
			Handle:     h,
			Index:      i,
			Axis:       axis,
			Lever:      floats.Norm(origin[:], 2),
			ChildMass:  masses[j.Child.Link],
			Continuous: j.Type == "continuous",
			Lower:      math.Min(lower, upper),
			Upper:      math.Max(lower, upper),
		}
		b.joints = append(b.joints, k.jointMap.NewEntity(&jc))
	}

	k.bodies = append(k.bodies, b)
	return sim.Handle(h), nil
}

func (k *Kinematic) body(h sim.Handle) (body, error) {
	if k.world == nil || int(h) < 0 || int(h) >= len(k.bodies) {
		return body{}, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return k.bodies[h], nil
}

// NumJoints returns the joint count of h, or 0 for an unknown handle.
func (k *Kinematic) NumJoints(h sim.Handle) int {
	b, err := k.body(h)
	if err != nil {
		return 0
	}
	return len(b.joints)
}

// SetJointVelocity sets the velocity target and maximum force of one joint.
func (k *Kinematic) SetJointVelocity(h sim.Handle, joint int, velocity, force float64) error {
	b, err := k.body(h)
	if err != nil {
		return err
	}
	if joint < 0 || joint >= len(b.joints) {
		return fmt.Errorf("joint %d out of range 0..%d", joint, len(b.joints)-1)
	}
	j := k.jointMap.Get(b.joints[joint])
	j.Target = velocity
	j.Force = force
	return nil
}

// Step advances every joint of h, then the base.
func (k *Kinematic) Step(h sim.Handle) error {
	b, err := k.body(h)
	if err != nil {
		return err
	}
	pos, vel, meta := k.baseMap.Get(b.base)
	dt := k.cfg.DT
	grounded := pos.Z <= meta.RestHeight+1e-9

	var fx, fy float64
	query := k.jointFilter.Query()
	for query.Next() {
		j := query.Get()
		if j.Handle != meta.Handle {
			continue
		}

		// A weak motor under a heavy child only reaches part of its target.
		rate := 0.0
		if denom := j.Force + j.ChildMass*k.cfg.JointLoad; denom > 0 {
			rate = j.Target * j.Force / denom
		}
		j.Angle += rate * dt
		if !j.Continuous && (j.Angle < j.Lower || j.Angle > j.Upper) {
			j.Angle = math.Max(j.Lower, math.Min(j.Upper, j.Angle))
			rate = 0
		}
		j.Rate = rate

		if !grounded {
			continue
		}
		// Push direction is axis x up; yaw joints do not push. Only the
		// half cycle where the limb points down touches the ground.
		contact := math.Max(0, -math.Sin(j.Angle))
		stroke := -rate * j.Lever * contact * j.ChildMass
		fx += stroke * j.Axis[1]
		fy -= stroke * j.Axis[0]
	}

	mass := math.Max(meta.TotalMass, 1e-6)
	vel.X += (k.cfg.DriveGain*fx/mass - k.cfg.Drag*vel.X) * dt
	vel.Y += (k.cfg.DriveGain*fy/mass - k.cfg.Drag*vel.Y) * dt
	vel.Z -= k.cfg.Gravity * dt

	pos.X += vel.X * dt
	pos.Y += vel.Y * dt
	pos.Z += vel.Z * dt
	if pos.Z < meta.RestHeight {
		pos.Z = meta.RestHeight
		vel.Z = 0
	}

	if !finite(pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z) {
		return fmt.Errorf("%w: body %d", ErrDiverged, h)
	}
	return nil
}

// Pose returns the base position of h.
func (k *Kinematic) Pose(h sim.Handle) ([3]float64, error) {
	b, err := k.body(h)
	if err != nil {
		return [3]float64{}, err
	}
	pos, _, _ := k.baseMap.Get(b.base)
	return [3]float64{pos.X, pos.Y, pos.Z}, nil
}

// JointAngles returns the current joint angles of h in joint order.
func (k *Kinematic) JointAngles(h sim.Handle) ([]float64, error) {
	b, err := k.body(h)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(b.joints))
	for i, e := range b.joints {
		out[i] = k.jointMap.Get(e).Angle
	}
	return out, nil
}

// TotalMass sums the link masses of h.
func (k *Kinematic) TotalMass(h sim.Handle) float64 {
	total := 0.0
	query := k.linkFilter.Query()
	for query.Next() {
		l := query.Get()
		if l.Handle == int(h) {
			total += l.Mass
		}
	}
	return total
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
