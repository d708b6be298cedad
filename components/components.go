// Package components defines ECS components for the kinematic engine.
package components

// Position is a world position in metres.
type Position struct {
	X, Y, Z float64
}

// Velocity is a linear velocity in metres per second.
type Velocity struct {
	X, Y, Z float64
}

// Body marks the base link of a loaded robot and holds whole-body properties.
type Body struct {
	Handle     int
	TotalMass  float64
	RestHeight float64 // Base height when resting on the ground plane
	Links      int
}

// Link is one rigid link of a loaded robot.
type Link struct {
	Handle int
	Name   string
	Mass   float64
	Extent float64 // Largest half dimension of the link geometry
}

// Joint is an actuated joint. Angle and Rate are integrated each step; the
// target and force are set by the controller.
type Joint struct {
	Handle int
	Index  int

	Axis       [3]float64
	Lever      float64 // Distance from parent origin to the joint
	ChildMass  float64
	Continuous bool
	Lower      float64
	Upper      float64

	Target float64
	Force  float64
	Angle  float64
	Rate   float64
}
