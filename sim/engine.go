// Package sim runs fitness episodes against a physics engine and spreads
// them over a fixed pool of long-lived engine sessions.
package sim

import "errors"

var (
	// ErrEpisode marks a recovered episode failure. The individual's last
	// position is left at the origin and evaluation continues.
	ErrEpisode = errors.New("episode failed")
	// ErrJointMismatch is returned when the loaded body does not have one
	// actuated joint per controller. It is not recovered.
	ErrJointMismatch = errors.New("controller count does not match joint count")
)

// Handle identifies a body loaded into an engine.
type Handle int

// Engine is a physics session. A session is used by one goroutine at a time.
type Engine interface {
	// Reset clears every loaded body.
	Reset() error
	// Load parses a URDF document and spawns it as a multi-body.
	Load(doc []byte) (Handle, error)
	// NumJoints returns the number of actuated joints of h.
	NumJoints(h Handle) int
	// SetJointVelocity sets a velocity-control target for one joint.
	SetJointVelocity(h Handle, joint int, velocity, force float64) error
	// Step advances the simulation by one frame.
	Step(h Handle) error
	// Pose returns the base position of h.
	Pose(h Handle) ([3]float64, error)
	Close() error
}

// EngineFactory creates the engine owned by one pool worker.
type EngineFactory func(workerID int) (Engine, error)
