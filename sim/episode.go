package sim

import (
	"fmt"

	"github.com/pthm-cable/morphogen/creature"
)

// Episode fixes the length and drive settings of one fitness evaluation.
type Episode struct {
	Frames          int     `yaml:"frames"`
	ControlInterval int     `yaml:"control_interval"`
	Force           float64 `yaml:"motor_force"`
	EscapeHeight    float64 `yaml:"escape_height"`
	RobotName       string  `yaml:"robot_name"`
}

// DefaultEpisode returns 2400 frames with controllers sampled every 240.
func DefaultEpisode() Episode {
	return Episode{
		Frames:          2400,
		ControlInterval: 240,
		Force:           5,
		EscapeHeight:    100,
		RobotName:       "robot",
	}
}

// Validate rejects non-positive frame counts and intervals.
func (ep Episode) Validate() error {
	if ep.Frames <= 0 {
		return fmt.Errorf("episode frames must be positive, got %d", ep.Frames)
	}
	if ep.ControlInterval <= 0 {
		return fmt.Errorf("control interval must be positive, got %d", ep.ControlInterval)
	}
	return nil
}

// Outcome describes how an episode ended.
type Outcome struct {
	Frames  int   // Frames stepped before the episode ended
	Escaped bool  // Base rose above the escape height
	Failure error // Wraps ErrEpisode when the episode was cut short
}

// Failed reports whether the episode ended early.
func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// RunEpisode loads ind into e, drives its joints and records the base
// position after the last frame as ind's last position. The start position
// is not touched.
//
// Engine and document failures end the episode with the last position at
// the origin and are reported in the outcome. Only a joint count mismatch is
// returned as an error.
func RunEpisode(e Engine, ind *creature.Individual, ep Episode) (Outcome, error) {
	var out Outcome
	fail := func(format string, args ...any) (Outcome, error) {
		ind.SetLast([3]float64{})
		out.Failure = fmt.Errorf("%w: %s", ErrEpisode, fmt.Sprintf(format, args...))
		return out, nil
	}

	doc, err := ind.URDF(ep.RobotName)
	if err != nil {
		return fail("building document: %v", err)
	}
	bank, err := ind.Controllers()
	if err != nil {
		return fail("building controllers: %v", err)
	}
	if err := e.Reset(); err != nil {
		return fail("resetting engine: %v", err)
	}
	h, err := e.Load(doc)
	if err != nil {
		return fail("loading document: %v", err)
	}
	if n := e.NumJoints(h); n != len(bank) {
		return out, fmt.Errorf("%w: %d controllers, %d joints", ErrJointMismatch, len(bank), n)
	}

	var last [3]float64
	for frame := 0; frame < ep.Frames; frame++ {
		if frame%ep.ControlInterval == 0 {
			for j, v := range bank.Next() {
				if err := e.SetJointVelocity(h, j, v, ep.Force); err != nil {
					return fail("frame %d joint %d: %v", frame, j, err)
				}
			}
		}
		if err := e.Step(h); err != nil {
			return fail("frame %d step: %v", frame, err)
		}
		out.Frames++

		pos, err := e.Pose(h)
		if err != nil {
			return fail("frame %d pose: %v", frame, err)
		}
		if pos[2] > ep.EscapeHeight {
			out.Escaped = true
			return fail("frame %d: base escaped to z=%g", frame, pos[2])
		}
		last = pos
	}

	ind.SetLast(last)
	return out, nil
}
