package config

import (
	"fmt"

	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/factory"
	"github.com/kilianp07/fleetsim/core/sim"
	"github.com/kilianp07/fleetsim/infra/input"
)

// SimulationConfig holds the run parameters. The dispatch parameters are
// written inline, e.g. simulation.fleet_size.
type SimulationConfig struct {
	dispatch.Params `json:",squash"`
	// ProgressEvery logs progress every that many ticks. Zero disables it.
	ProgressEvery int64 `json:"progress_every"`
	// RouteCache bounds the memoised route searches per run.
	RouteCache int `json:"route_cache"`
}

// Validate checks the parameters.
func (c SimulationConfig) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if c.ProgressEvery < 0 || c.RouteCache < 0 {
		return fmt.Errorf("progress_every and route_cache must not be negative")
	}
	return nil
}

// InputConfig locates the trip file and the optional demand prior.
type InputConfig struct {
	input.Config `json:",squash"`
	// Prior is a belief file produced by the learn command.
	Prior string `json:"prior"`
}

// OutputConfig lists the result stores and the summary export.
type OutputConfig struct {
	Stores []factory.ModuleConfig `json:"stores"`
	// SummaryPath receives one summary row per run. The extension selects
	// CSV or JSON.
	SummaryPath string `json:"summary_path"`
}

// Validate checks that every store names a type.
func (c OutputConfig) Validate() error {
	for i, s := range c.Stores {
		if s.Type == "" {
			return fmt.Errorf("store %d has no type", i)
		}
	}
	return nil
}

// SweepConfig lists the values explored by the sweep command.
type SweepConfig struct {
	sim.ParamGrid `json:",squash"`
	// Workers bounds the runs executed concurrently. Zero uses every CPU.
	Workers int `json:"workers"`
}

// Validate checks the worker count.
func (c SweepConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}
