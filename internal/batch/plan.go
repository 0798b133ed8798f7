// Package batch runs sweeps of grasp tests across engines, objects
// and timesteps, each run isolated in its own subprocess.
package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Motphys/phys-bench/internal/domain"
)

// Plan describes one sweep: the cross product of its engines, objects
// and timesteps.
type Plan struct {
	Name    string    `toml:"name"`
	Cron    string    `toml:"cron"`
	Engines []string  `toml:"engines"`
	Objects []string  `toml:"objects"`
	Dts     []float64 `toml:"dts"`
	Shake   bool      `toml:"shake"`
	Record  bool      `toml:"record"`
	MJX     bool      `toml:"mjx"`

	NotifyOnComplete bool `toml:"notify_on_complete"`
}

// PlanFile holds all sweep plans from a plans file
type PlanFile struct {
	Plans []Plan `toml:"plan"`
}

// Validate checks the plan and fills defaults
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan name is required")
	}
	if len(p.Engines) == 0 {
		return fmt.Errorf("plan %s: at least one engine is required", p.Name)
	}
	if len(p.Objects) == 0 {
		for _, o := range domain.Objects {
			p.Objects = append(p.Objects, string(o))
		}
	}
	for _, o := range p.Objects {
		if _, err := domain.ParseObject(o); err != nil {
			return fmt.Errorf("plan %s: %w", p.Name, err)
		}
	}
	if len(p.Dts) == 0 {
		p.Dts = []float64{0.002}
	}
	for _, dt := range p.Dts {
		if dt <= 0 {
			return fmt.Errorf("plan %s: dt must be positive, got %v", p.Name, dt)
		}
	}
	if p.Cron != "" {
		if _, err := ParseCron(p.Cron); err != nil {
			return fmt.Errorf("plan %s: invalid cron expression: %w", p.Name, err)
		}
	}
	return nil
}

// Configs expands the plan into per-run configurations in sweep order
func (p *Plan) Configs() []domain.RunConfig {
	var configs []domain.RunConfig
	for _, engine := range p.Engines {
		for _, object := range p.Objects {
			for _, dt := range p.Dts {
				configs = append(configs, domain.RunConfig{
					Engine: engine,
					Object: domain.ObjectKind(object),
					Shake:  p.Shake,
					Record: p.Record,
					Dt:     dt,
					MJX:    p.MJX,
				})
			}
		}
	}
	return configs
}

// LoadPlans loads sweep plans from a TOML file
func LoadPlans(path string) (*PlanFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PlanFile{}, nil
		}
		return nil, err
	}

	var file PlanFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	for i := range file.Plans {
		if err := file.Plans[i].Validate(); err != nil {
			return nil, fmt.Errorf("plan %d: %w", i, err)
		}
	}
	return &file, nil
}

// Get returns the named plan
func (f *PlanFile) Get(name string) (Plan, bool) {
	for _, p := range f.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// DefaultPlan is the sweep used when no plans file is given: every
// builtin engine against every object at the standard timestep.
func DefaultPlan(engines []string) Plan {
	p := Plan{
		Name:    "default",
		Engines: engines,
		Shake:   true,
		Record:  true,
		Dts:     []float64{0.002},
	}
	for _, o := range domain.Objects {
		p.Objects = append(p.Objects, string(o))
	}
	return p
}

// DefaultRunTimeout bounds one subprocess run. A healthy run finishes
// well inside it; a hung bridge does not.
const DefaultRunTimeout = 60 * time.Second
