package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec describes one engine backend. DropHeight and CheckEvery are
// deliberately configuration, not hidden constants: the failure
// threshold is the one place backends legitimately diverge.
type Spec struct {
	Name string `yaml:"name"`

	// Bridge is the command that starts the backend's bridge
	// process, e.g. ["python", "bridges/mujoco_bridge.py"].
	Bridge []string `yaml:"bridge"`

	// DropHeight is the failure threshold (m) for the drop check.
	DropHeight float64 `yaml:"drop_height"`

	// CheckEvery is the tick interval between drop checks. GPU
	// backends pay a device readback per check and use a larger
	// interval.
	CheckEvery int `yaml:"check_every"`
}

// ScenePath returns the scene asset path for an object, relative to
// the assets directory
func ScenePath(object string, mjx bool) string {
	prefix := ""
	if mjx {
		prefix = "mjx_"
	}
	return fmt.Sprintf("grasp/xml/%spick_%s.xml", prefix, object)
}

// Builtin returns the specs of the bundled engine backends
func Builtin() map[string]Spec {
	return map[string]Spec{
		"mujoco": {
			Name:       "mujoco",
			Bridge:     []string{"python", "bridges/mujoco_bridge.py"},
			DropHeight: 0.04,
			CheckEvery: 1,
		},
		"mujocowarp": {
			Name:       "mujocowarp",
			Bridge:     []string{"python", "bridges/mujoco_warp_bridge.py"},
			DropHeight: 0.04,
			CheckEvery: 100, // ~0.2s at dt=0.002; each check syncs the GPU
		},
		"genesis": {
			Name:       "genesis",
			Bridge:     []string{"python", "bridges/genesis_bridge.py"},
			DropHeight: 0.03,
			CheckEvery: 1,
		},
		"motrix": {
			Name:       "motrix",
			Bridge:     []string{"python", "bridges/motrix_bridge.py"},
			DropHeight: 0.03,
			CheckEvery: 1,
		},
		"isaacgym": {
			Name:       "isaacgym",
			Bridge:     []string{"python", "bridges/isaacgym_bridge.py"},
			DropHeight: 0.04,
			CheckEvery: 1,
		},
	}
}

// Registry resolves engine names to specs
type Registry struct {
	specs map[string]Spec
}

// NewRegistry creates a registry with the builtin specs
func NewRegistry() *Registry {
	return &Registry{specs: Builtin()}
}

// Get returns the spec for an engine name
func (r *Registry) Get(name string) (Spec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown engine %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return spec, nil
}

// Names returns the registered engine names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadManifests merges YAML manifests from a directory into the
// registry. A manifest may override a builtin spec or add a new
// engine. A missing directory is not an error.
func (r *Registry) LoadManifests(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading manifest %s: %w", name, err)
		}

		var spec Spec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("parsing manifest %s: %w", name, err)
		}
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("manifest %s: %w", name, err)
		}
		r.specs[spec.Name] = spec
	}
	return nil
}

// Validate checks a spec for required fields
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("engine name is required")
	}
	if len(s.Bridge) == 0 {
		return fmt.Errorf("bridge command is required")
	}
	if s.DropHeight <= 0 {
		return fmt.Errorf("drop_height must be positive")
	}
	if s.CheckEvery <= 0 {
		s.CheckEvery = 1
	}
	return nil
}
