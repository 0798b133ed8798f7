package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinSpecs(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"mujoco", "mujocowarp", "genesis", "motrix", "isaacgym"} {
		spec, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", name, err)
		}
		if spec.DropHeight <= 0 {
			t.Errorf("%s: DropHeight = %v, want positive", name, spec.DropHeight)
		}
		if len(spec.Bridge) == 0 {
			t.Errorf("%s: empty bridge command", name)
		}
	}

	// The drop threshold is the documented point of divergence.
	mj, _ := r.Get("mujoco")
	if mj.DropHeight != 0.04 {
		t.Errorf("mujoco DropHeight = %v, want 0.04", mj.DropHeight)
	}
	gen, _ := r.Get("genesis")
	if gen.DropHeight != 0.03 {
		t.Errorf("genesis DropHeight = %v, want 0.03", gen.DropHeight)
	}

	if _, err := r.Get("havok"); err == nil {
		t.Error("Get() of unknown engine should fail")
	}
}

func TestScenePath(t *testing.T) {
	if got := ScenePath("cube", false); got != "grasp/xml/pick_cube.xml" {
		t.Errorf("ScenePath = %q", got)
	}
	if got := ScenePath("bottle", true); got != "grasp/xml/mjx_pick_bottle.xml" {
		t.Errorf("ScenePath = %q", got)
	}
}

func TestLoadManifests(t *testing.T) {
	dir := t.TempDir()
	manifest := `name: newton
bridge: ["python", "bridges/newton_bridge.py"]
drop_height: 0.05
check_every: 10
`
	if err := os.WriteFile(filepath.Join(dir, "newton.yaml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	override := `name: mujoco
bridge: ["python3", "custom/mujoco_bridge.py"]
drop_height: 0.035
`
	if err := os.WriteFile(filepath.Join(dir, "mujoco.yaml"), []byte(override), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadManifests(dir); err != nil {
		t.Fatal(err)
	}

	newton, err := r.Get("newton")
	if err != nil {
		t.Fatal(err)
	}
	if newton.DropHeight != 0.05 {
		t.Errorf("newton DropHeight = %v, want 0.05", newton.DropHeight)
	}
	if newton.CheckEvery != 10 {
		t.Errorf("newton CheckEvery = %d, want 10", newton.CheckEvery)
	}

	mj, _ := r.Get("mujoco")
	if mj.DropHeight != 0.035 {
		t.Errorf("overridden mujoco DropHeight = %v, want 0.035", mj.DropHeight)
	}
	// check_every omitted in the override defaults to 1.
	if mj.CheckEvery != 1 {
		t.Errorf("overridden mujoco CheckEvery = %d, want 1", mj.CheckEvery)
	}
}

func TestLoadManifestsMissingDir(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadManifests("/does/not/exist"); err != nil {
		t.Errorf("LoadManifests on missing dir = %v, want nil", err)
	}
}

func TestLoadManifestsRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\ndrop_height: 0.04\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	if err := r.LoadManifests(dir); err == nil {
		t.Error("LoadManifests should reject a spec without a bridge command")
	}
}
