package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Motphys/phys-bench/internal/domain"
)

func TestPlanConfigs(t *testing.T) {
	p := Plan{
		Name:    "smoke",
		Engines: []string{"mujoco", "genesis"},
		Objects: []string{"cube", "ball", "bottle"},
		Dts:     []float64{0.002, 0.01},
		Shake:   true,
	}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}

	configs := p.Configs()
	if len(configs) != 12 {
		t.Fatalf("len(configs) = %d, want 12", len(configs))
	}
	// Sweep order: engine outermost, dt innermost.
	if configs[0].Engine != "mujoco" || configs[0].Object != domain.ObjectCube || configs[0].Dt != 0.002 {
		t.Errorf("configs[0] = %+v", configs[0])
	}
	if configs[1].Dt != 0.01 {
		t.Errorf("configs[1].Dt = %v, want 0.01", configs[1].Dt)
	}
	if configs[6].Engine != "genesis" {
		t.Errorf("configs[6].Engine = %q, want genesis", configs[6].Engine)
	}
	for _, cfg := range configs {
		if !cfg.Shake {
			t.Fatal("shake flag lost in expansion")
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("expanded config invalid: %v", err)
		}
	}
}

func TestPlanValidateDefaults(t *testing.T) {
	p := Plan{Name: "minimal", Engines: []string{"mujoco"}}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(p.Objects) != 3 {
		t.Errorf("default objects = %v", p.Objects)
	}
	if len(p.Dts) != 1 || p.Dts[0] != 0.002 {
		t.Errorf("default dts = %v", p.Dts)
	}
}

func TestPlanValidateRejects(t *testing.T) {
	cases := []Plan{
		{Engines: []string{"mujoco"}},
		{Name: "no-engines"},
		{Name: "bad-object", Engines: []string{"mujoco"}, Objects: []string{"cup"}},
		{Name: "bad-dt", Engines: []string{"mujoco"}, Dts: []float64{-0.002}},
		{Name: "bad-cron", Engines: []string{"mujoco"}, Cron: "not a cron"},
	}
	for _, p := range cases {
		if err := p.Validate(); err == nil {
			t.Errorf("Validate() accepted %+v", p)
		}
	}
}

func TestLoadPlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.toml")
	content := `
[[plan]]
name = "nightly"
cron = "0 2 * * *"
engines = ["mujoco", "mujocowarp", "genesis", "motrix", "isaacgym"]
dts = [0.002, 0.01]
shake = true
record = true
notify_on_complete = true

[[plan]]
name = "quick"
engines = ["mujoco"]
objects = ["cube"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	file, err := LoadPlans(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Plans) != 2 {
		t.Fatalf("len(Plans) = %d, want 2", len(file.Plans))
	}

	nightly, ok := file.Get("nightly")
	if !ok {
		t.Fatal("nightly plan missing")
	}
	if len(nightly.Engines) != 5 || !nightly.NotifyOnComplete {
		t.Errorf("nightly = %+v", nightly)
	}
	if len(nightly.Configs()) != 5*3*2 {
		t.Errorf("nightly expands to %d configs", len(nightly.Configs()))
	}

	quick, _ := file.Get("quick")
	if len(quick.Configs()) != 1 {
		t.Errorf("quick expands to %d configs", len(quick.Configs()))
	}

	if _, ok := file.Get("absent"); ok {
		t.Error("Get of absent plan succeeded")
	}
}

func TestLoadPlansMissingFile(t *testing.T) {
	file, err := LoadPlans(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Plans) != 0 {
		t.Errorf("len(Plans) = %d, want 0", len(file.Plans))
	}
}
