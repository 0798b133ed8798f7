// Package recorder buffers captured frames during a run and writes the
// video and result artifacts when it ends.
package recorder

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Motphys/phys-bench/internal/domain"
)

// VideoName builds the canonical artifact filename for a run. dt is
// formatted with three decimals and its dot replaced so the value
// survives as filename text, e.g. dt=0.002 becomes "dt0_002".
func VideoName(cfg domain.RunConfig) string {
	dt := strings.ReplaceAll(fmt.Sprintf("%.3f", cfg.Dt), ".", "_")
	return fmt.Sprintf("%s_grasp_%s_%s_mjx%t_dt%s.mp4",
		cfg.Engine, cfg.Task(), cfg.Object, cfg.MJX, dt)
}

// VideoPath joins the canonical filename onto the output directory
func VideoPath(outputDir string, cfg domain.RunConfig) string {
	return filepath.Join(outputDir, VideoName(cfg))
}

// ResultPath derives the JSON sidecar path from a video path
func ResultPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".json"
}

// ParsedName holds run parameters recovered from an artifact filename
type ParsedName struct {
	Engine string
	Task   string
	Object string
	MJX    bool
	Dt     float64
}

// ParseName recovers run parameters from an artifact filename. Names
// written by VideoName round-trip exactly. Older artifacts used the
// short form "{engine}_grasp_{task}_{object}" without mjx/dt fields;
// those parse with mjx=false and the historical default timestep.
func ParseName(name string) (ParsedName, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.Split(base, "_")

	if len(parts) >= 7 && parts[1] == "grasp" &&
		strings.HasPrefix(parts[4], "mjx") && strings.HasPrefix(parts[5], "dt") {
		mjx, err := strconv.ParseBool(strings.TrimPrefix(parts[4], "mjx"))
		if err != nil {
			return ParsedName{}, fmt.Errorf("parsing %q: bad mjx field: %w", name, err)
		}
		dtText := strings.TrimPrefix(parts[5], "dt") + "." + strings.Join(parts[6:], "")
		dt, err := strconv.ParseFloat(dtText, 64)
		if err != nil {
			return ParsedName{}, fmt.Errorf("parsing %q: bad dt field: %w", name, err)
		}
		return ParsedName{
			Engine: parts[0],
			Task:   parts[2],
			Object: parts[3],
			MJX:    mjx,
			Dt:     dt,
		}, nil
	}

	if len(parts) >= 4 && parts[1] == "grasp" {
		return ParsedName{
			Engine: parts[0],
			Task:   parts[2],
			Object: parts[3],
			MJX:    false,
			Dt:     0.002,
		}, nil
	}

	return ParsedName{}, fmt.Errorf("unrecognized artifact name %q", name)
}
