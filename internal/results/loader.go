// Package results loads finished run artifacts from the output
// directory and aggregates them for reports and listings.
package results

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Motphys/phys-bench/internal/domain"
	"github.com/Motphys/phys-bench/internal/recorder"
)

// Entry is one loaded result plus artifact bookkeeping
type Entry struct {
	domain.Result
	ResultPath  string `json:"result_path"`
	VideoExists bool   `json:"video_exists"`
}

// Combo identifies one cell of the comparison matrix
type Combo struct {
	Engine string
	Object domain.ObjectKind
	Task   domain.TaskKind
	MJX    bool
	Dt     float64
}

// Combo returns the entry's matrix cell
func (e Entry) Combo() Combo {
	return Combo{Engine: e.Engine, Object: e.Object, Task: e.Task, MJX: e.MJX, Dt: e.Dt}
}

// Load reads every result sidecar in dir. Sidecar fields win over
// values recovered from the filename; the filename fills in runs
// recorded before the sidecar carried mjx and dt. Unreadable files are
// skipped with a log line rather than failing the whole scan.
func Load(dir string) ([]Entry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var entries []Entry
	for _, path := range paths {
		entry, err := loadOne(path)
		if err != nil {
			log.Printf("[results] skipping %s: %v", filepath.Base(path), err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func loadOne(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry.Result); err != nil {
		return Entry{}, fmt.Errorf("parsing sidecar: %w", err)
	}
	entry.ResultPath = path

	if parsed, err := recorder.ParseName(path); err == nil {
		if entry.Engine == "" {
			entry.Engine = parsed.Engine
		}
		if entry.Object == "" {
			entry.Object = domain.ObjectKind(parsed.Object)
		}
		if entry.Task == "" {
			entry.Task = domain.TaskKind(parsed.Task)
		}
		if entry.Dt == 0 {
			entry.Dt = parsed.Dt
			entry.MJX = parsed.MJX
		}
	}
	if entry.Engine == "" {
		return Entry{}, fmt.Errorf("no engine in sidecar or filename")
	}

	if entry.VideoPath == "" {
		entry.VideoPath = strings.TrimSuffix(path, ".json") + ".mp4"
	}
	video := entry.VideoPath
	if !filepath.IsAbs(video) {
		video = filepath.Join(filepath.Dir(path), filepath.Base(video))
	}
	if _, err := os.Stat(video); err == nil {
		entry.VideoExists = true
	}
	return entry, nil
}

// Stats aggregates pass counts along one dimension
type Stats struct {
	Total  int
	Passed int
}

// Rate returns the pass rate, zero for an empty bucket
func (s Stats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total)
}

func tally(m map[string]Stats, key string, passed bool) {
	s := m[key]
	s.Total++
	if passed {
		s.Passed++
	}
	m[key] = s
}

// Summary holds pass rates along each comparison dimension
type Summary struct {
	Overall  Stats
	ByEngine map[string]Stats
	ByObject map[string]Stats
	ByTask   map[string]Stats
	ByDt     map[string]Stats
	ByMJX    map[string]Stats
}

// Summarize computes pass rates per dimension
func Summarize(entries []Entry) Summary {
	sum := Summary{
		ByEngine: make(map[string]Stats),
		ByObject: make(map[string]Stats),
		ByTask:   make(map[string]Stats),
		ByDt:     make(map[string]Stats),
		ByMJX:    make(map[string]Stats),
	}
	for _, e := range entries {
		passed := e.Passed()
		sum.Overall.Total++
		if passed {
			sum.Overall.Passed++
		}
		tally(sum.ByEngine, e.Engine, passed)
		tally(sum.ByObject, string(e.Object), passed)
		tally(sum.ByTask, string(e.Task), passed)
		tally(sum.ByDt, FormatDt(e.Dt), passed)
		tally(sum.ByMJX, fmt.Sprintf("%t", e.MJX), passed)
	}
	return sum
}

// FormatDt renders a timestep for display and map keys
func FormatDt(dt float64) string {
	return fmt.Sprintf("%.3f", dt)
}

// Cell is the matrix cell key used for cross-engine comparison:
// object and timestep vary, engines are the columns.
type Cell struct {
	Object domain.ObjectKind
	Dt     float64
}

// GroupByObjectAndDt buckets entries per matrix cell. Within a cell
// only the latest entry per combo is kept, so re-runs supersede old
// artifacts.
func GroupByObjectAndDt(entries []Entry) map[Cell][]Entry {
	latest := make(map[Combo]Entry)
	for _, e := range entries {
		prev, ok := latest[e.Combo()]
		if !ok || e.Timestamp > prev.Timestamp {
			latest[e.Combo()] = e
		}
	}

	groups := make(map[Cell][]Entry)
	for _, e := range latest {
		cell := Cell{Object: e.Object, Dt: e.Dt}
		groups[cell] = append(groups[cell], e)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Engine != group[j].Engine {
				return group[i].Engine < group[j].Engine
			}
			return !group[i].MJX && group[j].MJX
		})
	}
	return groups
}

// Cells returns the matrix cells in display order: by object, then
// by timestep ascending.
func Cells(groups map[Cell][]Entry) []Cell {
	cells := make([]Cell, 0, len(groups))
	for cell := range groups {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Object != cells[j].Object {
			return cells[i].Object < cells[j].Object
		}
		return cells[i].Dt < cells[j].Dt
	})
	return cells
}
