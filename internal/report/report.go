// Package report renders the loaded results as a standalone HTML
// comparison report.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Motphys/phys-bench/internal/results"
)

type dimensionRow struct {
	Key    string
	Passed int
	Total  int
}

func (r dimensionRow) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return 100 * float64(r.Passed) / float64(r.Total)
}

type dimension struct {
	Title string
	Rows  []dimensionRow
}

type matrixCell struct {
	Class string
	Text  string
}

type matrixRow struct {
	Label string
	Cells []matrixCell
}

type videoEntry struct {
	VideoExists bool
	VideoHref   string
	Caption     string
}

type section struct {
	Title   string
	Entries []videoEntry
}

type page struct {
	Summary     results.Summary
	Failed      int
	PassPercent float64
	Dimensions  []dimension
	Engines     []string
	Matrix      []matrixRow
	Sections    []section
	GeneratedAt string
}

// Generate writes the HTML report for entries to w. baseDir is the
// directory the report will live in; video links are made relative to
// it so the file works when the output tree is copied elsewhere.
func Generate(w io.Writer, entries []results.Entry, baseDir string) error {
	tmpl, err := template.New("report").Parse(pageTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, buildPage(entries, baseDir))
}

// WriteFile renders the report into dir as index.html
func WriteFile(dir string, entries []results.Entry) (string, error) {
	path := filepath.Join(dir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Generate(f, entries, dir); err != nil {
		return "", err
	}
	return path, nil
}

func buildPage(entries []results.Entry, baseDir string) page {
	sum := results.Summarize(entries)
	groups := results.GroupByObjectAndDt(entries)
	cells := results.Cells(groups)
	engines := engineColumns(entries)

	p := page{
		Summary:     sum,
		Failed:      sum.Overall.Total - sum.Overall.Passed,
		Engines:     engines,
		GeneratedAt: time.Now().Format(time.RFC1123),
	}
	if sum.Overall.Total > 0 {
		p.PassPercent = 100 * sum.Overall.Rate()
	}

	for _, d := range []struct {
		title string
		stats map[string]results.Stats
	}{
		{"Engine", sum.ByEngine},
		{"Object", sum.ByObject},
		{"Task", sum.ByTask},
		{"Timestep", sum.ByDt},
		{"MJX", sum.ByMJX},
	} {
		p.Dimensions = append(p.Dimensions, dimension{Title: d.title, Rows: statRows(d.stats)})
	}

	for _, cell := range cells {
		group := groups[cell]
		byEngine := make(map[string]results.Entry)
		for _, e := range group {
			byEngine[e.Engine] = e
		}

		row := matrixRow{Label: fmt.Sprintf("%s / dt=%s", cell.Object, results.FormatDt(cell.Dt))}
		for _, engine := range engines {
			e, ok := byEngine[engine]
			if !ok {
				row.Cells = append(row.Cells, matrixCell{Class: "missing", Text: "-"})
				continue
			}
			row.Cells = append(row.Cells, verdictCell(e))
		}
		p.Matrix = append(p.Matrix, row)

		sec := section{Title: row.Label}
		for _, e := range group {
			sec.Entries = append(sec.Entries, videoEntry{
				VideoExists: e.VideoExists,
				VideoHref:   relHref(baseDir, e.VideoPath),
				Caption:     fmt.Sprintf("%s %s (mjx=%t) %s", e.Engine, e.Task, e.MJX, e.Status),
			})
		}
		p.Sections = append(p.Sections, sec)
	}
	return p
}

func verdictCell(e results.Entry) matrixCell {
	switch {
	case e.Passed():
		return matrixCell{Class: "pass", Text: "pass"}
	case e.Status == "timeout":
		return matrixCell{Class: "timeout", Text: "timeout"}
	case e.DropTime != nil:
		return matrixCell{Class: "fail", Text: fmt.Sprintf("drop @ %.1fs", *e.DropTime)}
	default:
		return matrixCell{Class: "fail", Text: string(e.Status)}
	}
}

func statRows(stats map[string]results.Stats) []dimensionRow {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]dimensionRow, 0, len(keys))
	for _, k := range keys {
		s := stats[k]
		rows = append(rows, dimensionRow{Key: k, Passed: s.Passed, Total: s.Total})
	}
	return rows
}

func engineColumns(entries []results.Entry) []string {
	seen := make(map[string]bool)
	var engines []string
	for _, e := range entries {
		if !seen[e.Engine] {
			seen[e.Engine] = true
			engines = append(engines, e.Engine)
		}
	}
	sort.Strings(engines)
	return engines
}

func relHref(baseDir, videoPath string) string {
	if baseDir == "" {
		return videoPath
	}
	rel, err := filepath.Rel(baseDir, videoPath)
	if err != nil {
		return filepath.Base(videoPath)
	}
	return rel
}
