package report

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Grasp Test Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; background: #f7f7f8; color: #1a1a1a; }
h1 { font-size: 1.6rem; }
h2 { font-size: 1.2rem; margin-top: 2rem; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; }
.card { background: #fff; border: 1px solid #ddd; border-radius: 8px; padding: 1rem 1.5rem; min-width: 8rem; }
.card .num { font-size: 1.8rem; font-weight: 600; }
.card .label { color: #666; font-size: 0.85rem; }
table { border-collapse: collapse; background: #fff; margin-top: 0.5rem; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.8rem; text-align: left; font-size: 0.9rem; }
th { background: #f0f0f2; }
.pass { color: #1a7f37; font-weight: 600; }
.fail { color: #cf222e; font-weight: 600; }
.timeout { color: #9a6700; font-weight: 600; }
.missing { color: #999; }
.videos { display: flex; gap: 1rem; flex-wrap: wrap; margin-top: 0.5rem; }
.videos figure { margin: 0; }
.videos video { width: 320px; border-radius: 6px; background: #000; }
.videos figcaption { font-size: 0.8rem; color: #555; margin-top: 0.2rem; }
footer { margin-top: 3rem; color: #888; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>Grasp Test Report</h1>

<div class="cards">
  <div class="card"><div class="num">{{.Summary.Overall.Total}}</div><div class="label">runs</div></div>
  <div class="card"><div class="num pass">{{.Summary.Overall.Passed}}</div><div class="label">passed</div></div>
  <div class="card"><div class="num fail">{{.Failed}}</div><div class="label">failed</div></div>
  <div class="card"><div class="num">{{printf "%.0f%%" .PassPercent}}</div><div class="label">pass rate</div></div>
</div>

<h2>Pass rate by dimension</h2>
{{range .Dimensions}}
<h3>{{.Title}}</h3>
<table>
<tr><th>{{.Title}}</th><th>Passed</th><th>Total</th><th>Rate</th></tr>
{{range .Rows}}<tr><td>{{.Key}}</td><td>{{.Passed}}</td><td>{{.Total}}</td><td>{{printf "%.0f%%" .Percent}}</td></tr>
{{end}}</table>
{{end}}

<h2>Engine comparison</h2>
<table>
<tr><th>Object / dt</th>{{range .Engines}}<th>{{.}}</th>{{end}}</tr>
{{range .Matrix}}<tr><td>{{.Label}}</td>{{range .Cells}}<td class="{{.Class}}">{{.Text}}</td>{{end}}</tr>
{{end}}</table>

{{range .Sections}}
<h2>{{.Title}}</h2>
<div class="videos">
{{range .Entries}}<figure>
{{if .VideoExists}}<video src="{{.VideoHref}}" controls muted></video>{{end}}
<figcaption>{{.Caption}}</figcaption>
</figure>
{{end}}</div>
{{end}}

<footer>generated {{.GeneratedAt}}</footer>
</body>
</html>
`
