package web

import (
	"html/template"

	"github.com/nicolagi/shopping"
)

var pages = template.Must(template.New("").Parse(`
{{ define "head" }}<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Familien Einkaufsliste</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 1em auto; padding: 0 1em; }
.error { color: #b00020; }
.notice { color: #1b5e20; }
.done { text-decoration: line-through; color: #777; }
.meta { color: #777; font-size: 0.85em; }
li form { display: inline; }
button.link { background: none; border: none; cursor: pointer; font-size: 1em; }
</style>
</head>
<body>
<h1>🛒 Familien Einkaufsliste</h1>
{{ end }}

{{ define "foot" }}</body>
</html>
{{ end }}

{{ define "login" }}{{ template "head" . }}
<form method="post" action="/login">
<label>Passwort eingeben <input type="password" name="password" autofocus></label>
<button type="submit">Login</button>
</form>
{{ with .Error }}<p class="error">{{ . }}</p>{{ end }}
{{ template "foot" . }}{{ end }}

{{ define "list" }}{{ template "head" . }}
<p>Willkommen! ✅ <form method="post" action="/logout" style="display:inline"><button type="submit">Logout</button></form></p>
{{ with .Error }}<p class="error">{{ . }}</p>{{ end }}
{{ with .Notice }}<p class="notice">{{ . }}</p>{{ end }}

<form method="post" action="/items">
<p><label>Produktname <input name="name" required></label></p>
<p><label>Menge (z.B. 1 Stück, 500 g) <input name="quantity" value="1"></label></p>
<p><label>Symbol <select name="symbol">{{ range .Symbols }}<option>{{ . }}</option>{{ end }}</select></label>
<label>Einkaufsstätte <select name="store">{{ range .Stores }}<option>{{ . }}</option>{{ end }}</select></label></p>
<p><label>Kategorie <select name="category"><option value="">automatisch</option>{{ range .Categories }}<option>{{ . }}</option>{{ end }}</select></label>
<label>Bestellt von <input name="ordered_by"></label></p>
<button type="submit">Hinzufügen</button>
</form>

<h2>🧾 Einkaufsliste</h2>
{{ range .Groups }}
<h3>{{ .Label }}</h3>
<ul>
{{ range .Items }}<li>
<form method="post" action="/items/{{ .ID }}/toggle"><button class="link" type="submit" title="Erledigt">{{ if .Done }}☑{{ else }}☐{{ end }}</button></form>
<span{{ if .Done }} class="done"{{ end }}>{{ .Symbol }} {{ .Name }} — {{ .Quantity }}</span>
<span class="meta">{{ .Category }}{{ with .OrderedBy }} · für {{ . }}{{ end }}</span>
<a href="/items/{{ .ID }}/delete" title="Löschen">❌</a>
</li>
{{ end }}</ul>
{{ else }}
<p>Die Liste ist noch leer. Füge etwas hinzu!</p>
{{ end }}
<p class="meta">{{ .Pending }} offen, {{ .Done }} erledigt</p>

<h2>Archiv und Export</h2>
<form method="post" action="/archive">
<label><input type="checkbox" name="clear" value="1"> Liste danach leeren</label>
<button type="submit">Archivieren</button>
</form>
<p>Export:
<a href="/export?format=md">Markdown</a> ·
<a href="/export?format=json">JSON</a> ·
{{ if .PDF }}<a href="/export?format=pdf">PDF</a>{{ else }}<span class="meta">PDF nicht verfügbar</span>{{ end }}
</p>
{{ with .Archives }}<ul class="meta">{{ range . }}<li>{{ .Name }}</li>{{ end }}</ul>{{ end }}
<p class="meta">Tipp: Diese App läuft komplett lokal – keine Cloud nötig!</p>
{{ template "foot" . }}{{ end }}

{{ define "confirm" }}{{ template "head" . }}
<h2>❗Löschen bestätigen</h2>
{{ with .Item }}
<p>{{ .Symbol }} <strong>{{ .Name }}</strong> wirklich löschen?</p>
<form method="post" action="/items/{{ .ID }}/delete">
<button type="submit">✅ Ja, löschen</button>
<a href="/">❌ Abbrechen</a>
</form>
{{ end }}
{{ template "foot" . }}{{ end }}
`))

type pageData struct {
	Error      string
	Notice     string
	Groups     []shopping.Group
	Stores     []string
	Symbols    []string
	Categories []string
	Archives   []shopping.ArchiveInfo
	Item       *shopping.Item
	Pending    int
	Done       int
	PDF        bool
}
