package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nicolagi/shopping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t        *testing.T
	config   string
	dataFile string
}

func newFixture(t *testing.T, extra string) *fixture {
	t.Helper()
	for _, v := range []string{"SHOPPING_DATA_FILE", "SHOPPING_S3_BUCKET", "SHOPPING_LOG_LEVEL"} {
		t.Setenv(v, "")
	}
	dir := t.TempDir()
	f := &fixture{
		t:        t,
		config:   filepath.Join(dir, "config.yaml"),
		dataFile: filepath.Join(dir, "einkaufsliste.json"),
	}
	yaml := "data_file: " + f.dataFile + "\narchive:\n  driver: fs\n  dir: " + filepath.Join(dir, "archive") + "\n" + extra
	require.Nil(t, os.WriteFile(f.config, []byte(yaml), 0644))
	t.Cleanup(func() { _ = teardown() })
	return f
}

func (f *fixture) run(args ...string) (string, error) {
	f.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", f.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *fixture) mustRun(args ...string) string {
	f.t.Helper()
	out, err := f.run(args...)
	require.Nil(f.t, err, "shopping %v", args)
	return out
}

func (f *fixture) items() []*shopping.Item {
	f.t.Helper()
	items, _, err := shopping.NewFileBackend(f.dataFile).Load(context.Background())
	require.Nil(f.t, err)
	return items
}

func exitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return -1
}

func TestAddListDone(t *testing.T) {
	f := newFixture(t, "")
	out := f.mustRun("add", "Apfel")
	assert.Contains(t, out, "Apfel hinzugefügt (Obst, Sonstiges)")
	out = f.mustRun("add", "Voll", "milch", "--store", "Aldi", "--by", "Anna", "--qty", "2 l")
	assert.Contains(t, out, "Voll milch hinzugefügt")

	items := f.items()
	require.Len(t, items, 2)
	apple := items[0]

	out = f.mustRun("list")
	assert.Regexp(t, `(?s)^Aldi\n.*Voll milch\t2 l\t.* \(für Anna\)\n\nSonstiges\n.*Apfel\t1\tObst\n$`, out)

	out = f.mustRun("done", shopping.ShortID(apple.ID))
	assert.Contains(t, out, "[x]\tApfel")
	assert.True(t, f.items()[0].Done)

	out = f.mustRun("list", "--pending")
	assert.NotContains(t, out, "Apfel")
	out = f.mustRun("list", "--search", "~anna")
	assert.Contains(t, out, "Voll milch")
	assert.NotContains(t, out, "Apfel")

	out = f.mustRun("clear-done")
	assert.Equal(t, "1 erledigte Einträge entfernt\n", out)
	require.Len(t, f.items(), 1)
}

func TestRm(t *testing.T) {
	f := newFixture(t, "")
	f.mustRun("add", "Brot")
	f.mustRun("add", "Butter")
	items := f.items()
	require.Len(t, items, 2)

	f.mustRun("rm", items[1].ID[:6])
	items = f.items()
	require.Len(t, items, 1)
	assert.Equal(t, "Brot", items[0].Name)

	_, err := f.run("rm", "zzzz")
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestArchive(t *testing.T) {
	f := newFixture(t, "")
	out := f.mustRun("archives")
	assert.Equal(t, "Noch keine Archive.\n", out)

	f.mustRun("add", "Käse")
	out = f.mustRun("archive", "--clear")
	assert.Contains(t, out, "Archiviert als einkaufsliste_")
	assert.Empty(t, f.items())
	assert.Equal(t, "Die Liste ist leer.\n", f.mustRun("list"))

	out = f.mustRun("archives")
	require.Regexp(t, `^einkaufsliste_\S+\.json\t`, out)
	name, _, _ := strings.Cut(out, "\t")
	out = f.mustRun("archives", name)
	assert.Contains(t, out, "Käse")

	_, err := f.run("archives", "einkaufsliste_gibtsnicht.json")
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestExport(t *testing.T) {
	f := newFixture(t, "")
	f.mustRun("add", "Tomaten", "--store", "Rewe")
	out := f.mustRun("export", "--title", "Wochenende")
	assert.Contains(t, out, "# Wochenende\n")
	assert.Contains(t, out, "## Rewe\n")
	assert.Contains(t, out, "**Tomaten** (1) · Gemüse")

	path := filepath.Join(t.TempDir(), "liste.json")
	f.mustRun("export", "--format", "json", "--out", path, "--group", "category")
	data, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Contains(t, string(data), `"label": "Gemüse"`)

	_, err = f.run("export", "--format", "docx")
	assert.Equal(t, exitFailure, exitCode(err))
	_, err = f.run("export", "--format", "json", "--pretty")
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestCategorize(t *testing.T) {
	f := newFixture(t, "categorizer:\n  default: Sonstiges\n")
	out := f.mustRun("categorize", "Apfel", "Quantenkartoffel")
	assert.Equal(t, "Apfel\tObst\nQuantenkartoffel\tSonstiges\n", out)
}

func TestErrors(t *testing.T) {
	f := newFixture(t, "")
	testCases := []struct {
		name     string
		args     []string
		expected int
	}{
		{name: "bad grouping", args: []string{"list", "--group", "colour"}, expected: exitFailure},
		{name: "blank name", args: []string{"add", " "}, expected: exitFailure},
		{name: "unknown id", args: []string{"done", "0000"}, expected: exitNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.run(tc.args...)
			require.NotNil(t, err)
			assert.Equal(t, tc.expected, exitCode(err))
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	f := newFixture(t, "log:\n  level: chatty\n")
	_, err := f.run("list")
	assert.Equal(t, exitConfig, exitCode(err))

	f = newFixture(t, "store: [\n")
	_, err = f.run("list")
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestRunReleasesStorageOnFailure(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, "store:\n  backend: sqlite\n  sqlite_path: "+filepath.Join(dir, "einkaufsliste.db")+"\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", f.config, "done", "zzzz"}, &stdout, &stderr)
	assert.Equal(t, exitNotFound, code)
	assert.Contains(t, stderr.String(), "Error:")
	assert.Nil(t, closeService)

	code = run(context.Background(), []string{"--config", f.config, "add", "Reis"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Nil(t, closeService)
	assert.Contains(t, stdout.String(), "Reis hinzugefügt (Vorrat, Sonstiges)")
}

func TestServeRequiresPassword(t *testing.T) {
	f := newFixture(t, "")
	t.Setenv("SHOPPING_PASSWORD", "")
	_, err := f.run("serve", "--listen", "127.0.0.1:0")
	assert.Equal(t, exitConfig, exitCode(err))
}
