package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"apps": [{"name": "app-a", "path": "./app-a"}]
	}`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Port != defaultPort {
		t.Fatalf("expected default port, got %d", doc.Port)
	}
	if len(doc.Apps) != 1 {
		t.Fatalf("expected 1 app, got %d", len(doc.Apps))
	}
	app := doc.Apps[0]
	if app.Hostname != "app-a" {
		t.Fatalf("expected hostname derived from name, got %q", app.Hostname)
	}
	if app.TimeoutMS != defaultTimeoutMS {
		t.Fatalf("expected default timeout, got %d", app.TimeoutMS)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "apps:\n  - name: app-a\n    path: ./app-a\n    hostname: A.Local\n")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Apps[0].Hostname != "a.local" {
		t.Fatalf("expected lowercased hostname, got %q", doc.Apps[0].Hostname)
	}
}

func TestValidateRejectsEmptyApps(t *testing.T) {
	if err := Validate(&Document{}); err == nil {
		t.Fatal("expected error for empty apps list")
	}
}

func TestValidateRejectsDuplicateHostnames(t *testing.T) {
	doc := &Document{Apps: []App{
		{Name: "a", Path: "./a", Hostname: "x.local"},
		{Name: "b", Path: "./b", Hostname: "x.local"},
	}}
	if err := Validate(doc); err == nil {
		t.Fatal("expected error for duplicate hostname")
	}
}

func TestValidateRequiresNameAndPath(t *testing.T) {
	doc := &Document{Apps: []App{{Name: "a"}}}
	if err := Validate(doc); err == nil {
		t.Fatal("expected error for missing path")
	}
	noName := &Document{Apps: []App{{Path: "./a"}}}
	if err := Validate(noName); err == nil {
		t.Fatal("expected error for missing name")
	}
}
