// Package config parses and validates the runtime's configuration document
// (§6 of the spec): a listen port, per-tenant defaults, and the list of
// tenant app records. Loading follows the teacher's pkg/config dispatch
// pattern — extension-sniffed JSON/YAML, with .env values applied first via
// godotenv and then struct-tag env overrides via envdecode.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults holds the fallback timeout/memory applied to an App record that
// omits them.
type Defaults struct {
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms" env:"NANO_DEFAULT_TIMEOUT_MS"`
	MemoryMB  int `json:"memory_mb" yaml:"memory_mb" env:"NANO_DEFAULT_MEMORY_MB"`
}

// App describes one tenant record as it appears in the config document.
type App struct {
	Name            string            `json:"name" yaml:"name"`
	Path            string            `json:"path" yaml:"path"`
	Hostname        string            `json:"hostname" yaml:"hostname"`
	Port            int               `json:"port" yaml:"port"`
	TimeoutMS       int               `json:"timeout_ms" yaml:"timeout_ms"`
	MemoryMB        int               `json:"memory_mb" yaml:"memory_mb"`
	Env             map[string]string `json:"env" yaml:"env"`
	MaxBufferSizeMB int               `json:"max_buffer_size_mb" yaml:"max_buffer_size_mb"`
}

// Document is the top-level configuration document.
type Document struct {
	Port     int      `json:"port" yaml:"port" env:"NANO_PORT"`
	Defaults Defaults `json:"defaults" yaml:"defaults"`
	Apps     []App    `json:"apps" yaml:"apps"`
}

const (
	defaultPort            = 8080
	defaultTimeoutMS       = 5000
	defaultMemoryMB        = 128
	defaultMaxBufferSizeMB = 64
)

// New returns a Document populated with spec defaults.
func New() *Document {
	return &Document{
		Port: defaultPort,
		Defaults: Defaults{
			TimeoutMS: defaultTimeoutMS,
			MemoryMB:  defaultMemoryMB,
		},
	}
}

// Load reads a .env file (if present), then the config file at path
// (JSON or YAML, sniffed by extension), then applies any NANO_* environment
// overrides, finally validating and normalizing the result.
func Load(path string) (*Document, error) {
	_ = godotenv.Load()

	doc := New()
	if strings.TrimSpace(path) != "" {
		if err := loadFile(path, doc); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(doc); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env overrides: %w", err)
		}
	}

	normalize(doc)

	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func loadFile(path string, doc *Document) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, doc); err != nil {
			if yerr := yaml.Unmarshal(data, doc); yerr != nil {
				return fmt.Errorf("parse config %s as json or yaml: %w", path, err)
			}
		}
	}
	return nil
}

// normalize fills per-app defaults and derives hostname from name.
func normalize(doc *Document) {
	if doc.Port == 0 {
		doc.Port = defaultPort
	}
	if doc.Defaults.TimeoutMS == 0 {
		doc.Defaults.TimeoutMS = defaultTimeoutMS
	}
	if doc.Defaults.MemoryMB == 0 {
		doc.Defaults.MemoryMB = defaultMemoryMB
	}
	for i := range doc.Apps {
		app := &doc.Apps[i]
		if strings.TrimSpace(app.Hostname) == "" {
			app.Hostname = app.Name
		}
		app.Hostname = strings.ToLower(strings.TrimSpace(app.Hostname))
		if app.TimeoutMS == 0 {
			app.TimeoutMS = doc.Defaults.TimeoutMS
		}
		if app.MemoryMB == 0 {
			app.MemoryMB = doc.Defaults.MemoryMB
		}
		if app.MaxBufferSizeMB == 0 {
			app.MaxBufferSizeMB = defaultMaxBufferSizeMB
		}
	}
}

// Validate enforces the document-level invariants from spec.md §6: at least
// one app, every app has a name and path, hostnames are unique.
func Validate(doc *Document) error {
	if doc == nil || len(doc.Apps) == 0 {
		return fmt.Errorf("config: at least one app is required")
	}
	seen := make(map[string]bool, len(doc.Apps))
	for _, app := range doc.Apps {
		if strings.TrimSpace(app.Name) == "" {
			return fmt.Errorf("config: app missing required field 'name'")
		}
		if strings.TrimSpace(app.Path) == "" {
			return fmt.Errorf("config: app %q missing required field 'path'", app.Name)
		}
		if seen[app.Hostname] {
			return fmt.Errorf("config: duplicate hostname %q", app.Hostname)
		}
		seen[app.Hostname] = true
	}
	return nil
}
