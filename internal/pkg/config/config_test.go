package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[runtime]
libs-path = "libs"
abort-on-error = true
arena-capacity = 1024
entry = "Main.main"

[log]
verbosity = 2
file = "nar.log"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Runtime.LibsPath != filepath.Join(filepath.Dir(path), "libs") {
		t.Errorf("libs path should be relative to config: %s", c.Runtime.LibsPath)
	}
	if !c.Runtime.AbortOnError || c.Runtime.ArenaCapacity != 1024 || c.Runtime.Entry != "Main.main" {
		t.Errorf("unexpected runtime config %+v", c.Runtime)
	}
	if c.Log.Verbosity != 2 || c.Log.File != "nar.log" {
		t.Errorf("unexpected log config %+v", c.Log)
	}
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "[log]\nverbosity = 1\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Runtime.ArenaCapacity != Default().Runtime.ArenaCapacity || c.Runtime.AbortOnError {
		t.Errorf("defaults were not applied: %+v", c.Runtime)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), FileName) }},
		{"bad syntax", func(t *testing.T) string { return writeConfig(t, "[runtime\n") }},
		{"wrong type", func(t *testing.T) string { return writeConfig(t, "[runtime]\nabort-on-error = \"yes\"\n") }},
		{"negative capacity", func(t *testing.T) string { return writeConfig(t, "[runtime]\narena-capacity = -1\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path(t)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLibsPath(t *testing.T) {
	program := filepath.Join("some", "dir", "program.binar")
	c := Default()

	t.Setenv(LibsPathEnv, "")
	if got := c.LibsPath(program); got != filepath.Join("some", "dir") {
		t.Errorf("expected program directory, got %s", got)
	}
	c.Runtime.LibsPath = "/opt/nar"
	if got := c.LibsPath(program); got != "/opt/nar" {
		t.Errorf("expected configured path, got %s", got)
	}
	t.Setenv(LibsPathEnv, "/env/nar")
	if got := c.LibsPath(program); got != "/env/nar" {
		t.Errorf("expected environment override, got %s", got)
	}
}
