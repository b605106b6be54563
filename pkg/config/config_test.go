package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port required")
	}
	return nil
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("WAYFARER_TEST_TOKEN", "s3cret")
	var s sample
	err := Parse([]byte("name: ${WAYFARER_TEST_NAME:-wayfarer}\nport: 8080\ntoken: $WAYFARER_TEST_TOKEN\n"), &s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "wayfarer" || s.Token != "s3cret" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestParse_ValidationError(t *testing.T) {
	var s sample
	if err := Parse([]byte("name: x\n"), &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	s := sample{Port: 1}
	found, err := LoadOptional(filepath.Join(dir, "missing.yaml"), &s)
	if err != nil || found {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}
	if s.Port != 1 {
		t.Errorf("defaults overwritten: %+v", s)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("port: 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err = LoadOptional(path, &s)
	if err != nil || !found {
		t.Fatalf("existing file: found=%v err=%v", found, err)
	}
	if s.Port != 9090 {
		t.Errorf("port = %d", s.Port)
	}
}
