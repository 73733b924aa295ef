package loader

import (
	"errors"
	"strings"
	"testing"
)

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/scrollspy.yaml", `
tracker:
  itemSelector: ".section"
  delay: 750ms
navigation:
  - id: intro
    title: Intro
  - id: api
`)

	config, err := NewYAMLLoaderWithFS(memfs, "/scrollspy.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, _ := getByPath(config, "tracker.delay"); val != "750ms" {
		t.Errorf("tracker.delay = %v, want '750ms'", val)
	}
	items, ok := config["navigation"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("navigation = %v", config["navigation"])
	}
	first, ok := items[0].(map[string]any)
	if !ok || first["id"] != "intro" {
		t.Errorf("first item = %v", items[0])
	}
}

func TestYAMLLoader_Empty(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/empty.yaml", "")

	config, err := NewYAMLLoaderWithFS(memfs, "/empty.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(config) != 0 {
		t.Errorf("expected empty map for an empty file, got %v", config)
	}

	config, err = (&YAMLLoader{}).LoadFromReader(strings.NewReader("# only a comment\n"))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if len(config) != 0 {
		t.Errorf("expected empty map, got %v", config)
	}
}

func TestYAMLLoader_Invalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.yaml", "tracker: [unclosed\n")

	_, err := NewYAMLLoaderWithFS(memfs, "/bad.yaml").Load()

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T (%v)", err, err)
	}
	if parseErr.Path != "/bad.yaml" {
		t.Errorf("Path = %q", parseErr.Path)
	}

	_, err = (&YAMLLoader{}).LoadFromReader(strings.NewReader("- just\n- a list\n"))
	if !errors.As(err, &parseErr) {
		t.Fatalf("a top-level list should not decode into a map, got %v", err)
	}
}
