package loader

import (
	"testing"
)

func getByPath(data map[string]any, path string) (any, bool) {
	current := any(data)
	for _, part := range splitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}

func TestEnvLoader_Load(t *testing.T) {
	t.Setenv("SCROLLSPY_SELECTOR", ".section")
	t.Setenv("SCROLLSPY_LOG_LEVEL", "debug")
	t.Setenv("SCROLLSPY_VIEWPORT_ROWS", "30")
	t.Setenv("SCROLLSPY_TRACKER_DELAY", "250ms")

	config, err := NewEnvLoader("SCROLLSPY_").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "tracker.itemSelector"); !ok || val != ".section" {
		t.Errorf("tracker.itemSelector = %v, want '.section'", val)
	}
	if val, ok := getByPath(config, "log.level"); !ok || val != "debug" {
		t.Errorf("log.level = %v, want 'debug'", val)
	}
	if val, ok := getByPath(config, "viewport.height"); !ok || val != int64(30) {
		t.Errorf("viewport.height = %v (%T), want 30", val, val)
	}
	if val, ok := getByPath(config, "tracker.delay"); !ok || val != "250ms" {
		t.Errorf("tracker.delay = %v, want '250ms'", val)
	}
}

func TestEnvLoader_LoadUnmapped(t *testing.T) {
	t.Setenv("SCROLLSPY_METRICS_LISTEN_ADDR", ":9100")
	t.Setenv("OTHER_SETTING", "ignored")

	config, err := NewEnvLoader("SCROLLSPY_").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "metrics.listenAddr"); !ok || val != ":9100" {
		t.Errorf("metrics.listenAddr = %v, want ':9100'", val)
	}
	if _, ok := getByPath(config, "other"); ok {
		t.Error("unprefixed variables must be ignored")
	}
}

func TestEnvLoader_CustomEnviron(t *testing.T) {
	l := NewEnvLoaderWithMapping("APP_", nil)
	l.AddMapping("APP_X", "a.b.c")
	l.environ = func() []string { return []string{"APP_X=1", "APP_=skip", "broken"} }

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if val, ok := getByPath(config, "a.b.c"); !ok || val != int64(1) {
		t.Errorf("a.b.c = %v, want 1", val)
	}
	if len(config) != 1 {
		t.Errorf("unexpected keys: %v", config)
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	loader := NewEnvLoader("SCROLLSPY_")

	tests := []struct {
		env      string
		expected string
	}{
		{"SCROLLSPY_TRACKER_ITEM_SELECTOR", "tracker.itemSelector"},
		{"SCROLLSPY_LOG_FORMAT", "log.format"},
		{"SCROLLSPY_SIMPLE", "simple"},
		{"SCROLLSPY_VIEWPORT_DEFAULT_ROWS", "viewport.defaultRows"},
	}

	for _, tt := range tests {
		if got := loader.envToPath(tt.env); got != tt.expected {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.expected)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"", ""},
		{"true", true},
		{"Yes", true},
		{"off", false},
		{"1", int64(1)},
		{"-42", int64(-42)},
		{"0.5", 0.5},
		{"1s", "1s"},
		{"1500ms", "1.5s"},
		{".item", ".item"},
		{"hello", "hello"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.expected {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.expected, tt.expected)
		}
	}
}

func TestSetByPath(t *testing.T) {
	data := map[string]any{"log": "scalar"}
	setByPath(data, "log.level", "warn")
	setByPath(data, "top", 1)

	if val, ok := getByPath(data, "log.level"); !ok || val != "warn" {
		t.Errorf("log.level = %v, want 'warn'", val)
	}
	if data["top"] != 1 {
		t.Errorf("top = %v", data["top"])
	}
}
