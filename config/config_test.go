package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundParticleCount(t *testing.T) {
	tests := []struct {
		requested int
		wantSide  int
	}{
		{1, 1},
		{100, 16},
		{500, 32},
		{4096, 64},
		{0, 1},
	}

	for _, tt := range tests {
		side, n := RoundParticleCount(tt.requested)
		if side != tt.wantSide {
			t.Errorf("RoundParticleCount(%d) side = %d, want %d", tt.requested, side, tt.wantSide)
		}
		if n != side*side {
			t.Errorf("RoundParticleCount(%d) n = %d, want side^2 = %d", tt.requested, n, side*side)
		}
		if side&(side-1) != 0 {
			t.Errorf("RoundParticleCount(%d) side %d is not a power of two", tt.requested, side)
		}
		if tt.requested > 0 && n < tt.requested {
			t.Errorf("RoundParticleCount(%d) n = %d is below the request", tt.requested, n)
		}
	}
}

func TestTableSideFor(t *testing.T) {
	tests := []struct {
		axis   int
		want   int
		wantOK bool
	}{
		{1, 1, true},
		{4, 8, true},
		{16, 64, true},
		{9, 27, true},
		{8, 0, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		got, ok := TableSideFor(tt.axis)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("TableSideFor(%d) = (%d, %v), want (%d, %v)", tt.axis, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Derived.ParticleCount != 1024 {
		t.Errorf("default particle count = %d, want 1024 (500 rounded up)", cfg.Derived.ParticleCount)
	}
	if cfg.Derived.TableSide != 64 {
		t.Errorf("default table side = %d, want 64", cfg.Derived.TableSide)
	}
	if cfg.Simulation.H != 1 || cfg.Simulation.GasConst != 400 {
		t.Errorf("unexpected simulation defaults: %+v", cfg.Simulation)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("particles:\n  count: 100\ngrid:\n  mode: brute\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Derived.ParticleCount != 256 {
		t.Errorf("particle count = %d, want 256", cfg.Derived.ParticleCount)
	}
	if !cfg.Derived.BruteForce {
		t.Error("expected brute force mode")
	}
	// Untouched sections keep their defaults
	if cfg.Pointer.Radius != 0.65 {
		t.Errorf("pointer radius = %v, want default 0.65", cfg.Pointer.Radius)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"small kernel radius", "simulation:\n  h: 0.001\n"},
		{"negative steps", "simulation:\n  steps: -1\n"},
		{"axis not square", "grid:\n  axis_cells: 8\n"},
		{"unknown mode", "grid:\n  mode: octree\n"},
		{"unknown boundary", "domain:\n  boundary: torus\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Steps = 3

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if loaded.Simulation.Steps != 3 {
		t.Errorf("steps = %d, want 3", loaded.Simulation.Steps)
	}
}
