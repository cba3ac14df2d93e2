package theme

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nadav-galili/starter/internal/prefs"
)

func openPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open prefs: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestEffectiveResolution(t *testing.T) {
	tests := []struct {
		name   string
		raw    Preference
		system SystemSchemeFunc
		want   Scheme
	}{
		{"explicit light", PreferenceLight, func() Scheme { return SchemeDark }, SchemeLight},
		{"explicit dark", PreferenceDark, func() Scheme { return SchemeLight }, SchemeDark},
		{"system dark", PreferenceSystem, func() Scheme { return SchemeDark }, SchemeDark},
		{"system light", PreferenceSystem, func() Scheme { return SchemeLight }, SchemeLight},
		{"system reports neither", PreferenceSystem, func() Scheme { return "" }, SchemeLight},
		{"no system source", PreferenceSystem, nil, SchemeLight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(openPrefs(t), tt.system, zerolog.Nop())
			s.Load()
			s.SetPreference(tt.raw)
			if got := s.Effective(); got != tt.want {
				t.Errorf("Effective() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadedGate(t *testing.T) {
	s := NewStore(openPrefs(t), nil, zerolog.Nop())
	if s.Loaded() {
		t.Fatalf("store must not report loaded before Load")
	}
	s.Load()
	if !s.Loaded() {
		t.Fatalf("store must report loaded after Load")
	}
	if s.Preference() != PreferenceSystem {
		t.Errorf("first launch defaults to system, got %v", s.Preference())
	}
}

func TestPreferencePersists(t *testing.T) {
	p := openPrefs(t)

	s := NewStore(p, nil, zerolog.Nop())
	s.Load()
	s.SetPreference(PreferenceDark)

	// A second store over the same backing sees the persisted raw value.
	s2 := NewStore(p, nil, zerolog.Nop())
	s2.Load()
	if s2.Preference() != PreferenceDark {
		t.Errorf("persisted preference = %v, want dark", s2.Preference())
	}
}

func TestUnknownPersistedValueFallsBack(t *testing.T) {
	p := openPrefs(t)
	if err := p.Set(prefs.KeyThemePreference, "sepia"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStore(p, nil, zerolog.Nop())
	s.Load()
	if s.Preference() != PreferenceSystem {
		t.Errorf("unknown value should fall back to system, got %v", s.Preference())
	}
}

func TestPersistenceFailureDoesNotBlockChange(t *testing.T) {
	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open prefs: %v", err)
	}

	s := NewStore(p, nil, zerolog.Nop())
	s.Load()

	// A closed backing store makes every write fail.
	_ = p.Close()
	s.SetPreference(PreferenceDark)

	if s.Preference() != PreferenceDark {
		t.Errorf("in-memory change must commit despite persistence failure")
	}
	if s.Effective() != SchemeDark {
		t.Errorf("effective scheme must follow the in-memory preference")
	}
}

func TestToggle(t *testing.T) {
	s := NewStore(openPrefs(t), func() Scheme { return SchemeDark }, zerolog.Nop())
	s.Load()

	// Effective is dark (system), so toggling goes explicit light.
	s.Toggle()
	if s.Preference() != PreferenceLight {
		t.Fatalf("toggle from dark should set light, got %v", s.Preference())
	}
	s.Toggle()
	if s.Preference() != PreferenceDark {
		t.Fatalf("toggle from light should set dark, got %v", s.Preference())
	}
}
