// Package theme resolves the app's effective color scheme from a persisted
// raw preference and the live system-reported scheme.
package theme

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nadav-galili/starter/internal/prefs"
)

// Preference is the raw, persisted choice.
type Preference string

const (
	PreferenceLight  Preference = "light"
	PreferenceDark   Preference = "dark"
	PreferenceSystem Preference = "system"
)

// Scheme is the resolved value used for rendering.
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// SystemSchemeFunc reports the live system scheme, or "" when the system
// reports neither.
type SystemSchemeFunc func() Scheme

// Store holds the theme state. The raw preference and the resolved
// effective scheme are kept separately; only the raw preference is ever
// persisted.
type Store struct {
	mu     sync.RWMutex
	prefs  *prefs.Store
	raw    Preference
	loaded bool
	system SystemSchemeFunc
	log    zerolog.Logger
}

// NewStore creates a theme store backed by p. system may be nil, in which
// case "system" resolves to light.
func NewStore(p *prefs.Store, system SystemSchemeFunc, log zerolog.Logger) *Store {
	return &Store{prefs: p, raw: PreferenceSystem, system: system, log: log}
}

// Load reads the persisted preference once. Rendering should be suppressed
// until Loaded reports true, to avoid a flash of the wrong scheme. An
// unreadable or unknown persisted value falls back to "system".
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.prefs.Get(prefs.KeyThemePreference)
	switch {
	case errors.Is(err, prefs.ErrNotFound):
		// First launch.
	case err != nil:
		s.log.Warn().Err(err).Msg("load theme preference")
	default:
		switch Preference(raw) {
		case PreferenceLight, PreferenceDark, PreferenceSystem:
			s.raw = Preference(raw)
		default:
			s.log.Warn().Str("value", raw).Msg("unknown theme preference")
		}
	}
	s.loaded = true
}

// Loaded reports whether the persisted preference has been read once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Preference returns the raw preference.
func (s *Store) Preference() Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// SetPreference updates the raw preference and persists it. The in-memory
// change commits regardless; a persistence failure is logged, never
// surfaced to the user.
func (s *Store) SetPreference(p Preference) {
	s.mu.Lock()
	s.raw = p
	s.mu.Unlock()

	if err := s.prefs.Set(prefs.KeyThemePreference, string(p)); err != nil {
		s.log.Error().Err(err).Msg("persist theme preference")
	}
}

// Effective resolves the scheme used for rendering: the raw preference
// unless it is "system", in which case the live system scheme wins,
// defaulting to light when the system reports neither.
func (s *Store) Effective() Scheme {
	s.mu.RLock()
	raw := s.raw
	system := s.system
	s.mu.RUnlock()

	if raw == PreferenceLight {
		return SchemeLight
	}
	if raw == PreferenceDark {
		return SchemeDark
	}
	if system != nil {
		if sch := system(); sch == SchemeDark || sch == SchemeLight {
			return sch
		}
	}
	return SchemeLight
}

// Toggle flips between explicit light and dark, leaving "system" by
// switching to the opposite of the current effective scheme.
func (s *Store) Toggle() {
	if s.Effective() == SchemeDark {
		s.SetPreference(PreferenceLight)
	} else {
		s.SetPreference(PreferenceDark)
	}
}
