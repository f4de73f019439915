package toggles

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/ssogate/pkg/sso"
)

// fileFormat is the on-disk shape of the toggle file:
//
//	idp_session_expiry:
//	  default: false
//	  enabled_groups: [7, 42]
type fileFormat struct {
	IdPSessionExpiry struct {
		Default       bool    `yaml:"default"`
		EnabledGroups []int64 `yaml:"enabled_groups"`
	} `yaml:"idp_session_expiry"`
}

// Source resolves the session-expiry mode for a group from a YAML toggle
// file. Safe for concurrent readers; Watch reloads the file on change.
type Source struct {
	mu      sync.RWMutex
	path    string
	def     bool
	enabled map[int64]bool
}

// Load reads the toggle file at path. A missing file is not an error; it
// means every group uses the rolling default.
func Load(path string) (*Source, error) {
	s := &Source{path: path, enabled: map[int64]bool{}}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Static builds a toggle source from in-memory values; used in tests and
// single-tenant deployments without a toggle file.
func Static(def bool, enabledGroups ...int64) *Source {
	enabled := make(map[int64]bool, len(enabledGroups))
	for _, id := range enabledGroups {
		enabled[id] = true
	}
	return &Source{def: def, enabled: enabled}
}

// ExpiryMode returns the expiry strategy for a group
func (s *Source) ExpiryMode(groupID int64) sso.ExpiryMode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.enabled[groupID] || s.def {
		return sso.ExpiryModeIdPDeclared
	}
	return sso.ExpiryModeRolling
}

// Watch reloads the toggle file whenever it changes, until ctx is done.
// onReload (optional) is called after each reload attempt with its error.
func (s *Source) Watch(ctx context.Context, onReload func(error)) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create toggle watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				err := s.reload()
				if onReload != nil {
					onReload(err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}

func (s *Source) reload() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.def = false
		s.enabled = map[int64]bool{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read toggle file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse toggle file: %w", err)
	}

	enabled := make(map[int64]bool, len(f.IdPSessionExpiry.EnabledGroups))
	for _, id := range f.IdPSessionExpiry.EnabledGroups {
		enabled[id] = true
	}

	s.mu.Lock()
	s.def = f.IdPSessionExpiry.Default
	s.enabled = enabled
	s.mu.Unlock()
	return nil
}
