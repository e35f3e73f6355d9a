package quota

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// EnforcementSettings are the escalation thresholds for one metric.
// Percentages are of the resolved limit.
type EnforcementSettings struct {
	WarningPct  float64 `yaml:"warning_pct"`
	CriticalPct float64 `yaml:"critical_pct"`
	BlockPct    float64 `yaml:"block_pct"`
	GraceDays   int     `yaml:"grace_days"`
}

// DefaultEnforcementSettings returns the platform defaults: warn at 80%,
// escalate at 90%, enter grace at 100%, block after 10 days.
func DefaultEnforcementSettings() EnforcementSettings {
	return EnforcementSettings{
		WarningPct:  80,
		CriticalPct: 90,
		BlockPct:    100,
		GraceDays:   10,
	}
}

// Validate checks that the thresholds are ordered and sane.
func (s EnforcementSettings) Validate() error {
	if s.WarningPct <= 0 || s.WarningPct > 100 {
		return fmt.Errorf("warning_pct must be in (0, 100], got %v", s.WarningPct)
	}
	if s.CriticalPct < s.WarningPct {
		return fmt.Errorf("critical_pct %v below warning_pct %v", s.CriticalPct, s.WarningPct)
	}
	if s.BlockPct < s.CriticalPct {
		return fmt.Errorf("block_pct %v below critical_pct %v", s.BlockPct, s.CriticalPct)
	}
	if s.GraceDays < 0 {
		return fmt.Errorf("grace_days must be >= 0, got %d", s.GraceDays)
	}
	return nil
}

// settingsFile is the on-disk YAML shape: platform defaults plus
// per-metric overrides.
type settingsFile struct {
	Defaults *EnforcementSettings           `yaml:"defaults"`
	Metrics  map[string]EnforcementSettings `yaml:"metrics"`
}

// SettingsProvider serves enforcement settings per metric and supports
// hot reload from a YAML file.
type SettingsProvider struct {
	mu       sync.RWMutex
	defaults EnforcementSettings
	metrics  map[string]EnforcementSettings
}

// NewSettingsProvider creates a provider serving the platform defaults.
func NewSettingsProvider() *SettingsProvider {
	return &SettingsProvider{
		defaults: DefaultEnforcementSettings(),
		metrics:  make(map[string]EnforcementSettings),
	}
}

// For returns the settings in effect for a metric.
func (p *SettingsProvider) For(metric string) EnforcementSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.metrics[metric]; ok {
		return s
	}
	return p.defaults
}

// LoadFile replaces the provider's settings from a YAML file. An invalid
// file leaves the current settings untouched.
func (p *SettingsProvider) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var file settingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse settings file: %w", err)
	}

	defaults := DefaultEnforcementSettings()
	if file.Defaults != nil {
		defaults = *file.Defaults
	}
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("invalid defaults: %w", err)
	}
	for metric, s := range file.Metrics {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid settings for metric %q: %w", metric, err)
		}
	}

	metrics := make(map[string]EnforcementSettings, len(file.Metrics))
	for metric, s := range file.Metrics {
		metrics[metric] = s
	}

	p.mu.Lock()
	p.defaults = defaults
	p.metrics = metrics
	p.mu.Unlock()
	return nil
}

// Watch reloads the settings file whenever it changes, until ctx is
// done. Reload failures are reported through onError and keep the
// previous settings in effect.
func (p *SettingsProvider) Watch(ctx context.Context, path string, onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch settings file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := p.LoadFile(path); err != nil && onError != nil {
						onError(err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()
	return nil
}
