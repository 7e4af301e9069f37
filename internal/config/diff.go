package config

import (
	"fmt"
	"log/slog"
	"reflect"
)

// ChangeReport describes how the config file on disk diverges from the
// config the process was started with. The running config is never mutated;
// every change takes effect on the next restart.
type ChangeReport struct {
	Changed []string // changed sections
}

// Diff reloads the file at path and compares it section by section against
// the running config.
func (c *Config) Diff(path string) (*ChangeReport, error) {
	newCfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("reload config for diff: %w", err)
	}

	report := &ChangeReport{}

	if !reflect.DeepEqual(c.Server, newCfg.Server) {
		report.Changed = append(report.Changed, "server")
	}
	if !reflect.DeepEqual(c.Defaults, newCfg.Defaults) {
		report.Changed = append(report.Changed, "defaults")
	}
	if !reflect.DeepEqual(c.Routing, newCfg.Routing) {
		report.Changed = append(report.Changed, "routing")
	}
	if !reflect.DeepEqual(c.Providers, newCfg.Providers) {
		report.Changed = append(report.Changed, "providers")
	}

	return report, nil
}

// LogReport logs the diff outcome at the appropriate levels.
func (r *ChangeReport) LogReport(logger *slog.Logger) {
	if len(r.Changed) == 0 {
		logger.Info("config file changed but content is equivalent")
		return
	}

	for _, section := range r.Changed {
		logger.Warn("config section changed on disk, restart required", "section", section)
	}
}
