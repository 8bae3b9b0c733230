package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/corymhall/shlsp/config"
	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/logger"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/corymhall/shlsp/xcontext"
)

// setConfigLocked installs cfg as the effective configuration. configMu
// must be held, or s must not be shared yet.
func (s *server) setConfigLocked(cfg *config.Config) {
	var inv shellcheck.Invoker = cfg.Invoker()
	if s.invoker != nil {
		inv = s.invoker
	}
	s.cfg = cfg
	s.runner = shellcheck.New(cfg.Shellcheck.Path,
		shellcheck.WithInvoker(inv),
		shellcheck.WithMaxInFlight(cfg.Shellcheck.MaxInFlight),
	)
	if level, err := logger.ParseLevel(cfg.Logger.Level); err == nil {
		logger.ProgramLevel.Set(level)
	}
}

// currentConfig returns the effective configuration and the runner built
// from it.
func (s *server) currentConfig() (*config.Config, *shellcheck.Runner) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	return s.cfg, s.runner
}

// effectiveConfigLocked layers the client settings and the disabled
// inspections over the base configuration.
func (s *server) effectiveConfigLocked(base *config.Config, settings json.RawMessage, disabled []string) (*config.Config, error) {
	cfg, err := base.WithSettings(settings)
	if err != nil {
		return nil, err
	}
	for _, code := range disabled {
		if !cfg.Excludes(code) {
			cfg.Shellcheck.Exclude = append(cfg.Shellcheck.Exclude, code)
		}
	}
	return cfg, nil
}

// updateConfig recomputes the effective configuration after one of its
// layers changed. On error the previous configuration stays in effect.
func (s *server) updateConfig(mutate func()) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	base, settings, disabled := s.baseConfig, s.settings, s.disabled
	mutate()
	cfg, err := s.effectiveConfigLocked(s.baseConfig, s.settings, s.disabled)
	if err != nil {
		s.baseConfig, s.settings, s.disabled = base, settings, disabled
		return err
	}
	s.setConfigLocked(cfg)
	return nil
}

// applySettings replaces the client settings section.
func (s *server) applySettings(settings json.RawMessage) error {
	return s.updateConfig(func() { s.settings = settings })
}

// applyBaseConfig replaces the configuration read from file and flags.
func (s *server) applyBaseConfig(cfg *config.Config) error {
	return s.updateConfig(func() { s.baseConfig = cfg })
}

// disableInspection adds code to the codes excluded for the session. It
// reports false when code was already excluded.
func (s *server) disableInspection(code string) (bool, error) {
	cfg, _ := s.currentConfig()
	if cfg.Excludes(code) {
		return false, nil
	}
	return true, s.updateConfig(func() {
		s.disabled = append(append([]string(nil), s.disabled...), code)
	})
}

// settingsSection extracts the server's section from a settings object.
// Settings that do not name the section are taken to be the section
// itself.
func settingsSection(settings json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(settings))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(settings, &sections); err != nil {
		return nil, fmt.Errorf("%w: settings must be an object: %w", errInvalidSettings, err)
	}
	if section, ok := sections[config.Section]; ok {
		return section, nil
	}
	return settings, nil
}

var errInvalidSettings = errors.New("invalid " + config.Section + " settings")

func (s *server) DidChangeConfiguration(ctx context.Context, params *lsp.DidChangeConfigurationParams) error {
	if err := s.checkInitialized(); err != nil {
		return err
	}
	section, err := settingsSection(params.Settings)
	if err != nil {
		s.reportConfigError(ctx, err)
		return nil
	}
	if section == nil {
		if s.configSupport {
			go s.pullConfiguration(xcontext.Detach(ctx))
		}
		return nil
	}
	if err := s.applySettings(section); err != nil {
		s.reportConfigError(ctx, err)
		return nil
	}
	go s.rediagnoseAll(xcontext.Detach(ctx), "Settings changed")
	return nil
}

// pullConfiguration asks the client for the server's settings section. It
// sends a request to the client, so it must not run on the goroutine that
// reads client messages.
func (s *server) pullConfiguration(ctx context.Context) {
	section := config.Section
	res, err := s.client.Configuration(ctx, &lsp.ParamConfiguration{
		Items: []lsp.ConfigurationItem{{Section: &section}},
	})
	if err != nil {
		debug.LogError(ctx, "error fetching configuration", err)
		return
	}
	if len(res) == 0 || res[0] == nil {
		return
	}
	raw, err := json.Marshal(res[0])
	if err != nil {
		debug.LogError(ctx, "error encoding configuration", err)
		return
	}
	if err := s.applySettings(raw); err != nil {
		s.reportConfigError(ctx, err)
		return
	}
	s.rediagnoseAll(ctx, "Settings changed")
}

// onConfigFileChange is called by the configuration file watcher.
func (s *server) onConfigFileChange(ctx context.Context, cfg *config.Config) {
	if err := s.applyBaseConfig(cfg); err != nil {
		s.reportConfigError(ctx, err)
		return
	}
	s.logger.Info("configuration reloaded", "path", s.configPath)
	s.rediagnoseAll(ctx, "Configuration reloaded")
}

func (s *server) reportConfigError(ctx context.Context, err error) {
	s.logger.Warn("ignoring configuration", "err", err)
	go func() {
		if err := s.client.ShowMessage(xcontext.Detach(ctx), &lsp.ShowMessageParams{
			Type:    lsp.MessageTypeError,
			Message: fmt.Sprintf("%s: %v", config.AppName, err),
		}); err != nil {
			s.logger.Error("error showing message", "err", err)
		}
	}()
}

// rediagnoseAll lints every open document again and waits for the runs to
// finish. It reports progress to the client, so it must not run on the
// goroutine that reads client messages.
func (s *server) rediagnoseAll(ctx context.Context, title string) {
	snapshot, release, err := s.view.Snapshot()
	if err != nil {
		return
	}
	uris := snapshot.Open()
	release()
	if len(uris) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wd := s.progress.Start(ctx, title, fmt.Sprintf("Checking %d open documents", len(uris)), cancel)

	dones := make([]<-chan struct{}, 0, len(uris))
	for _, uri := range uris {
		dones = append(dones, s.scheduleDiagnosis(ctx, uri, 0))
	}
	for i, done := range dones {
		select {
		case <-done:
		case <-ctx.Done():
			s.cancelPending()
			wd.End(ctx, "Cancelled")
			return
		}
		wd.Report(ctx, fmt.Sprintf("%d/%d", i+1, len(uris)), uint32(100*(i+1)/len(uris)))
	}
	wd.End(ctx, "Done")
}
