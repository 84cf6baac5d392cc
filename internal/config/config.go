// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ericfisherdev/cirelay/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
// It is constructed once at process start and read-only thereafter.
type Config struct {
	GitHubToken     string
	WebhookSecret   string
	PollInterval    time.Duration
	DispatchTimeout time.Duration
	RunTimeout      time.Duration
	ListenAddr      string
	DBPath          string
	Modules         ModuleWorkflows
}

// ModuleWorkflows is the validated mapping from module name to workflow file,
// plus the distinguished all-modules workflow selected by a bare "/ci".
type ModuleWorkflows struct {
	byModule    map[string]string
	allWorkflow string
}

// Resolve maps a module name to its workflow file. The DefaultModule sentinel
// resolves to the all-modules workflow; any other name must be a configured
// key.
func (m ModuleWorkflows) Resolve(module string) (string, bool) {
	if module == model.DefaultModule {
		return m.allWorkflow, true
	}
	wf, ok := m.byModule[module]
	return wf, ok
}

// Names returns the configured module names in sorted order, excluding the
// default sentinel. Used for diagnostics in rejection messages.
func (m ModuleWorkflows) Names() []string {
	names := make([]string, 0, len(m.byModule))
	for name := range m.byModule {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseModuleWorkflows parses a "name=workflow.yml,name2=other.yml" list into
// a ModuleWorkflows. Malformed entries fail rather than being skipped, so a
// bad mapping is caught at startup instead of at first use.
func ParseModuleWorkflows(raw, allWorkflow string) (ModuleWorkflows, error) {
	byModule := make(map[string]string)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, workflow, found := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		workflow = strings.TrimSpace(workflow)
		if !found || name == "" || workflow == "" {
			return ModuleWorkflows{}, fmt.Errorf("invalid module mapping entry %q: expected name=workflow", entry)
		}
		if name == model.DefaultModule {
			return ModuleWorkflows{}, fmt.Errorf("module name %q is reserved for the all-modules workflow", name)
		}
		if _, exists := byModule[name]; exists {
			return ModuleWorkflows{}, fmt.Errorf("duplicate module mapping for %q", name)
		}
		byModule[name] = workflow
	}

	if len(byModule) == 0 {
		return ModuleWorkflows{}, fmt.Errorf("module mapping is empty")
	}

	return ModuleWorkflows{byModule: byModule, allWorkflow: allWorkflow}, nil
}

// NewModuleWorkflows builds a ModuleWorkflows from an explicit map. Intended
// for tests and for callers that assemble the mapping programmatically.
func NewModuleWorkflows(byModule map[string]string, allWorkflow string) ModuleWorkflows {
	return ModuleWorkflows{byModule: byModule, allWorkflow: allWorkflow}
}

// durationEnv reads an optional duration variable, falling back to def when
// unset. Zero and negative values are rejected: they would only surface later,
// inside the background polling loops, where time.NewTicker panics on a
// non-positive interval.
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, v)
	}
	return parsed, nil
}

// Load reads configuration from environment variables and returns a validated
// Config. CIRELAY_GITHUB_TOKEN, CIRELAY_WEBHOOK_SECRET, and
// CIRELAY_MODULE_WORKFLOWS are required. Optional variables with defaults:
// CIRELAY_POLL_INTERVAL (5s), CIRELAY_DISPATCH_TIMEOUT (2m),
// CIRELAY_RUN_TIMEOUT (30m), CIRELAY_LISTEN_ADDR (127.0.0.1:8080),
// CIRELAY_DB_PATH (cirelay.db), CIRELAY_ALL_WORKFLOW (ci.yml).
func Load() (*Config, error) {
	token := os.Getenv("CIRELAY_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("CIRELAY_GITHUB_TOKEN is required")
	}

	secret := os.Getenv("CIRELAY_WEBHOOK_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("CIRELAY_WEBHOOK_SECRET is required")
	}

	pollInterval, err := durationEnv("CIRELAY_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	dispatchTimeout, err := durationEnv("CIRELAY_DISPATCH_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	runTimeout, err := durationEnv("CIRELAY_RUN_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CIRELAY_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "cirelay.db"
	if v, ok := os.LookupEnv("CIRELAY_DB_PATH"); ok {
		dbPath = v
	}

	allWorkflow := "ci.yml"
	if v, ok := os.LookupEnv("CIRELAY_ALL_WORKFLOW"); ok {
		allWorkflow = v
	}

	rawModules := os.Getenv("CIRELAY_MODULE_WORKFLOWS")
	if rawModules == "" {
		return nil, fmt.Errorf("CIRELAY_MODULE_WORKFLOWS is required")
	}
	modules, err := ParseModuleWorkflows(rawModules, allWorkflow)
	if err != nil {
		return nil, fmt.Errorf("CIRELAY_MODULE_WORKFLOWS: %w", err)
	}

	return &Config{
		GitHubToken:     token,
		WebhookSecret:   secret,
		PollInterval:    pollInterval,
		DispatchTimeout: dispatchTimeout,
		RunTimeout:      runTimeout,
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		Modules:         modules,
	}, nil
}
