package config

import (
	"fmt"
	"strings"
)

// PortalConfig configures the portal REST boundary.
type PortalConfig struct {
	// BaseURL is the portal root, e.g. https://portal.example.org
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request HTTP timeout (Go duration string).
	Timeout string `yaml:"timeout"`

	// FanOutLimit bounds the concurrent registry detail requests.
	FanOutLimit int `yaml:"fan_out_limit"`

	Paths PortalPaths `yaml:"paths"`
}

// PortalPaths maps every portal operation to its endpoint path.
type PortalPaths struct {
	Ping             string `yaml:"ping"`
	ConclusionTypes  string `yaml:"conclusion_types"`
	StatusTypes      string `yaml:"status_types"`
	Registries       string `yaml:"registries"`
	RegistryDetail   string `yaml:"registry_detail"` // "%s"-style slot for the registry id
	SampleLookup     string `yaml:"sample_lookup"`
	StatusChange     string `yaml:"status_change"`
	ConclusionChange string `yaml:"conclusion_change"`
	Upload           string `yaml:"upload"`
}

// DefaultPortal returns the built-in portal endpoints.
func DefaultPortal() PortalConfig {
	return PortalConfig{
		BaseURL:     "https://portal.example.org",
		Timeout:     "30s",
		FanOutLimit: 8,
		Paths: PortalPaths{
			Ping:             "/api/user/me",
			ConclusionTypes:  "/api/dictionary/conclusion-types",
			StatusTypes:      "/api/dictionary/status-types",
			Registries:       "/api/registry/list",
			RegistryDetail:   "/api/registry/%s",
			SampleLookup:     "/api/sample/search",
			StatusChange:     "/api/sample/status",
			ConclusionChange: "/api/sample/conclusion",
			Upload:           "/api/sequence/upload",
		},
	}
}

// Validate checks the portal settings.
func (p PortalConfig) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("portal.base_url must not be empty")
	}
	if p.FanOutLimit <= 0 {
		return fmt.Errorf("portal.fan_out_limit must be positive, got %d", p.FanOutLimit)
	}
	paths := map[string]string{
		"ping":              p.Paths.Ping,
		"conclusion_types":  p.Paths.ConclusionTypes,
		"status_types":      p.Paths.StatusTypes,
		"registries":        p.Paths.Registries,
		"registry_detail":   p.Paths.RegistryDetail,
		"sample_lookup":     p.Paths.SampleLookup,
		"status_change":     p.Paths.StatusChange,
		"conclusion_change": p.Paths.ConclusionChange,
		"upload":            p.Paths.Upload,
	}
	for name, path := range paths {
		if path == "" {
			return fmt.Errorf("portal.paths.%s must not be empty", name)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("portal.paths.%s must start with /, got %q", name, path)
		}
	}
	if !strings.Contains(p.Paths.RegistryDetail, "%s") {
		return fmt.Errorf("portal.paths.registry_detail must contain a %%s slot, got %q", p.Paths.RegistryDetail)
	}
	return nil
}
