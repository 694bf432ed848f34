// Package providers reads the proxy's YAML config and reports the custom
// providers and models it declares. It only inspects the file; the proxy
// itself loads and registers the providers.
package providers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/loykin/proxyboot/internal/common"
	"gopkg.in/yaml.v3"
)

// Provider is one entry of litellm_settings.custom_provider_map.
type Provider struct {
	Name    string `yaml:"provider"`
	Handler string `yaml:"custom_handler"`
}

// Model is one entry of model_list.
type Model struct {
	Name  string `yaml:"model_name"`
	Model string `yaml:"-"`
}

// UnmarshalYAML reads model_name and litellm_params.model.
func (m *Model) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name   string `yaml:"model_name"`
		Params struct {
			Model string `yaml:"model"`
		} `yaml:"litellm_params"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	m.Name = raw.Name
	m.Model = raw.Params.Model
	return nil
}

type document struct {
	ModelList []Model `yaml:"model_list"`
	Settings  struct {
		CustomProviderMap []Provider `yaml:"custom_provider_map"`
	} `yaml:"litellm_settings"`
}

// Report summarizes a proxy config file.
type Report struct {
	Path      string
	Providers []Provider
	Models    []Model
}

// Load parses the proxy config at path.
func Load(path string) (*Report, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator
	f, err := os.Open(clean)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rep, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", clean, err)
	}
	rep.Path = clean
	return rep, nil
}

// Parse decodes a proxy config document. An empty document yields an empty
// report.
func Parse(r io.Reader) (*Report, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &Report{Providers: doc.Settings.CustomProviderMap, Models: doc.ModelList}, nil
}

// ProviderNames returns the provider names in file order.
func (r *Report) ProviderNames() []string {
	out := make([]string, 0, len(r.Providers))
	for _, p := range r.Providers {
		out = append(out, p.Name)
	}
	return out
}

// Log writes the report, one line per provider.
func (r *Report) Log(logger *common.Logger) {
	if len(r.Providers) == 0 {
		logger.Warn("no custom_provider_map found in proxy config", "config", r.Path)
	} else {
		logger.Info("custom providers registered", "config", r.Path, "count", len(r.Providers))
		for i, p := range r.Providers {
			logger.Info("custom provider", "index", i, "provider", p.Name, "handler", p.Handler)
		}
	}
	logger.Info("models configured", "count", len(r.Models))
}
