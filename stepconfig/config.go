// Package stepconfig loads the layered step-runner configuration and answers value lookups
// with runtime, environment and global precedence.
package stepconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

const (
	RootKey                      = "step-runner-config"
	GlobalDefaultsKey            = "global-defaults"
	GlobalEnvironmentDefaultsKey = "global-environment-defaults"
	ImplementerKey               = "implementer"
	NameKey                      = "name"
	ConfigKey                    = "config"
	EnvironmentConfigKey         = "environment-config"

	configFilePattern = "**/*.{yml,yaml}"
)

// Config is the merged step-runner configuration
type Config struct {
	Sources []string

	globalDefaults            map[string]*Value
	globalEnvironmentDefaults map[string]map[string]*Value
	steps                     map[string][]*SubStepConfig
}

// SubStepConfig is the configuration of one implementer configured for a step
type SubStepConfig struct {
	StepName    string
	Name        string
	Implementer string

	config            map[string]*Value
	environmentConfig map[string]map[string]*Value
	parent            *Config
}

// Load reads YAML files, or directories searched recursively for YAML files, and merges them
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}

	var files []string
	for _, p := range paths {
		found, err := expandPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no configuration files found in %v", paths)
	}

	m := newMerger()
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		if err := m.addDocument(file, content); err != nil {
			return nil, err
		}
	}

	cfg, err := m.build()
	if err != nil {
		return nil, err
	}
	cfg.Sources = files
	return cfg, nil
}

// Parse builds a Config from a single in-memory document
func Parse(source string, content []byte) (*Config, error) {
	m := newMerger()
	if err := m.addDocument(source, content); err != nil {
		return nil, err
	}
	cfg, err := m.build()
	if err != nil {
		return nil, err
	}
	cfg.Sources = []string{source}
	return cfg, nil
}

func expandPath(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config path %s: %w", p, err)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(p), configFilePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search config directory %s: %w", p, err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		files = append(files, filepath.Join(p, filepath.FromSlash(match)))
	}
	return files, nil
}

// SubSteps returns the sub-steps configured for a step, in declaration order
func (c *Config) SubSteps(step string) []*SubStepConfig {
	return c.steps[step]
}

// StepNames returns the names of all configured steps, sorted
func (c *Config) StepNames() []string {
	names := make([]string, 0, len(c.steps))
	for name := range c.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GlobalDefault returns a global default value, or nil
func (c *Config) GlobalDefault(key string) *Value {
	return c.globalDefaults[key]
}

// Value resolves a key for this sub-step. Runtime values win, followed by the sub-step's
// environment config, the sub-step config, the global environment defaults and finally
// the global defaults. Returns nil when no layer defines the key.
func (s *SubStepConfig) Value(key, environment string, runtime map[string]any) *Value {
	if raw, ok := runtime[key]; ok && raw != nil {
		return &Value{Raw: raw, Source: "runtime"}
	}

	layers := make([]map[string]*Value, 0, 4)
	if environment != "" {
		layers = append(layers, s.environmentConfig[environment])
	}
	layers = append(layers, s.config)
	if s.parent != nil {
		if environment != "" {
			layers = append(layers, s.parent.globalEnvironmentDefaults[environment])
		}
		layers = append(layers, s.parent.globalDefaults)
	}

	for _, layer := range layers {
		if v, ok := layer[key]; ok && v != nil && v.Raw != nil {
			return v
		}
	}
	return nil
}

// merger deep-merges configuration documents, remembering which file defined each key
type merger struct {
	root    map[string]any
	sources map[string]string
}

func newMerger() *merger {
	return &merger{
		root:    make(map[string]any),
		sources: make(map[string]string),
	}
}

func (m *merger) addDocument(source string, content []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", source, err)
	}
	raw, ok := doc[RootKey]
	if !ok {
		return fmt.Errorf("config file %s is missing the top level %q key", source, RootKey)
	}
	if raw == nil {
		return nil
	}
	body, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("config file %s: %q must be a mapping", source, RootKey)
	}
	return m.merge(m.root, body, "", source)
}

func (m *merger) merge(dst, src map[string]any, prefix, source string) error {
	for key, val := range src {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		existing, ok := dst[key]
		if !ok {
			dst[key] = val
			m.sources[path] = source
			continue
		}

		existingMap, existingIsMap := existing.(map[string]any)
		valMap, valIsMap := val.(map[string]any)
		if existingIsMap && valIsMap {
			if err := m.merge(existingMap, valMap, path, source); err != nil {
				return err
			}
			continue
		}

		if reflect.DeepEqual(existing, val) {
			continue
		}
		return fmt.Errorf("conflicting values for %q defined in %s and %s", path, m.fileOf(path), source)
	}
	return nil
}

func (m *merger) build() (*Config, error) {
	cfg := &Config{
		globalDefaults:            make(map[string]*Value),
		globalEnvironmentDefaults: make(map[string]map[string]*Value),
		steps:                     make(map[string][]*SubStepConfig),
	}

	for key, raw := range m.root {
		switch key {
		case GlobalDefaultsKey:
			values, err := m.values(raw, key)
			if err != nil {
				return nil, err
			}
			cfg.globalDefaults = values
		case GlobalEnvironmentDefaultsKey:
			envs, err := m.environmentValues(raw, key)
			if err != nil {
				return nil, err
			}
			cfg.globalEnvironmentDefaults = envs
		default:
			subSteps, err := m.subSteps(cfg, key, raw)
			if err != nil {
				return nil, err
			}
			cfg.steps[key] = subSteps
		}
	}
	return cfg, nil
}

func (m *merger) subSteps(cfg *Config, step string, raw any) ([]*SubStepConfig, error) {
	var entries []any
	switch t := raw.(type) {
	case map[string]any:
		entries = []any{t}
	case []any:
		entries = t
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("step %q: expected a mapping or a list of mappings, got %T", step, raw)
	}

	subSteps := make([]*SubStepConfig, 0, len(entries))
	for i, entry := range entries {
		entryMap, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %q sub-step %d: expected a mapping, got %T", step, i, entry)
		}
		path := step

		implementer, _ := entryMap[ImplementerKey].(string)
		if strings.TrimSpace(implementer) == "" {
			return nil, fmt.Errorf("step %q sub-step %d: %q is required", step, i, ImplementerKey)
		}
		name, _ := entryMap[NameKey].(string)
		if name == "" {
			name = implementer
		}

		config, err := m.values(entryMap[ConfigKey], path+"."+ConfigKey)
		if err != nil {
			return nil, err
		}
		envConfig, err := m.environmentValues(entryMap[EnvironmentConfigKey], path+"."+EnvironmentConfigKey)
		if err != nil {
			return nil, err
		}

		subSteps = append(subSteps, &SubStepConfig{
			StepName:          step,
			Name:              name,
			Implementer:       implementer,
			config:            config,
			environmentConfig: envConfig,
			parent:            cfg,
		})
	}
	return subSteps, nil
}

func (m *merger) values(raw any, path string) (map[string]*Value, error) {
	out := make(map[string]*Value)
	if raw == nil {
		return out, nil
	}
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q: expected a mapping, got %T", path, raw)
	}
	for key, val := range rawMap {
		out[key] = &Value{Raw: val, Source: m.sourceOf(path + "." + key)}
	}
	return out, nil
}

func (m *merger) environmentValues(raw any, path string) (map[string]map[string]*Value, error) {
	out := make(map[string]map[string]*Value)
	if raw == nil {
		return out, nil
	}
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q: expected a mapping of environments, got %T", path, raw)
	}
	for env, envRaw := range rawMap {
		values, err := m.values(envRaw, path+"."+env)
		if err != nil {
			return nil, err
		}
		out[env] = values
	}
	return out, nil
}

func (m *merger) sourceOf(path string) string {
	if file := m.fileOf(path); file != "" {
		return file + ":" + path
	}
	return path
}

// fileOf finds the file that defined a key path, walking up to the closest recorded parent
func (m *merger) fileOf(path string) string {
	for p := path; p != ""; {
		if s, ok := m.sources[p]; ok {
			return s
		}
		idx := strings.LastIndex(p, ".")
		if idx < 0 {
			break
		}
		p = p[:idx]
	}
	return ""
}
