package maven

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/vifraa/gopom"
	"golang.org/x/mod/semver"
)

// EffectivePOM is a parsed effective pom
type EffectivePOM struct {
	Path    string
	Project *gopom.Project

	configurations map[string]pluginConfiguration
}

// pluginConfiguration holds the parts of a <plugin><configuration> block this package reads.
// Plugin configuration is free-form XML, so it is decoded separately from the project model.
type pluginConfiguration struct {
	ReportsDirectory string `xml:"reportsDirectory"`
}

type rawPlugin struct {
	ArtifactID    string              `xml:"artifactId"`
	Configuration pluginConfiguration `xml:"configuration"`
}

type rawProject struct {
	Plugins []rawPlugin `xml:"build>plugins>plugin"`
}

// WriteEffectivePOM runs help:effective-pom for the given pom and settings, writing to out
func WriteEffectivePOM(ctx context.Context, runner Runner, binary, pomFile, settingsFile, out string, output io.Writer) error {
	if binary == "" {
		binary = DefaultBinary
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", out, err)
	}

	args := []string{
		EffectivePOMGoal,
		POMFileFlag, pomFile,
	}
	if settingsFile != "" {
		args = append(args, SettingsFlag, settingsFile)
	}
	args = append(args, PropertyPrefix+EffectivePOMOutputProperty+"="+out)

	if output == nil {
		output = io.Discard
	}
	if err := runner.Run(ctx, output, output, binary, args...); err != nil {
		return fmt.Errorf("failed to generate effective pom for %s: %w", pomFile, err)
	}
	return nil
}

// ParseEffectivePOM reads an effective pom written by help:effective-pom
func ParseEffectivePOM(path string) (*EffectivePOM, error) {
	project, err := gopom.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse effective pom %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read effective pom %s: %w", path, err)
	}
	var raw rawProject
	if err := xml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plugin configuration in %s: %w", path, err)
	}

	configurations := make(map[string]pluginConfiguration, len(raw.Plugins))
	for _, p := range raw.Plugins {
		configurations[strings.TrimSpace(p.ArtifactID)] = p.Configuration
	}

	return &EffectivePOM{
		Path:           path,
		Project:        project,
		configurations: configurations,
	}, nil
}

// Plugin returns the build plugin with the given artifactId, or nil
func (p *EffectivePOM) Plugin(artifactID string) *gopom.Plugin {
	if p.Project == nil || p.Project.Build == nil || p.Project.Build.Plugins == nil {
		return nil
	}
	plugins := *p.Project.Build.Plugins
	for i := range plugins {
		if plugins[i].ArtifactID != nil && strings.TrimSpace(*plugins[i].ArtifactID) == artifactID {
			return &plugins[i]
		}
	}
	return nil
}

// SurefireReportsDir returns the reportsDirectory configured for the surefire plugin, or ""
func (p *EffectivePOM) SurefireReportsDir() string {
	return strings.TrimSpace(p.configurations[SurefirePluginArtifactID].ReportsDirectory)
}

// ResolveSurefireReportsDir returns the directory surefire writes reports to for pomFile.
// A configured reportsDirectory wins; relative values are taken from the pom's directory.
func (p *EffectivePOM) ResolveSurefireReportsDir(pomFile string) (string, error) {
	absPOM, err := filepath.Abs(pomFile)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for pom '%s': %w", pomFile, err)
	}
	pomDir := filepath.Dir(absPOM)

	if dir := p.SurefireReportsDir(); dir != "" {
		if filepath.IsAbs(dir) {
			return dir, nil
		}
		return filepath.Join(pomDir, dir), nil
	}
	return filepath.Join(pomDir, filepath.FromSlash(DefaultSurefireReportsDir)), nil
}

// CheckPluginVersion logs a warning when a plugin version is older than minimum.
// Versions that are not semver-like (for example unresolved ${...} properties) are ignored.
// Returns true when the version is known to be too old.
func CheckPluginVersion(logger log.Logger, plugin *gopom.Plugin, minimum string) bool {
	if plugin == nil || plugin.Version == nil {
		return false
	}
	version := "v" + strings.TrimSpace(*plugin.Version)
	if !semver.IsValid(version) || !semver.IsValid("v"+minimum) {
		return false
	}
	if semver.Compare(version, "v"+minimum) >= 0 {
		return false
	}
	if logger != nil {
		artifactID := ""
		if plugin.ArtifactID != nil {
			artifactID = *plugin.ArtifactID
		}
		logger.Warn("Plugin version is older than the recommended minimum",
			"plugin", artifactID, "version", *plugin.Version, "minimum", minimum)
	}
	return true
}
