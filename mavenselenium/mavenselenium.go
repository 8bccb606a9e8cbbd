// Package mavenselenium implements the uat step with Maven driving Selenium tests through a
// Selenium Hub and generating Cucumber reports.
//
// Configuration keys:
//
//	fail-on-no-tests    required, default true: fail when Surefire produced no reports
//	pom-file            required, default pom.xml: pom used to run the tests
//	selenium-hub-url    required: URL of the Selenium Hub
//	target-host-url     target URL for the tests; wins over deployed-host-urls
//	deployed-host-urls  deployed URLs; the first is targeted when target-host-url is not given
//	uat-maven-profile   required, default integration-test: Maven profile running the tests
//
// plus maven-servers, maven-repositories and maven-mirrors for the generated settings.xml.
package mavenselenium

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/infra/op-uat/maven"
	"github.com/ethereum-optimism/infra/op-uat/metrics"
	"github.com/ethereum-optimism/infra/op-uat/reporting"
	"github.com/ethereum-optimism/infra/op-uat/step"
	"github.com/ethereum-optimism/infra/op-uat/types"
)

// ImplementerName is the name used in step configuration
const ImplementerName = "MavenSeleniumCucumber"

// Configuration keys
const (
	FailOnNoTestsKey    = "fail-on-no-tests"
	POMFileKey          = "pom-file"
	SeleniumHubURLKey   = "selenium-hub-url"
	TargetHostURLKey    = "target-host-url"
	DeployedHostURLsKey = "deployed-host-urls"
	ProfileKey          = "uat-maven-profile"
)

// Result artifacts
const (
	MavenOutputArtifact        = "maven-output"
	SurefireReportsArtifact    = "surefire-reports"
	CucumberReportHTMLArtifact = "cucumber-report-html"
	CucumberReportJSONArtifact = "cucumber-report-json"
)

// Files written to the step work directory
const (
	OutputFilename       = "mvn_test_output.txt"
	CucumberHTMLFilename = "cucumber.html"
	CucumberJSONFilename = "cucumber.json"
)

var defaultConfig = map[string]any{
	FailOnNoTestsKey: true,
	POMFileKey:       "pom.xml",
	ProfileKey:       "integration-test",
}

var requiredKeys = []string{
	FailOnNoTestsKey,
	POMFileKey,
	SeleniumHubURLKey,
	ProfileKey,
}

var errNoTargetURL = errors.New("Either 'target-host-url' or 'deployed-host-urls' needs to be supplied but neither were.")

// Dependencies are the process level collaborators of the implementer
type Dependencies struct {
	// Runner runs Maven; required
	Runner maven.Runner
	// Binary is the Maven executable, defaults to mvn
	Binary string
	// Stdout and Stderr receive Maven output in addition to the capture file. Nil means
	// capture only.
	Stdout io.Writer
	Stderr io.Writer
}

// MavenSeleniumCucumber is the uat step implementer
type MavenSeleniumCucumber struct {
	*step.Base
	deps Dependencies
}

var _ step.Implementer = (*MavenSeleniumCucumber)(nil)

// New creates the implementer for one configured sub-step
func New(opts step.Options, deps Dependencies) (*MavenSeleniumCucumber, error) {
	if deps.Runner == nil {
		return nil, errors.New("maven runner is required")
	}
	if deps.Binary == "" {
		deps.Binary = maven.DefaultBinary
	}
	base, err := step.NewBase(opts, defaultConfig)
	if err != nil {
		return nil, err
	}
	return &MavenSeleniumCucumber{Base: base, deps: deps}, nil
}

// Factory returns a step.Factory building the implementer with deps
func Factory(deps Dependencies) step.Factory {
	return func(opts step.Options) (step.Implementer, error) {
		return New(opts, deps)
	}
}

// Register adds the implementer to r
func Register(r *step.Registry, deps Dependencies) error {
	return r.Register(ImplementerName, Factory(deps))
}

func (m *MavenSeleniumCucumber) Defaults() map[string]any {
	return defaultConfig
}

func (m *MavenSeleniumCucumber) RequiredKeys() []string {
	return requiredKeys
}

// Validate checks the required keys and that a target URL can be resolved
func (m *MavenSeleniumCucumber) Validate() error {
	if err := m.ValidateRequiredKeys(m.RequiredKeys()); err != nil {
		return err
	}
	if !m.Value(TargetHostURLKey).IsSet() && !m.Value(DeployedHostURLsKey).IsSet() {
		return errNoTargetURL
	}
	return nil
}

// Run executes the user acceptance tests
func (m *MavenSeleniumCucumber) Run(ctx context.Context) (*types.StepResult, error) {
	result := m.NewResult()

	workDir, err := m.WorkDir()
	if err != nil {
		return result, err
	}

	settings, err := maven.ParseSettings(
		m.RawValue(maven.ServersConfigKey),
		m.RawValue(maven.RepositoriesConfigKey),
		m.RawValue(maven.MirrorsConfigKey),
	)
	if err != nil {
		return result, fmt.Errorf("invalid maven settings: %w", err)
	}
	settingsFile, err := settings.Write(workDir)
	if err != nil {
		return result, err
	}

	pomFile := m.StringValue(POMFileKey)
	seleniumHubURL := m.StringValue(SeleniumHubURLKey)
	profile := m.StringValue(ProfileKey)
	failOnNoTests, err := m.BoolValue(FailOnNoTestsKey)
	if err != nil {
		return result, err
	}

	targetBaseURL, err := m.targetBaseURL(result)
	if err != nil {
		return result, err
	}

	effectivePOMPath := filepath.Join(workDir, maven.EffectivePOMFilename)
	start := time.Now()
	err = maven.WriteEffectivePOM(ctx, m.deps.Runner, m.deps.Binary, pomFile, settingsFile, effectivePOMPath, m.deps.Stdout)
	metrics.RecordMavenInvocation(maven.EffectivePOMGoal, err, time.Since(start))
	if err != nil {
		return result, err
	}
	effectivePOM, err := maven.ParseEffectivePOM(effectivePOMPath)
	if err != nil {
		return result, err
	}

	surefire := effectivePOM.Plugin(maven.SurefirePluginArtifactID)
	if surefire == nil {
		result.Fail(fmt.Sprintf("Unit test dependency %q missing from effective pom (%s).",
			maven.SurefirePluginArtifactID, effectivePOMPath))
		return result, nil
	}
	maven.CheckPluginVersion(m.Log(), surefire, maven.MinimumSurefireVersion)

	reportsDir, err := effectivePOM.ResolveSurefireReportsDir(pomFile)
	if err != nil {
		return result, err
	}

	cucumberHTML := filepath.Join(workDir, CucumberHTMLFilename)
	cucumberJSON := filepath.Join(workDir, CucumberJSONFilename)
	outputPath := filepath.Join(workDir, OutputFilename)

	args := []string{
		maven.CleanGoal,
		maven.TestGoal,
		maven.ProfileFlagPrefix + profile,
		maven.PropertyPrefix + "selenium.hub.url=" + seleniumHubURL,
		maven.PropertyPrefix + "target.base.url=" + targetBaseURL,
		maven.PropertyPrefix + "cucumber.plugin=html:" + cucumberHTML + ",json:" + cucumberJSON,
		maven.POMFileFlag, pomFile,
		maven.SettingsFlag, settingsFile,
	}

	runErr := m.runTests(ctx, outputPath, args)
	switch {
	case maven.IsExitError(runErr):
		m.Log().Warn("Maven reported test failures", "err", runErr)
		result.Fail("User acceptance test failures. See 'maven-output', 'surefire-reports', " +
			"'cucumber-report-html', and 'cucumber-report-json' report artifacts for details.")
	case runErr != nil:
		// maven never ran to completion; the output file still says why
		m.addArtifacts(result, profile, outputPath, reportsDir, cucumberHTML, cucumberJSON)
		return result, runErr
	case !hasReports(reportsDir):
		if failOnNoTests {
			result.Fail(fmt.Sprintf("No user acceptance tests defined using maven profile (%s).", profile))
		} else {
			result.Message = fmt.Sprintf("No user acceptance tests defined using maven profile (%s),"+
				" but 'fail-on-no-tests' is False.", profile)
		}
	}

	m.addArtifacts(result, profile, outputPath, reportsDir, cucumberHTML, cucumberJSON)
	m.summarize(result, workDir, reportsDir, cucumberJSON)
	return result, nil
}

// targetBaseURL prefers target-host-url, then the first deployed-host-urls entry
func (m *MavenSeleniumCucumber) targetBaseURL(result *types.StepResult) (string, error) {
	if target := m.StringValue(TargetHostURLKey); target != "" {
		return target, nil
	}
	deployed := m.StringListValue(DeployedHostURLsKey)
	if len(deployed) == 0 {
		return "", errNoTargetURL
	}
	if len(deployed) > 1 {
		result.Message = fmt.Sprintf("Given more then one deployed host URL (%v), targeting first one (%s)"+
			" for user acceptance test (UAT).", deployed, deployed[0])
		m.Log().Warn(result.Message)
	}
	return deployed[0], nil
}

func (m *MavenSeleniumCucumber) runTests(ctx context.Context, outputPath string, args []string) error {
	capture, err := maven.CaptureOutput(outputPath, m.deps.Stdout, m.deps.Stderr)
	if err != nil {
		return err
	}

	m.Log().Info("Running user acceptance tests", "binary", m.deps.Binary, "args", args, "output", outputPath)
	start := time.Now()
	runErr := m.deps.Runner.Run(ctx, capture.Stdout, capture.Stderr, m.deps.Binary, args...)
	metrics.RecordMavenInvocation(maven.TestGoal, runErr, time.Since(start))

	if err := capture.Close(); err != nil {
		m.Log().Error("Failed to close maven output file", "path", outputPath, "err", err)
	}
	return runErr
}

func (m *MavenSeleniumCucumber) addArtifacts(result *types.StepResult, profile, outputPath, reportsDir, cucumberHTML, cucumberJSON string) {
	command := fmt.Sprintf("'mvn -P%s test'", profile)
	result.AddArtifact(MavenOutputArtifact, outputPath,
		fmt.Sprintf("Standard out and standard error by %s.", command))
	result.AddArtifact(SurefireReportsArtifact, reportsDir,
		fmt.Sprintf("Surefire reports generated by %s.", command))
	result.AddArtifact(CucumberReportHTMLArtifact, cucumberHTML,
		fmt.Sprintf("Cucumber (HTML) report generated by %s.", command))
	result.AddArtifact(CucumberReportJSONArtifact, cucumberJSON,
		fmt.Sprintf("Cucumber (JSON) report generated by %s.", command))
}

// summarize attaches the report summary to the result. Failures are logged only.
func (m *MavenSeleniumCucumber) summarize(result *types.StepResult, workDir, reportsDir, cucumberJSON string) {
	summary, err := reporting.Summarize(reportsDir, cucumberJSON)
	if err != nil {
		m.Log().Warn("Failed to summarize test reports", "err", err)
		metrics.RecordErrorDetails("summarize", err)
		return
	}
	result.Summary = summary.Table()
	if summary.Failed() && result.Success {
		m.Log().Warn("Test reports record failures although maven succeeded", "surefireReports", reportsDir, "cucumberReport", cucumberJSON)
	}
	if _, err := summary.WriteFile(workDir); err != nil {
		m.Log().Warn("Failed to write test report summary", "err", err)
	}

	surefireCounts := map[string]int{
		"passed":  summary.Surefire.Total.Passed(),
		"failed":  summary.Surefire.Total.Failures,
		"errors":  summary.Surefire.Total.Errors,
		"skipped": summary.Surefire.Total.Skipped,
	}
	metrics.RecordTestCounts(result.Environment, "surefire", surefireCounts)
	metrics.RecordTestCounts(result.Environment, "cucumber", summary.Cucumber.Scenarios)
}

// hasReports returns true if dir exists and holds at least one entry
func hasReports(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
