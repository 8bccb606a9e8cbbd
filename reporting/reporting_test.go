package reporting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginSuite = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="com.example.uat.LoginIT" time="1,204.5" tests="4" errors="0" skipped="1" failures="1">
  <testcase name="login works" classname="com.example.uat.LoginIT" time="1.2"/>
</testsuite>`

const searchSuite = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="com.example.uat.SearchIT" time="0.25" tests="2" errors="1" skipped="0" failures="0">
</testsuite>`

const cucumberReport = `[
  {
    "name": "Login",
    "elements": [
      {"type": "background", "steps": [{"result": {"status": "passed"}}]},
      {"type": "scenario", "steps": [{"result": {"status": "passed"}}, {"result": {"status": "passed"}}]},
      {"type": "scenario", "steps": [{"result": {"status": "passed"}}, {"result": {"status": "failed"}}, {"result": {"status": "skipped"}}]}
    ]
  },
  {
    "name": "Search",
    "elements": [
      {"type": "scenario", "steps": [{"result": {"status": "undefined"}}, {"result": {"status": "skipped"}}]},
      {"type": "scenario", "steps": [{"result": {}}]}
    ]
  }
]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseSurefireDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "TEST-com.example.uat.LoginIT.xml"), loginSuite)
	writeFile(t, filepath.Join(dir, "TEST-com.example.uat.SearchIT.xml"), searchSuite)
	writeFile(t, filepath.Join(dir, "com.example.uat.LoginIT.txt"), "not a report")

	summary, err := ParseSurefireDir(dir)
	require.NoError(t, err)
	require.Len(t, summary.Suites, 2)

	login := summary.Suites[0]
	assert.Equal(t, "com.example.uat.LoginIT", login.Name)
	assert.Equal(t, 4, login.Tests)
	assert.Equal(t, 1, login.Failures)
	assert.Equal(t, 1, login.Skipped)
	assert.Equal(t, 2, login.Passed())
	assert.Equal(t, 1204500*time.Millisecond, login.Time)

	assert.Equal(t, 6, summary.Total.Tests)
	assert.Equal(t, 1, summary.Total.Failures)
	assert.Equal(t, 1, summary.Total.Errors)
	assert.Equal(t, 3, summary.Total.Passed())
}

func TestParseSurefireDirMissingOrBroken(t *testing.T) {
	summary, err := ParseSurefireDir(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, summary.Suites)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "TEST-broken.xml"), `<testsuite tests="many"></testsuite>`)
	_, err = ParseSurefireDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tests count")
}

func TestParseCucumberJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cucumber.json")
	writeFile(t, path, cucumberReport)

	summary, err := ParseCucumberJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Features)

	assert.Equal(t, 1, summary.Scenarios[StatusPassed])
	assert.Equal(t, 1, summary.Scenarios[StatusFailed])
	assert.Equal(t, 2, summary.Scenarios[StatusUndefined])
	assert.Equal(t, 4, summary.Scenarios.Total())

	assert.Equal(t, 4, summary.Steps[StatusPassed])
	assert.Equal(t, 1, summary.Steps[StatusFailed])
	assert.Equal(t, 2, summary.Steps[StatusSkipped])
	assert.Equal(t, 2, summary.Steps[StatusUndefined])
}

func TestParseCucumberJSONEdgeCases(t *testing.T) {
	summary, err := ParseCucumberJSON(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Features)

	empty := filepath.Join(t.TempDir(), "empty.json")
	writeFile(t, empty, "")
	_, err = ParseCucumberJSON(empty)
	require.NoError(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.json")
	writeFile(t, invalid, "{not json")
	_, err = ParseCucumberJSON(invalid)
	require.Error(t, err)

	object := filepath.Join(t.TempDir(), "object.json")
	writeFile(t, object, `{"name": "x"}`)
	_, err = ParseCucumberJSON(object)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a list of features")
}

func TestSummaryTableAndFile(t *testing.T) {
	dir := t.TempDir()
	reports := filepath.Join(dir, "surefire-reports")
	writeFile(t, filepath.Join(reports, "TEST-com.example.uat.LoginIT.xml"), loginSuite)
	cucumber := filepath.Join(dir, "cucumber.json")
	writeFile(t, cucumber, cucumberReport)

	summary, err := Summarize(reports, cucumber)
	require.NoError(t, err)
	assert.True(t, summary.Failed())

	rendered := summary.Table()
	assert.Contains(t, rendered, "Surefire Reports")
	assert.Contains(t, rendered, "com.example.uat.LoginIT")
	assert.Contains(t, rendered, "Cucumber Report (2 features)")
	assert.Contains(t, rendered, "Scenarios")

	path, err := summary.WriteFile(filepath.Join(dir, "uat"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "uat", SummaryFilename), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rendered, string(content))
}

func TestSummaryPassing(t *testing.T) {
	summary, err := Summarize(filepath.Join(t.TempDir(), "none"), filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.False(t, summary.Failed())
}
