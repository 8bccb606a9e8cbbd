package maven

// Maven invocation constants
const (
	// DefaultBinary is the Maven executable looked up on PATH
	DefaultBinary = "mvn"

	// Goals and flags
	CleanGoal         = "clean"
	TestGoal          = "test"
	EffectivePOMGoal  = "help:effective-pom"
	ProfileFlagPrefix = "-P"
	PropertyPrefix    = "-D"
	POMFileFlag       = "-f"
	SettingsFlag      = "-s"

	// Output file of help:effective-pom
	EffectivePOMOutputProperty = "output"
	EffectivePOMFilename       = "effective-pom.xml"

	// Generated settings file
	SettingsFilename = "settings.xml"

	// Surefire
	SurefirePluginArtifactID = "maven-surefire-plugin"
	// DefaultSurefireReportsDir is relative to the directory holding the pom
	DefaultSurefireReportsDir = "target/surefire-reports"
	// MinimumSurefireVersion is the first release that discovers JUnit Platform tests
	MinimumSurefireVersion = "2.22.0"
)
