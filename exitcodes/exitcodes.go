// Package exitcodes defines the exit codes used by op-uat.
package exitcodes

// * Success (0): every sub-step of the step passed
// * StepFailure (1): a sub-step ran and failed, eg. user acceptance tests failed
// * RuntimeErr (2): the step could not be run, eg. invalid configuration or unwritable results
const (
	Success     = 0
	StepFailure = 1
	RuntimeErr  = 2
)
