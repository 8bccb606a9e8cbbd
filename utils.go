package uat

import (
	"github.com/ethereum-optimism/infra/op-uat/types"
)

// getResultString returns a marked string representing the step result
func getResultString(status types.StepStatus) string {
	switch status {
	case types.StepStatusPass:
		return "✓ pass"
	default:
		return "✗ fail"
	}
}
