package constants

// RunStatus is the canonical status for rows in comparison_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning    RunStatus = "RUNNING"
	RunStatusMatched    RunStatus = "MATCHED"
	RunStatusMismatched RunStatus = "MISMATCHED"
	RunStatusFailed     RunStatus = "FAILED" // terminal failure, no verdict
)

// StatusFor maps a verdict to its terminal status.
func StatusFor(matched bool) RunStatus {
	if matched {
		return RunStatusMatched
	}
	return RunStatusMismatched
}
