package constants

// Evaluation lifecycle. Transitions are one-directional; terminal states
// (Completed/Failed/Aborted) never regress.
const (
	EvaluationStatusQueued     int8 = 0
	EvaluationStatusEvaluating int8 = 1
	EvaluationStatusBuilding   int8 = 2
	EvaluationStatusCompleted  int8 = 3
	EvaluationStatusFailed     int8 = 4
	EvaluationStatusAborted    int8 = 5
)

// Build lifecycle. ServerID is set exactly while the build is in
// Assigned/Running/Completed/Failed.
const (
	BuildStatusQueued    int8 = 0
	BuildStatusAssigned  int8 = 1
	BuildStatusRunning   int8 = 2
	BuildStatusCompleted int8 = 3
	BuildStatusFailed    int8 = 4
	BuildStatusAborted   int8 = 5
)

var evaluationStatusNames = map[int8]string{
	EvaluationStatusQueued:     "Queued",
	EvaluationStatusEvaluating: "Evaluating",
	EvaluationStatusBuilding:   "Building",
	EvaluationStatusCompleted:  "Completed",
	EvaluationStatusFailed:     "Failed",
	EvaluationStatusAborted:    "Aborted",
}

var buildStatusNames = map[int8]string{
	BuildStatusQueued:    "Queued",
	BuildStatusAssigned:  "Assigned",
	BuildStatusRunning:   "Running",
	BuildStatusCompleted: "Completed",
	BuildStatusFailed:    "Failed",
	BuildStatusAborted:   "Aborted",
}

// EvaluationStatusToString returns the display name of an evaluation status.
func EvaluationStatusToString(status int8) string {
	if name, ok := evaluationStatusNames[status]; ok {
		return name
	}
	return "Unknown"
}

// BuildStatusToString returns the display name of a build status.
func BuildStatusToString(status int8) string {
	if name, ok := buildStatusNames[status]; ok {
		return name
	}
	return "Unknown"
}

// IsEvaluationTerminal reports whether an evaluation status is final.
func IsEvaluationTerminal(status int8) bool {
	return status == EvaluationStatusCompleted ||
		status == EvaluationStatusFailed ||
		status == EvaluationStatusAborted
}

// IsBuildTerminal reports whether a build status is final.
func IsBuildTerminal(status int8) bool {
	return status == BuildStatusCompleted ||
		status == BuildStatusFailed ||
		status == BuildStatusAborted
}

// BuildStatusHoldsServer reports whether a build in this status keeps its
// server assignment.
func BuildStatusHoldsServer(status int8) bool {
	return status == BuildStatusAssigned ||
		status == BuildStatusRunning ||
		status == BuildStatusCompleted ||
		status == BuildStatusFailed
}
