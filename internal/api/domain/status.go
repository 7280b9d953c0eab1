package domain

// JobStatus is the canonical status of a cross-listing job. The stored
// value is the exact string; never compare against raw literals elsewhere.
type JobStatus string

const (
	JobStatusQueued              JobStatus = "QUEUED"
	JobStatusProcessing          JobStatus = "PROCESSING"
	JobStatusPendingVerification JobStatus = "PENDING_VERIFICATION"
	JobStatusCompleted           JobStatus = "COMPLETED"
	JobStatusFailed              JobStatus = "FAILED"
)

// transitions is the legal edge set of the job state machine.
// Terminal states have no outgoing edges.
var transitions = map[JobStatus][]JobStatus{
	JobStatusQueued: {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {
		JobStatusCompleted,
		JobStatusFailed,
		JobStatusPendingVerification,
	},
	// Re-entered after the user completes the out-of-band verification step.
	JobStatusPendingVerification: {JobStatusProcessing, JobStatusFailed},
	JobStatusCompleted:           {},
	JobStatusFailed:              {},
}

// IsValid reports whether s is one of the known statuses.
func (s JobStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s is an absorbing state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether the edge s -> next exists in the
// state machine. Every status write must pass this guard before it
// reaches storage.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
