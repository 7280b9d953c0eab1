package domain

// ReportOutcome is what the extension sends back for a claimed job.
type ReportOutcome string

const (
	ReportOutcomeSuccess              ReportOutcome = "SUCCESS"
	ReportOutcomeError                ReportOutcome = "ERROR"
	ReportOutcomeProgress             ReportOutcome = "PROGRESS"
	ReportOutcomeVerificationRequired ReportOutcome = "VERIFICATION_REQUIRED"
)

// IsValid reports whether o is a known report outcome.
func (o ReportOutcome) IsValid() bool {
	switch o {
	case ReportOutcomeSuccess, ReportOutcomeError, ReportOutcomeProgress, ReportOutcomeVerificationRequired:
		return true
	}
	return false
}

// Status returns the job status a terminal or interrupting outcome maps
// to. PROGRESS carries no status change and returns ok = false.
func (o ReportOutcome) Status() (status JobStatus, ok bool) {
	switch o {
	case ReportOutcomeSuccess:
		return JobStatusCompleted, true
	case ReportOutcomeError:
		return JobStatusFailed, true
	case ReportOutcomeVerificationRequired:
		return JobStatusPendingVerification, true
	}
	return "", false
}
