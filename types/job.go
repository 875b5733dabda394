package types

// JobKind defines the kind of work a job carries
type JobKind string

// Job kinds
const (
	JobExecute JobKind = "execute"
	JobProblem JobKind = "problem"
)

// JobStatus defines the status reported when polling a job
type JobStatus string

// Job statuses, not_found is only ever an answer and never stored
const (
	JobPending  JobStatus = "pending"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
	JobNotFound JobStatus = "not_found"
)
