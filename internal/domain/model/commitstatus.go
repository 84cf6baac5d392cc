package model

// CommitState is one of the three states the commit status API accepts from
// this system.
type CommitState string

const (
	CommitStatePending CommitState = "pending"
	CommitStateSuccess CommitState = "success"
	CommitStateFailure CommitState = "failure"
)

// CommitStatus is a labeled state attached to a commit. The Context string
// identifies the (workflow, job) pair; GitHub overwrites any prior status with
// the same context on the same commit, so repeated posts update rather than
// accumulate.
type CommitStatus struct {
	SHA         string
	State       CommitState
	Description string
	Context     string
	TargetURL   string
}

// Terminal reports whether the state is final. A terminal status must never
// be overwritten by a later pending write for the same context.
func (s CommitState) Terminal() bool {
	return s == CommitStateSuccess || s == CommitStateFailure
}

// StatusState maps a job or run (status, conclusion) pair onto a commit state.
// The mapping is total: anything not yet completed is pending, a successful
// conclusion is success, and every other conclusion (failure, cancelled,
// timed_out, skipped, action_required, ...) is failure.
func StatusState(status, conclusion string) CommitState {
	if status != RunStatusCompleted || conclusion == "" {
		return CommitStatePending
	}
	if conclusion == ConclusionSuccess {
		return CommitStateSuccess
	}
	return CommitStateFailure
}
