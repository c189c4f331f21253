package repository

import "sort"

// Pure step-sequencing logic. These functions never touch the database; the
// store and the services call them to derive state from step statuses.

// orderedCopy returns steps sorted by StepOrder ascending without mutating
// the caller's slice.
func orderedCopy(steps []*ApprovalStep) []*ApprovalStep {
	out := make([]*ApprovalStep, len(steps))
	copy(out, steps)
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out
}

// ActiveStep returns the lowest-order pending step whose predecessors are all
// approved, or nil when no step is decidable (terminal or stalled workflow).
// At most one step can ever satisfy this.
func ActiveStep(steps []*ApprovalStep) *ApprovalStep {
	for _, step := range orderedCopy(steps) {
		switch step.Status {
		case StepStatusApproved:
			continue
		case StepStatusPending:
			return step
		default:
			// A rejected or revision_requested step halts the chain.
			return nil
		}
	}
	return nil
}

// DeriveStatus maps the full set of step statuses to the request's overall
// status. Evaluated in fixed precedence: a rejection anywhere dominates,
// then a revision request, then full approval, then partial progress.
func DeriveStatus(steps []*ApprovalStep) RequestStatus {
	var approved, pending, revision int
	for _, step := range steps {
		switch step.Status {
		case StepStatusRejected:
			return RequestStatusRejected
		case StepStatusRevisionRequested:
			revision++
		case StepStatusApproved:
			approved++
		case StepStatusPending:
			pending++
		}
	}
	switch {
	case revision > 0:
		return RequestStatusRevisionRequested
	case len(steps) > 0 && approved == len(steps):
		return RequestStatusApproved
	case approved > 0:
		return RequestStatusUnderReview
	default:
		return RequestStatusSubmitted
	}
}

// FirstRevisionStep returns the lowest-order step in revision_requested
// status, or nil. When DeriveStatus reports revision_requested this is
// guaranteed to find a step.
func FirstRevisionStep(steps []*ApprovalStep) *ApprovalStep {
	for _, step := range orderedCopy(steps) {
		if step.Status == StepStatusRevisionRequested {
			return step
		}
	}
	return nil
}
