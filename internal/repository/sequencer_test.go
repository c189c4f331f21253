package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steps(statuses ...StepStatus) []*ApprovalStep {
	out := make([]*ApprovalStep, len(statuses))
	for i, st := range statuses {
		out[i] = &ApprovalStep{ID: string(rune('a' + i)), StepOrder: i + 1, Status: st}
	}
	return out
}

func TestActiveStep(t *testing.T) {
	tests := []struct {
		name      string
		steps     []*ApprovalStep
		wantOrder int // 0 means no active step
	}{
		{"all pending", steps(StepStatusPending, StepStatusPending), 1},
		{"first approved", steps(StepStatusApproved, StepStatusPending), 2},
		{"all approved", steps(StepStatusApproved, StepStatusApproved), 0},
		{"rejected halts chain", steps(StepStatusApproved, StepStatusRejected, StepStatusPending), 0},
		{"revision halts chain", steps(StepStatusRevisionRequested, StepStatusPending), 0},
		{"single pending", steps(StepStatusPending), 1},
		{"no steps", nil, 0},
		{"middle pending", steps(StepStatusApproved, StepStatusPending, StepStatusPending), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActiveStep(tt.steps)
			if tt.wantOrder == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantOrder, got.StepOrder)
		})
	}
}

func TestActiveStepIgnoresInputOrder(t *testing.T) {
	shuffled := []*ApprovalStep{
		{ID: "c", StepOrder: 3, Status: StepStatusPending},
		{ID: "a", StepOrder: 1, Status: StepStatusApproved},
		{ID: "b", StepOrder: 2, Status: StepStatusPending},
	}

	got := ActiveStep(shuffled)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.StepOrder)
	// Input slice order must be left alone.
	assert.Equal(t, "c", shuffled[0].ID)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		steps []*ApprovalStep
		want  RequestStatus
	}{
		{"all pending", steps(StepStatusPending, StepStatusPending), RequestStatusSubmitted},
		{"partial approval", steps(StepStatusApproved, StepStatusPending), RequestStatusUnderReview},
		{"all approved", steps(StepStatusApproved, StepStatusApproved), RequestStatusApproved},
		{"single approved", steps(StepStatusApproved), RequestStatusApproved},
		{"revision requested", steps(StepStatusApproved, StepStatusRevisionRequested, StepStatusPending), RequestStatusRevisionRequested},
		{"rejection dominates revision", steps(StepStatusRejected, StepStatusRevisionRequested), RequestStatusRejected},
		{"rejection dominates later approvals", steps(StepStatusRejected, StepStatusApproved, StepStatusApproved), RequestStatusRejected},
		{"late rejection", steps(StepStatusApproved, StepStatusApproved, StepStatusRejected), RequestStatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.steps))
		})
	}
}

// A rejection anywhere must dominate regardless of the status of every other
// step, independent of step count and position.
func TestDeriveStatusRejectionDominates(t *testing.T) {
	others := []StepStatus{StepStatusPending, StepStatusApproved, StepStatusRevisionRequested}
	for n := 1; n <= 4; n++ {
		for pos := 0; pos < n; pos++ {
			for _, other := range others {
				ss := make([]StepStatus, n)
				for i := range ss {
					ss[i] = other
				}
				ss[pos] = StepStatusRejected
				assert.Equal(t, RequestStatusRejected, DeriveStatus(steps(ss...)),
					"n=%d pos=%d filler=%s", n, pos, other)
			}
		}
	}
}

func TestFirstRevisionStep(t *testing.T) {
	t.Run("finds lowest order", func(t *testing.T) {
		got := FirstRevisionStep(steps(StepStatusApproved, StepStatusRevisionRequested, StepStatusRevisionRequested))
		require.NotNil(t, got)
		assert.Equal(t, 2, got.StepOrder)
	})

	t.Run("none present", func(t *testing.T) {
		assert.Nil(t, FirstRevisionStep(steps(StepStatusApproved, StepStatusPending)))
	})
}

func TestAtMostOneActiveStep(t *testing.T) {
	// Enumerate every status combination for 3 steps and count how many steps
	// would pass the active-step predicate.
	all := []StepStatus{StepStatusPending, StepStatusApproved, StepStatusRejected, StepStatusRevisionRequested}
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				ss := steps(a, b, c)
				active := ActiveStep(ss)
				count := 0
				for _, s := range ss {
					if candidateActive(ss, s) {
						count++
					}
				}
				assert.LessOrEqual(t, count, 1, "%v/%v/%v", a, b, c)
				if count == 1 {
					require.NotNil(t, active)
				} else {
					assert.Nil(t, active)
				}
			}
		}
	}
}

// candidateActive re-states the active-step definition directly from the
// derivation rule, as an independent oracle for the enumeration test.
func candidateActive(all []*ApprovalStep, s *ApprovalStep) bool {
	if s.Status != StepStatusPending {
		return false
	}
	for _, other := range all {
		if other.StepOrder < s.StepOrder && other.Status != StepStatusApproved {
			return false
		}
	}
	return true
}
