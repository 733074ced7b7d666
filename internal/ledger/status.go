package ledger

import (
	"fmt"

	"github.com/tallyform/tallyform/internal/shared"
)

// Status is a submission row's lifecycle state. An empty status cell
// means the row has never been submitted.
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusResubmitted Status = "RESUBMITTED"
	StatusRejected    Status = "REJECTED"
	StatusApproved    Status = "APPROVED"
)

// NextOnUpsert applies the upsert transition rule. Approved rows are
// immutable; a rejected row becomes resubmitted; everything else lands
// on submitted.
func NextOnUpsert(prior Status) (Status, error) {
	switch prior {
	case StatusApproved:
		return "", fmt.Errorf("%w", shared.ErrImmutableRecord)
	case StatusRejected:
		return StatusResubmitted, nil
	default:
		return StatusSubmitted, nil
	}
}

// CanReview reports whether a collaborator may transition the row into
// APPROVED or REJECTED.
func CanReview(prior Status) bool {
	return prior == StatusSubmitted || prior == StatusResubmitted
}
