package ledger

import (
	"errors"
	"testing"

	"github.com/tallyform/tallyform/internal/shared"
)

func TestNextOnUpsert_TransitionTable(t *testing.T) {
	cases := []struct {
		prior Status
		want  Status
	}{
		{"", StatusSubmitted},
		{StatusSubmitted, StatusSubmitted},
		{StatusResubmitted, StatusSubmitted},
		{StatusRejected, StatusResubmitted},
	}
	for _, tc := range cases {
		got, err := NextOnUpsert(tc.prior)
		if err != nil {
			t.Fatalf("NextOnUpsert(%q) returned error: %v", tc.prior, err)
		}
		if got != tc.want {
			t.Fatalf("NextOnUpsert(%q) = %q, want %q", tc.prior, got, tc.want)
		}
	}
}

func TestNextOnUpsert_ApprovedIsImmutable(t *testing.T) {
	_, err := NextOnUpsert(StatusApproved)
	if !errors.Is(err, shared.ErrImmutableRecord) {
		t.Fatalf("expected ErrImmutableRecord, got %v", err)
	}
}

func TestCanReview(t *testing.T) {
	if !CanReview(StatusSubmitted) || !CanReview(StatusResubmitted) {
		t.Fatal("submitted rows must be reviewable")
	}
	if CanReview(StatusApproved) || CanReview(StatusRejected) || CanReview("") {
		t.Fatal("only submitted rows are reviewable")
	}
}
