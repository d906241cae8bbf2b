package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{ApplicationStatusSubmitted, ApplicationStatusUnderReview, true},
		{ApplicationStatusUnderReview, ApplicationStatusInterviewScheduled, true},
		{ApplicationStatusInterviewScheduled, ApplicationStatusConditionalOffer, true},
		{ApplicationStatusConditionalOffer, ApplicationStatusOffered, true},
		{ApplicationStatusOffered, ApplicationStatusEnrolled, true},

		// Withdrawal paths
		{ApplicationStatusSubmitted, ApplicationStatusWithdrawn, true},
		{ApplicationStatusUnderReview, ApplicationStatusWithdrawn, true},
		{ApplicationStatusEnrolled, ApplicationStatusWithdrawn, true},

		// Invalid transitions
		{ApplicationStatusSubmitted, ApplicationStatusEnrolled, false},
		{ApplicationStatusRejected, ApplicationStatusUnderReview, false},
		{ApplicationStatusWithdrawn, ApplicationStatusSubmitted, false},
		{ApplicationStatusOffered, ApplicationStatusRejected, false},
		{"nonexistent", ApplicationStatusUnderReview, false},
		{ApplicationStatusSubmitted, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitions(t *testing.T) {
	statuses := []string{
		ApplicationStatusSubmitted, ApplicationStatusUnderReview, ApplicationStatusInterviewScheduled,
		ApplicationStatusOffered, ApplicationStatusConditionalOffer, ApplicationStatusRejected,
		ApplicationStatusEnrolled, ApplicationStatusWithdrawn,
	}
	for _, s := range statuses {
		if _, ok := ValidApplicationTransitions[s]; !ok {
			t.Errorf("status %s missing from transition table", s)
		}
	}
}

func TestSnapshotsOmitMissingIDs(t *testing.T) {
	q := Qualification{Title: "HNC"}
	if _, ok := q.Snapshot()["id"]; ok {
		t.Errorf("id-less qualification snapshot carries an id")
	}

	id := uuid.New()
	q.ID = &id
	if got := q.Snapshot()["id"]; got != id.String() {
		t.Errorf("snapshot id = %v, want %s", got, id)
	}
}

func TestSnapshotNilPointers(t *testing.T) {
	a := Application{StudentName: "Ann"}
	snap := a.ProfileSnapshot()
	if snap["phone"] != nil || snap["date_of_birth"] != nil {
		t.Errorf("nil pointers should snapshot as nil, got %v / %v", snap["phone"], snap["date_of_birth"])
	}

	dob := time.Date(2005, 6, 30, 0, 0, 0, 0, time.UTC)
	a.DateOfBirth = &dob
	if got := a.ProfileSnapshot()["date_of_birth"]; got != dob {
		t.Errorf("date_of_birth = %v, want %v", got, dob)
	}

	var iv *Interview
	if len(iv.Snapshot()) != 0 {
		t.Errorf("nil interview snapshot should be empty")
	}
}

func TestEnsureIDKeepsOriginal(t *testing.T) {
	w := WorkExperience{Employer: "Tesco"}
	stored := w.EnsureID()
	if stored.ID == nil || *stored.ID == uuid.Nil {
		t.Fatalf("stored copy has no id")
	}
	if w.ID != nil {
		t.Errorf("original was mutated")
	}

	again := stored.EnsureID()
	if *again.ID != *stored.ID {
		t.Errorf("existing id replaced")
	}
}
