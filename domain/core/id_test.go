package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
	if JobID("job-1").String() != "job-1" {
		t.Errorf("Expected JobID string conversion to round trip")
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseSubmissionID tests submission ID parsing
func TestParseSubmissionID(t *testing.T) {
	if _, err := ParseSubmissionID("   "); err == nil {
		t.Error("Expected error for blank submission ID")
	}
	id, err := ParseSubmissionID("abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != SubmissionID("abc") {
		t.Errorf("Expected abc, got %s", id)
	}
}

// TestErrorHelpers tests sentinel classification
func TestErrorHelpers(t *testing.T) {
	if !IsNotFoundError(NewNotFoundError("submission", "x")) {
		t.Error("Expected not-found classification")
	}
	if !IsComputeError(NewLengthMismatchError(3, 4)) {
		t.Error("Expected length mismatch to be a compute error")
	}
	if IsComputeError(errors.New("other")) {
		t.Error("Unexpected compute classification")
	}
}
