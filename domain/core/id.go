package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SubmissionID ID
	JobID        ID
	LogID        ID
	AnalyticID   ID
	StatisticID  ID
	VariableKey  ID
)

// String conversions for domain IDs
func (id SubmissionID) String() string { return ID(id).String() }
func (id JobID) String() string        { return ID(id).String() }
func (id LogID) String() string        { return ID(id).String() }
func (id AnalyticID) String() string   { return ID(id).String() }
func (id StatisticID) String() string  { return ID(id).String() }
func (id VariableKey) String() string  { return ID(id).String() }

// NewSubmissionID creates a time-ordered submission identifier
func NewSubmissionID() SubmissionID { return SubmissionID(NewID()) }

// NewJobID creates a time-ordered job identifier
func NewJobID() JobID { return JobID(NewID()) }

// ParseSubmissionID parses a string into SubmissionID
func ParseSubmissionID(s string) (SubmissionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("submission ID cannot be empty")
	}
	return SubmissionID(s), nil
}

// ParseVariableKey parses a string into VariableKey
func ParseVariableKey(s string) (VariableKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("variable key cannot be empty")
	}
	return VariableKey(s), nil
}
