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
	TrialID   ID
	DatasetID ID
)

func (id TrialID) String() string   { return ID(id).String() }
func (id DatasetID) String() string { return ID(id).String() }

// NewTrialID creates a time-ordered trial identifier.
func NewTrialID() TrialID { return TrialID(NewID()) }

// ParseTrialID parses a string into TrialID
func ParseTrialID(s string) (TrialID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("trial ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid trial ID %q: %w", s, err)
	}
	return TrialID(s), nil
}
