package model

import (
	"fmt"
	"strings"
)

// Repository is a source repository, identified by its full name ("owner/name").
type Repository struct {
	FullName      string
	DefaultBranch string
}

// Item is one commit to be mirrored into the calendar.
type Item struct {
	ID         string // commit SHA
	Message    string
	Timestamp  string // ISO-8601, with offset or naive
	Repository string
}

// Validate reports ErrMalformedRecord when the item cannot be mirrored.
func (i Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: item in %s has no id", ErrMalformedRecord, i.Repository)
	}
	if strings.TrimSpace(i.Timestamp) == "" {
		return fmt.Errorf("%w: item %s has no timestamp", ErrMalformedRecord, i.ID)
	}
	return nil
}

// EventPayload is a calendar-ready representation of an Item.
type EventPayload struct {
	EventID     string // deterministic, derived from repository and item id
	Title       string
	Start       string
	End         string
	TimeZone    string
	Description string
	ColorID     string
	CalendarID  string
}
