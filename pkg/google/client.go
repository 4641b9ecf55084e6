package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"
)

// PrimaryCalendar is the alias Google accepts for the user's own calendar.
const PrimaryCalendar = "primary"

// NewClient returns a client for the named calendar. name may be a calendar
// id ("primary" or anything with an "@") or the calendar's display name.
func NewClient(ctx context.Context, srv *calendar.Service, name string) (*CalendarClient, error) {
	calendarID, err := ResolveCalendarID(ctx, srv, name)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID), nil
}

// ResolveCalendarID maps a calendar display name to its id.
func ResolveCalendarID(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("calendar name is empty")
	}
	if name == PrimaryCalendar || strings.Contains(name, "@") {
		return name, nil
	}

	var calendarID string
	err := srv.CalendarList.List().Context(ctx).Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			if item.Summary == name || item.SummaryOverride == name {
				calendarID = item.Id
				return errFound
			}
		}
		return nil
	})
	if err != nil && err != errFound {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if calendarID == "" {
		return "", fmt.Errorf("calendar '%s' not found", name)
	}
	return calendarID, nil
}

var errFound = errors.New("calendar found")
