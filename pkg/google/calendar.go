package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/harrisonrobin/gitcal/pkg/model"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// CalendarClient writes events into one Google Calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID}
}

// CalendarID returns the id of the calendar events are written to.
func (c *CalendarClient) CalendarID() string {
	return c.calendarID
}

// Commit inserts the event and returns its id. An event that already exists
// with the same id counts as committed.
func (c *CalendarClient) Commit(ctx context.Context, payload model.EventPayload) (string, error) {
	calendarID := payload.CalendarID
	if calendarID == "" {
		calendarID = c.calendarID
	}

	created, err := c.srv.Events.Insert(calendarID, toEvent(payload)).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict && payload.EventID != "" {
			return payload.EventID, nil
		}
		return "", &model.SinkError{EventID: payload.EventID, Cause: describe(err), Err: err}
	}
	return created.Id, nil
}

func toEvent(p model.EventPayload) *calendar.Event {
	return &calendar.Event{
		Id:          p.EventID,
		Summary:     p.Title,
		Description: p.Description,
		ColorId:     p.ColorID,
		Start: &calendar.EventDateTime{
			DateTime: p.Start,
			TimeZone: p.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: p.End,
			TimeZone: p.TimeZone,
		},
	}
}

func describe(err error) string {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Code {
	case http.StatusUnauthorized:
		return "authorization expired or revoked"
	case http.StatusForbidden, http.StatusTooManyRequests:
		return fmt.Sprintf("quota exceeded or access denied: %s", apiErr.Message)
	case http.StatusBadRequest:
		return fmt.Sprintf("event rejected: %s", apiErr.Message)
	case http.StatusNotFound:
		return "calendar not found"
	default:
		return fmt.Sprintf("calendar API error %d: %s", apiErr.Code, apiErr.Message)
	}
}
