package ics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/harrisonrobin/gitcal/pkg/model"
)

const productID = "-//harrisonrobin//gitcal//EN"

// naiveLayout is a timestamp without offset; its zone comes from the payload.
const naiveLayout = "2006-01-02T15:04:05"

// FileSink writes events into a local iCalendar file instead of a remote
// calendar. The file is rewritten in full on every commit.
type FileSink struct {
	Path string

	mu  sync.Mutex
	now func() time.Time
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path, now: time.Now}
}

// Commit adds the event to the file and returns its UID. An event whose UID
// is already in the file counts as committed.
func (s *FileSink) Commit(ctx context.Context, payload model.EventPayload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &model.SinkError{EventID: payload.EventID, Cause: "cancelled", Err: err}
	}
	if payload.EventID == "" {
		return "", &model.SinkError{Cause: "event has no id"}
	}

	start, err := parseTime(payload.Start, payload.TimeZone)
	if err != nil {
		return "", &model.SinkError{EventID: payload.EventID, Cause: "invalid start time", Err: err}
	}
	end, err := parseTime(payload.End, payload.TimeZone)
	if err != nil {
		return "", &model.SinkError{EventID: payload.EventID, Cause: "invalid end time", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cal, err := s.load()
	if err != nil {
		return "", &model.SinkError{EventID: payload.EventID, Cause: "could not read calendar file", Err: err}
	}
	for _, ev := range cal.Events() {
		if ev.Id() == payload.EventID {
			return payload.EventID, nil
		}
	}

	ev := cal.AddEvent(payload.EventID)
	ev.SetDtStampTime(s.now().UTC())
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(payload.Title)
	ev.SetDescription(payload.Description)

	if err := s.write(cal); err != nil {
		return "", &model.SinkError{EventID: payload.EventID, Cause: "could not write calendar file", Err: err}
	}
	return payload.EventID, nil
}

func (s *FileSink) load() (*ical.Calendar, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cal := ical.NewCalendar()
			cal.SetMethod(ical.MethodPublish)
			cal.SetProductId(productID)
			return cal, nil
		}
		return nil, err
	}
	defer f.Close()
	return ical.ParseCalendar(f)
}

// write replaces the file atomically via a temp file in the same directory.
func (s *FileSink) write(cal *ical.Calendar) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".gitcal-*.ics.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path)
}

func parseTime(value, zone string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	loc := time.UTC
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown time zone %q: %w", zone, err)
		}
		loc = l
	}
	return time.ParseInLocation(naiveLayout, value, loc)
}
