package mapper

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/harrisonrobin/gitcal/pkg/model"
)

const (
	DefaultTitlePrefix = "GitHub Commit: "
	DefaultTitleLimit  = 100

	// Google Calendar event colors are "1" through "11".
	colorCount = 11
)

// eventNamespace scopes the UUIDv5 event ids so they never collide with ids
// minted by other tools writing to the same calendar.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/harrisonrobin/gitcal"))

// Mapper turns commits into calendar events. It holds no state beyond its
// settings, so Map is deterministic.
type Mapper struct {
	TitlePrefix string
	// TitleLimit bounds the number of message characters in the title.
	TitleLimit int
	CalendarID string
	TimeZone   string
}

func New(calendarID, timeZone string) Mapper {
	return Mapper{
		TitlePrefix: DefaultTitlePrefix,
		TitleLimit:  DefaultTitleLimit,
		CalendarID:  calendarID,
		TimeZone:    timeZone,
	}
}

// Map builds the event for one commit. Commits have no duration, so the event
// starts and ends at the commit timestamp.
func (m Mapper) Map(item model.Item) model.EventPayload {
	limit := m.TitleLimit
	if limit <= 0 {
		limit = DefaultTitleLimit
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Repo: %s\n", item.Repository)
	fmt.Fprintf(&desc, "Commit SHA: %s\n", item.ID)
	desc.WriteString("Auto-generated from GitHub")

	return model.EventPayload{
		EventID:     EventID(item),
		Title:       m.TitlePrefix + truncate(item.Message, limit),
		Start:       item.Timestamp,
		End:         item.Timestamp,
		TimeZone:    m.TimeZone,
		Description: desc.String(),
		ColorID:     ColorID(item.Repository),
		CalendarID:  m.CalendarID,
	}
}

// EventID derives a stable event id from the commit's repository and id.
// The result is lowercase hex, which Google Calendar accepts as a client
// supplied id.
func EventID(item model.Item) string {
	u := uuid.NewSHA1(eventNamespace, []byte(item.Repository+"/"+item.ID))
	return strings.ReplaceAll(u.String(), "-", "")
}

// ColorID picks one of the calendar colors for a repository. The same
// repository always gets the same color.
func ColorID(repository string) string {
	if repository == "" {
		return "1"
	}
	h := fnv.New32a()
	h.Write([]byte(repository))
	return strconv.Itoa(int(h.Sum32()%colorCount) + 1)
}

// truncate returns at most n characters of s, never splitting a multi-byte
// character.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
