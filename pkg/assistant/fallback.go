package assistant

import (
	"fmt"
	"strings"

	"github.com/parley-hq/parley/pkg/models"
)

// FallbackAgenda builds a templated agenda when generation fails after all
// retries. It splits the meeting duration into a short opening, the main
// discussion, and a wrap-up with next steps.
func FallbackAgenda(data models.MeetingData) string {
	minutes := int(data.Duration().Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	opening := 5
	closing := 5

	if minutes < 20 {
		opening = 2
		closing = 3
	}

	discussion := minutes - opening - closing

	title := data.Title
	if title == "" {
		title = "Meeting"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Agenda: %s\n\n", title)
	fmt.Fprintf(&b, "1. Welcome and introductions (%d min)\n", opening)
	fmt.Fprintf(&b, "2. Main discussion (%d min)\n", discussion)

	if len(data.Attendees) > 1 {
		b.WriteString("   - Updates from each attendee\n")
	}

	fmt.Fprintf(&b, "3. Next steps and wrap-up (%d min)\n", closing)

	return b.String()
}
