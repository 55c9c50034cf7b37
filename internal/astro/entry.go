package astro

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format stored on entries.
const DateLayout = "2006-01-02"

// Entry is the parsed daily horoscope for one sign.
type Entry struct {
	Sign      int       `json:"sign"`
	Title     string    `json:"title"`
	Items     []string  `json:"items"`
	HTML      string    `json:"html"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntry builds an Entry for sign from the parsed title and items,
// stamped with the local calendar date of fetchedAt.
func NewEntry(sign int, title string, items []string, fetchedAt time.Time) Entry {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("<br>")
	for _, item := range items {
		b.WriteString(item)
		b.WriteString("<br>")
	}
	return Entry{
		Sign:      sign,
		Title:     title,
		Items:     items,
		HTML:      b.String(),
		Date:      fetchedAt.Format(DateLayout),
		Timestamp: fetchedAt,
	}
}
