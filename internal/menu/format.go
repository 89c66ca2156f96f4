// internal/menu/format.go

// Package menu renders and caches the canteen menu fetched from the peer.
package menu

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout keys snapshots and last-notified markers by calendar day.
const DateLayout = "2006-01-02"

// Format renders a raw menu reply as chat-ready HTML. Each non-blank line
// is split into a dish description and a trailing two-token price, e.g.
// "Schnitzel mit Pommes 6,50 €" becomes the description plus "<i>6,50 €</i>".
// Lines too short to carry a price are kept whole. Entries are separated
// by a blank line.
func Format(raw string, date time.Time) string {
	header := fmt.Sprintf("<b>Menu for %s</b>", date.Format("Monday 02.01.2006"))
	entries := []string{header}

	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		// The price is the last two tokens (amount and currency). Anything
		// shorter has no price to separate.
		if len(fields) < 3 {
			entries = append(entries, strings.TrimSpace(line))
			continue
		}

		desc := strings.Join(fields[:len(fields)-2], " ")
		price := strings.Join(fields[len(fields)-2:], " ")
		entries = append(entries, fmt.Sprintf("%s\n<i>%s</i>", desc, price))
	}

	return strings.Join(entries, "\n\n")
}
