// internal/menu/format_test.go
package menu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	monday := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name: "single dish with price",
			raw:  "Schnitzel mit Pommes 6,50 €",
			expected: "<b>Menu for Monday 05.01.2026</b>\n\n" +
				"Schnitzel mit Pommes\n<i>6,50 €</i>",
		},
		{
			name: "multiple dishes separated by blank lines",
			raw:  "Schnitzel mit Pommes 6,50 €\nGemüsesuppe mit Brot 3,20 €",
			expected: "<b>Menu for Monday 05.01.2026</b>\n\n" +
				"Schnitzel mit Pommes\n<i>6,50 €</i>\n\n" +
				"Gemüsesuppe mit Brot\n<i>3,20 €</i>",
		},
		{
			name: "blank raw lines are skipped",
			raw:  "\nSchnitzel mit Pommes 6,50 €\n\n",
			expected: "<b>Menu for Monday 05.01.2026</b>\n\n" +
				"Schnitzel mit Pommes\n<i>6,50 €</i>",
		},
		{
			name: "short line kept whole without price",
			raw:  "Geschlossen heute",
			expected: "<b>Menu for Monday 05.01.2026</b>\n\n" +
				"Geschlossen heute",
		},
		{
			name: "single token kept whole",
			raw:  "Feiertag",
			expected: "<b>Menu for Monday 05.01.2026</b>\n\n" +
				"Feiertag",
		},
		{
			name:     "empty reply yields header only",
			raw:      "",
			expected: "<b>Menu for Monday 05.01.2026</b>",
		},
		{
			name: "irregular whitespace is collapsed",
			raw:  "  Schnitzel   mit  Pommes   6,50   € ",
			expected: "<b>Menu for Monday 05.01.2026</b>\n\n" +
				"Schnitzel mit Pommes\n<i>6,50 €</i>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.raw, monday))
		})
	}
}

func TestFormat_HeaderUsesGivenDate(t *testing.T) {
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	out := Format("Eintopf mit Wurst 4,00 €", friday)
	assert.Contains(t, out, "<b>Menu for Friday 28.08.2026</b>")
}
