package concert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDedupKeyNormalization(t *testing.T) {
	date := time.Date(2024, 5, 1, 19, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Brahms Symphony No.4", "brahms symphony no.4|2024-05-01|7"},
		{"surrounding whitespace", "  Brahms Symphony No.4  ", "brahms symphony no.4|2024-05-01|7"},
		{"case folded", "BRAHMS Symphony No.4", "brahms symphony no.4|2024-05-01|7"},
		{"inner whitespace collapsed", "Brahms   Symphony\tNo.4", "brahms symphony no.4|2024-05-01|7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DedupKey(tt.title, date, 7))
		})
	}
}

// The key uses date-only precision by policy: two same-titled concerts at
// one venue on the same date collapse into one record even when their
// listed times differ.
func TestDedupKeyDateOnlyPrecision(t *testing.T) {
	matinee := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 5, 1, 19, 30, 0, 0, time.UTC)
	nextDay := time.Date(2024, 5, 2, 19, 30, 0, 0, time.UTC)

	require.Equal(t, DedupKey("Gala Concert", matinee, 1), DedupKey("Gala Concert", evening, 1))
	require.NotEqual(t, DedupKey("Gala Concert", evening, 1), DedupKey("Gala Concert", nextDay, 1))
}

func TestDedupKeyDistinguishesVenues(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NotEqual(t, DedupKey("Gala Concert", date, 1), DedupKey("Gala Concert", date, 2))
}
