package filesend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		header    string
		wantStart int64
		wantEnd   int64
		wantErr   error
	}{
		{"bytes=0-499", 0, 499, nil},
		{"bytes=500-", 500, 999, nil},
		{"bytes=-200", 800, 999, nil},
		{"bytes=-5000", 0, 999, nil},
		{"bytes=900-2000", 900, 999, nil},
		{"bytes= 10-20 ", 10, 20, nil},
		{"bytes=0-0,5-9", 0, 0, nil},
		{"bytes=1000-", 0, 0, ErrUnsatisfiable},
		{"bytes=5000-6000", 0, 0, ErrUnsatisfiable},
		{"bytes=-0", 0, 0, ErrUnsatisfiable},
		{"bytes=20-10", 0, 0, ErrMalformedRange},
		{"bytes=abc", 0, 0, ErrMalformedRange},
		{"bytes=a-b", 0, 0, ErrMalformedRange},
		{"items=0-10", 0, 0, ErrMalformedRange},
		{"bytes=-", 0, 0, ErrMalformedRange},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			start, end, err := ParseRange(tt.header, size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestParseRange_EmptyContent(t *testing.T) {
	_, _, err := ParseRange("bytes=0-", 0)
	assert.ErrorIs(t, err, ErrUnsatisfiable)

	_, _, err = ParseRange("bytes=-10", 0)
	assert.ErrorIs(t, err, ErrUnsatisfiable)
}
