package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestNext(t *testing.T) {
	cases := []struct {
		last   string
		want   string
		wantOK bool
	}{
		{last: "1005", want: "1006", wantOK: true},
		{last: "INV-0009", want: "INV-0010", wantOK: true},
		{last: "INV-A", wantOK: false},
		{last: "SALE-099", want: "SALE-100", wantOK: true},
		{last: "SALE-999", want: "SALE-1000", wantOK: true},
		{last: "9", want: "10", wantOK: true},
		{last: "A1B002", want: "A1B003", wantOK: true},
		{last: "2025/INV/0000", want: "2025/INV/0001", wantOK: true},
		{last: "", wantOK: false},
		{last: "X" + strings.Repeat("9", 25), want: "X1" + strings.Repeat("0", 25), wantOK: true},
		{last: "INV-" + strings.Repeat("9", 19), want: "INV-1" + strings.Repeat("0", 19), wantOK: true},
		{last: "INV-" + strings.Repeat("9", 18), want: "INV-1" + strings.Repeat("0", 18), wantOK: true},
		{last: "X" + strings.Repeat("0", 24) + "7", want: "X" + strings.Repeat("0", 24) + "8", wantOK: true},
	}

	for _, tc := range cases {
		t.Run(tc.last, func(t *testing.T) {
			got, ok := SuggestNext(tc.last)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateFormat(t *testing.T) {
	valid := []string{"INV-0001", "2025/01/0009", "A_B-C/D", strings.Repeat("a", 50)}
	for _, ref := range valid {
		assert.NoError(t, ValidateFormat(ref), ref)
	}

	invalid := []string{"", "INV 0001", "INV#1", strings.Repeat("a", 51), "ÜBER-1"}
	for _, ref := range invalid {
		assert.ErrorIs(t, ValidateFormat(ref), ErrInvalidFormat, ref)
	}
}
