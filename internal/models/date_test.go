package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", d.String())

	_, err = ParseDate("not-a-date")
	assert.Error(t, err)
}

func TestDateAdd(t *testing.T) {
	d := MustDate("2025-02-27")
	assert.Equal(t, "2025-03-01", d.Add(2).String())  // month rollover
	assert.Equal(t, "2025-02-26", d.Add(-1).String())

	// leap year
	assert.Equal(t, "2024-02-29", MustDate("2024-02-28").Add(1).String())
}

func TestDateOrdering(t *testing.T) {
	a := MustDate("2025-01-01")
	b := MustDate("2025-01-02")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Before(a))
	assert.Equal(t, 1, a.DaysUntil(b))
	assert.Equal(t, -1, b.DaysUntil(a))
}

func TestDateJSON(t *testing.T) {
	d := MustDate("2025-06-15")
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-06-15"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}

func TestDateRange(t *testing.T) {
	r := NewDateRange(MustDate("2025-01-01"), MustDate("2025-01-05"))
	assert.Equal(t, 5, r.Days())
	assert.True(t, r.Contains(MustDate("2025-01-03")))
	assert.False(t, r.Contains(MustDate("2025-01-06")))

	dates := r.Dates()
	require.Len(t, dates, 5)
	assert.Equal(t, r.Start, dates[0])
	assert.Equal(t, r.End, dates[4])

	// inverted range is empty
	inverted := NewDateRange(r.End, r.Start)
	assert.Equal(t, 0, inverted.Days())
	assert.Empty(t, inverted.Dates())
}
