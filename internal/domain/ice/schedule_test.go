package ice

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSendDate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2099-01-01 09:00", false},
		{"  2099-01-01 09:00 ", false},
		{"2099-01-01", true},
		{"01/01/2099 09:00", true},
		{"2099-13-01 09:00", true},
		{"2099-01-01 9am", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSendDate(tt.in, testLoc)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidDateFormat), "got %v", err)
				assert.False(t, errors.Is(err, ErrDateNotInFuture))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.Date(2099, 1, 1, 9, 0, 0, 0, testLoc), got)
		})
	}
}

func TestParseFutureSendDateDistinguishesFailures(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, testLoc)

	_, err := ParseFutureSendDate("not a date", now, testLoc)
	assert.True(t, errors.Is(err, ErrInvalidDateFormat))

	_, err = ParseFutureSendDate("2000-01-01 09:00", now, testLoc)
	assert.True(t, errors.Is(err, ErrDateNotInFuture))

	// equal to now is not strictly in the future
	_, err = ParseFutureSendDate("2026-10-14 12:00", now, testLoc)
	assert.True(t, errors.Is(err, ErrDateNotInFuture))

	at, err := ParseFutureSendDate("2026-10-14 12:01", now, testLoc)
	require.NoError(t, err)
	assert.True(t, at.After(now))
}

func TestActivateRejectsPastDateAndKeepsState(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, testLoc)

	i := New("d", "m")
	err := i.Activate(mustParse(t, "2000-01-01 09:00"), now)
	assert.True(t, errors.Is(err, ErrDateNotInFuture))
	assert.False(t, i.IsActive())
	assertConsistent(t, i)

	first := mustParse(t, "2099-01-01 09:00")
	require.NoError(t, i.Activate(first, now))

	err = i.Activate(mustParse(t, "2000-01-01 09:00"), now)
	assert.True(t, errors.Is(err, ErrDateNotInFuture))
	got, ok := i.SendDate()
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestActivateOverridesExistingSchedule(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, testLoc)

	i := New("d", "m")
	require.NoError(t, i.Activate(mustParse(t, "2099-01-01 09:00"), now))
	second := mustParse(t, "2100-05-05 10:30")
	require.NoError(t, i.Activate(second, now))

	assert.True(t, i.IsActive())
	got, _ := i.SendDate()
	assert.Equal(t, second, got)
}

func TestDeactivate(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, testLoc)

	i := New("d", "m")
	assert.Equal(t, ErrNotActive, i.Deactivate())
	assert.False(t, i.IsActive())

	require.NoError(t, i.Activate(mustParse(t, "2099-01-01 09:00"), now))
	require.NoError(t, i.Deactivate())
	assert.False(t, i.IsActive())
	assertConsistent(t, i)

	assert.Equal(t, ErrNotActive, i.Deactivate())
	assert.False(t, i.IsActive())
}

func TestLifecycleScenario(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, testLoc)

	i := New("Will", "Find my safe")
	assert.False(t, i.IsActive())

	armed := mustParse(t, "2099-01-01 09:00")
	require.NoError(t, i.Activate(armed, now))
	assert.True(t, i.IsActive())

	assert.Error(t, i.Activate(mustParse(t, "2000-01-01 09:00"), now))
	got, _ := i.SendDate()
	assert.Equal(t, armed, got)

	// editing recipients leaves the schedule alone
	i.SetRecipients([]string{"a@x.com", "b@x.com"})
	assert.True(t, i.IsActive())
	got, _ = i.SendDate()
	assert.Equal(t, armed, got)

	require.NoError(t, i.Deactivate())
	_, ok := i.SendDate()
	assert.False(t, ok)
	assert.Equal(t, ErrNotActive, i.Deactivate())
	assert.False(t, i.IsActive())
}
