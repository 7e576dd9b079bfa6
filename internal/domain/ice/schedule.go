// internal/domain/ice/schedule.go
package ice

import (
	"fmt"
	"strings"
	"time"
)

// ParseSendDate parses input in InputDateLayout, interpreted in loc.
// A malformed input returns an error wrapping ErrInvalidDateFormat.
func ParseSendDate(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(InputDateLayout, strings.TrimSpace(input), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateFormat, input, err)
	}
	return t, nil
}

// ValidateSendDate fails with ErrDateNotInFuture unless at is strictly after now.
func ValidateSendDate(at, now time.Time) error {
	if !at.After(now) {
		return fmt.Errorf("%w: %s is not after %s", ErrDateNotInFuture,
			at.Format(InputDateLayout), now.Format(InputDateLayout))
	}
	return nil
}

// ParseFutureSendDate parses input and checks that it lies in the future.
// Format errors and "not in the future" errors are reported separately so a
// caller can ask for the right kind of correction.
func ParseFutureSendDate(input string, now time.Time, loc *time.Location) (time.Time, error) {
	at, err := ParseSendDate(input, loc)
	if err != nil {
		return time.Time{}, err
	}
	if err := ValidateSendDate(at, now); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

// Activate arms the ICE at the given time if it is strictly after now.
// A rejected request leaves the ICE exactly as it was. Activating an already
// active ICE replaces its schedule.
func (i *Ice) Activate(at, now time.Time) error {
	if err := ValidateSendDate(at, now); err != nil {
		return err
	}
	i.Arm(at)
	return nil
}

// Deactivate disarms an active ICE. On a dormant ICE it returns ErrNotActive
// and changes nothing.
func (i *Ice) Deactivate() error {
	if !i.active {
		return ErrNotActive
	}
	i.Disarm()
	return nil
}

// Due returns the positions of every ICE that is armed and whose send date
// has been reached.
func Due(ices []*Ice, now time.Time) []int {
	due := make([]int, 0)
	for idx, i := range ices {
		if i.IsDue(now) {
			due = append(due, idx)
		}
	}
	return due
}
