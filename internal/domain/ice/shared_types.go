// internal/domain/ice/shared_types.go
package ice

import "fmt"

// Status is the label shown for an ICE's armed state.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

const (
	// InputDateLayout is the only accepted format for a requested send date (yyyy-mm-dd HH:MM).
	InputDateLayout = "2006-01-02 15:04"
	// DisplayDateLayout is used when rendering a send date (dd/mm/yyyy).
	DisplayDateLayout = "02/01/2006"
	// UnknownDate is rendered in place of a missing send date.
	UnknownDate = "Unknown"
)

// Lifecycle and validation errors
var ErrInvalidDateFormat = fmt.Errorf("invalid date format, expected yyyy-mm-dd HH:MM")
var ErrDateNotInFuture = fmt.Errorf("date cannot be in the past")
var ErrNotActive = fmt.Errorf("ICE mail is not active")
var ErrInconsistentSchedule = fmt.Errorf("active flag and send date disagree")

// Store errors, shared by every Repository implementation
var ErrStoreNotFound = fmt.Errorf("ICE store does not exist")
var ErrStoreCorrupt = fmt.Errorf("ICE store is corrupt")
var ErrStoreIO = fmt.Errorf("ICE store I/O failure")
