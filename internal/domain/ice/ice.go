// internal/domain/ice/ice.go
package ice

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ice is a single "in case of emergency" message. The armed flag and the send
// date only change together, so an Ice is active if and only if it has a send
// date.
type Ice struct {
	description string
	message     string
	recipients  []string
	active      bool
	sendDate    *time.Time
}

// New creates a dormant ICE with no recipients.
func New(description, message string) *Ice {
	return &Ice{
		description: description,
		message:     message,
		recipients:  make([]string, 0),
	}
}

func (i *Ice) Description() string { return i.description }

func (i *Ice) SetDescription(description string) { i.description = description }

func (i *Ice) Message() string { return i.message }

func (i *Ice) SetMessage(message string) { i.message = message }

// Recipients returns a copy of the recipient list in stored order.
func (i *Ice) Recipients() []string {
	out := make([]string, len(i.recipients))
	copy(out, i.recipients)
	return out
}

// SetRecipients replaces the whole recipient list. Order and duplicates are kept.
func (i *Ice) SetRecipients(recipients []string) {
	i.recipients = make([]string, len(recipients))
	copy(i.recipients, recipients)
}

func (i *Ice) IsActive() bool { return i.active }

// SendDate returns the scheduled release time and whether one is set.
func (i *Ice) SendDate() (time.Time, bool) {
	if i.sendDate == nil {
		return time.Time{}, false
	}
	return *i.sendDate, true
}

// Arm schedules the ICE for release at the given time, replacing any previous
// schedule. The caller is responsible for checking that at is in the future.
func (i *Ice) Arm(at time.Time) {
	t := at
	i.sendDate = &t
	i.active = true
}

// Disarm clears the schedule. Calling it on a dormant ICE does nothing.
func (i *Ice) Disarm() {
	i.sendDate = nil
	i.active = false
}

// FormattedDate renders the send date as dd/mm/yyyy, or UnknownDate if none is set.
func (i *Ice) FormattedDate() string {
	if i.sendDate == nil {
		return UnknownDate
	}
	return i.sendDate.Format(DisplayDateLayout)
}

// StatusLine returns "<description> ~> Active (<date>)" or "<description> ~> Inactive".
func (i *Ice) StatusLine() string {
	return i.StatusLineWith(func(s Status) string { return string(s) })
}

// StatusLineWith is StatusLine with the status label passed through render,
// which lets a terminal colour the label without the domain knowing about it.
func (i *Ice) StatusLineWith(render func(Status) string) string {
	if i.active {
		return fmt.Sprintf("%s ~> %s (%s)", i.description, render(StatusActive), i.FormattedDate())
	}
	return fmt.Sprintf("%s ~> %s", i.description, render(StatusInactive))
}

// IsDue reports whether the ICE is armed and its send date has been reached.
func (i *Ice) IsDue(now time.Time) bool {
	return i.active && i.sendDate != nil && !i.sendDate.After(now)
}

// Clone returns a deep copy suitable as a working copy during an edit.
func (i *Ice) Clone() *Ice {
	c := &Ice{
		description: i.description,
		message:     i.message,
		active:      i.active,
	}
	c.SetRecipients(i.recipients)
	if i.sendDate != nil {
		t := *i.sendDate
		c.sendDate = &t
	}
	return c
}

// iceJSON is the on-disk shape of an ICE. Field names match files written by
// earlier versions of the tool.
type iceJSON struct {
	Description string     `json:"description"`
	Message     string     `json:"message"`
	Emails      []string   `json:"emails"`
	Active      bool       `json:"active"`
	SendDate    *time.Time `json:"send_date"`
}

func (i *Ice) MarshalJSON() ([]byte, error) {
	emails := i.recipients
	if emails == nil {
		emails = []string{}
	}
	return json.Marshal(iceJSON{
		Description: i.description,
		Message:     i.message,
		Emails:      emails,
		Active:      i.active,
		SendDate:    i.sendDate,
	})
}

func (i *Ice) UnmarshalJSON(data []byte) error {
	var raw iceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := Restore(raw.Description, raw.Message, raw.Emails, raw.Active, raw.SendDate)
	if err != nil {
		return err
	}
	*i = *restored
	return nil
}

// Restore rebuilds an ICE from persisted fields. It fails with
// ErrInconsistentSchedule when the active flag and send date disagree.
func Restore(description, message string, recipients []string, active bool, sendDate *time.Time) (*Ice, error) {
	if active != (sendDate != nil) {
		return nil, fmt.Errorf("%w: %q has active=%t with send date present=%t",
			ErrInconsistentSchedule, description, active, sendDate != nil)
	}
	i := New(description, message)
	i.SetRecipients(recipients)
	if active {
		i.Arm(*sendDate)
	}
	return i, nil
}
