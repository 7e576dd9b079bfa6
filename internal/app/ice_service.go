// internal/app/ice_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"simpleice/internal/domain/ice"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the ICE service
var ErrNoIces = fmt.Errorf("no ICE mails to show")
var ErrIndexOutOfRange = fmt.Errorf("no ICE mail at that position")
var ErrEmptyDescription = fmt.Errorf("you need to specify a short description")
var ErrEmptyMessage = fmt.Errorf("you need to specify a message")

// EditRequest lists the fields to change. Nil fields are left alone.
type EditRequest struct {
	Description *string
	Message     *string
	Recipients  *[]string
}

func (r EditRequest) isEmpty() bool {
	return r.Description == nil && r.Message == nil && r.Recipients == nil
}

// DueIce pairs a due ICE with its position in the loaded collection.
type DueIce struct {
	Index int
	Ice   *ice.Ice
}

// IceService runs each operation as one load, one change and one save. No
// save happens unless the change was fully validated.
type IceService struct {
	repo     ice.Repository
	logger   *logrus.Logger
	now      func() time.Time
	location *time.Location
}

func NewIceService(repo ice.Repository, logger *logrus.Logger) *IceService {
	return &IceService{
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		location: time.Local,
	}
}

// WithClock replaces the time source and the location used to interpret
// requested send dates.
func (s *IceService) WithClock(now func() time.Time, location *time.Location) *IceService {
	s.now = now
	if location != nil {
		s.location = location
	}
	return s
}

// List returns the whole collection. A store that does not exist yet is an
// empty collection.
func (s *IceService) List(ctx context.Context) ([]*ice.Ice, error) {
	ices, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, ice.ErrStoreNotFound) {
			s.logger.Debugf("Store not found, treating as empty: %v", err)
			return []*ice.Ice{}, nil
		}
		return nil, err
	}
	return ices, nil
}

// Get returns the ICE at index.
func (s *IceService) Get(ctx context.Context, index int) (*ice.Ice, error) {
	ices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(ices, index); err != nil {
		return nil, err
	}
	return ices[index], nil
}

// Create appends a new dormant ICE. The store is created if it does not exist.
func (s *IceService) Create(ctx context.Context, description, message string) (*ice.Ice, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	ices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	created := ice.New(description, message)
	ices = append(ices, created)
	if err := s.repo.Save(ctx, ices); err != nil {
		return nil, fmt.Errorf("failed to save new ICE mail: %w", err)
	}

	s.logger.WithField("index", len(ices)-1).Infof("ICE mail '%s' created", description)
	return created, nil
}

// Edit changes the requested fields of the ICE at index. Its armed state is
// not touched. An empty request saves nothing.
func (s *IceService) Edit(ctx context.Context, index int, req EditRequest) (*ice.Ice, error) {
	var description string
	if req.Description != nil {
		if description = strings.TrimSpace(*req.Description); description == "" {
			return nil, ErrEmptyDescription
		}
	}
	if req.Message != nil && strings.TrimSpace(*req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	return s.update(ctx, index, "edit", func(edited *ice.Ice) (bool, error) {
		if req.isEmpty() {
			return false, nil
		}
		if req.Description != nil {
			edited.SetDescription(description)
		}
		if req.Message != nil {
			edited.SetMessage(*req.Message)
		}
		if req.Recipients != nil {
			edited.SetRecipients(*req.Recipients)
		}
		return true, nil
	})
}

// Activate arms the ICE at index for the date in input (yyyy-mm-dd HH:MM).
// Any existing schedule is replaced. Format errors wrap
// ice.ErrInvalidDateFormat and past dates wrap ice.ErrDateNotInFuture; in
// both cases nothing is written.
func (s *IceService) Activate(ctx context.Context, index int, input string) (*ice.Ice, error) {
	at, err := ice.ParseSendDate(input, s.location)
	if err != nil {
		s.logger.Debugf("Rejected send date %q: %v", input, err)
		return nil, err
	}

	return s.update(ctx, index, "activate", func(edited *ice.Ice) (bool, error) {
		if err := edited.Activate(at, s.now()); err != nil {
			s.logger.Debugf("Rejected send date %q: %v", input, err)
			return false, err
		}
		return true, nil
	})
}

// Deactivate disarms the ICE at index. A dormant ICE yields ice.ErrNotActive
// and nothing is written.
func (s *IceService) Deactivate(ctx context.Context, index int) (*ice.Ice, error) {
	return s.update(ctx, index, "deactivate", func(edited *ice.Ice) (bool, error) {
		if err := edited.Deactivate(); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Remove deletes the ICE at index from the collection, whatever its state.
func (s *IceService) Remove(ctx context.Context, index int) (*ice.Ice, error) {
	ices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(ices, index); err != nil {
		return nil, err
	}

	removed := ices[index]
	remaining := make([]*ice.Ice, 0, len(ices)-1)
	remaining = append(remaining, ices[:index]...)
	remaining = append(remaining, ices[index+1:]...)

	if err := s.repo.Save(ctx, remaining); err != nil {
		return nil, fmt.Errorf("failed to save after removing ICE mail: %w", err)
	}

	s.logger.WithField("index", index).Infof("ICE mail '%s' removed", removed.Description())
	return removed, nil
}

// Due returns the armed ICE mails whose send date has been reached. It only
// reads the store.
func (s *IceService) Due(ctx context.Context) ([]DueIce, error) {
	ices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	due := make([]DueIce, 0)
	for _, idx := range ice.Due(ices, s.now()) {
		due = append(due, DueIce{Index: idx, Ice: ices[idx]})
	}
	return due, nil
}

// update loads the collection, applies mutate to a working copy of the ICE at
// index and saves only if mutate reports a change without error.
func (s *IceService) update(ctx context.Context, index int, op string, mutate func(*ice.Ice) (bool, error)) (*ice.Ice, error) {
	ices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkIndex(ices, index); err != nil {
		return nil, err
	}

	edited := ices[index].Clone()
	changed, err := mutate(edited)
	if err != nil {
		return ices[index], err
	}
	if !changed {
		return ices[index], nil
	}

	ices[index] = edited
	if err := s.repo.Save(ctx, ices); err != nil {
		return nil, fmt.Errorf("failed to save ICE mail after %s: %w", op, err)
	}

	s.logger.WithFields(logrus.Fields{"index": index, "op": op}).Infof("ICE mail '%s' updated: %s", edited.Description(), edited.StatusLine())
	return edited, nil
}

func checkIndex(ices []*ice.Ice, index int) error {
	if len(ices) == 0 {
		return ErrNoIces
	}
	if index < 0 || index >= len(ices) {
		return fmt.Errorf("%w: %d (valid range 0-%d)", ErrIndexOutOfRange, index, len(ices)-1)
	}
	return nil
}

// ParseRecipients splits a comma-separated recipient list, trimming blanks.
// Order and duplicates are kept.
func ParseRecipients(input string) []string {
	recipients := make([]string, 0)
	for _, part := range strings.Split(input, ",") {
		if email := strings.TrimSpace(part); email != "" {
			recipients = append(recipients, email)
		}
	}
	return recipients
}
