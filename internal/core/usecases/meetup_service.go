package usecases

import (
	"context"
	"sort"
	"strings"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/ports"
)

// MeetupService handles meetup-related business logic. Meetup data is
// local and authoritative, so there is no fetch/filter pipeline here.
type MeetupService struct {
	meetups ports.MeetupRepository
}

// NewMeetupService creates a new MeetupService.
func NewMeetupService(meetups ports.MeetupRepository) *MeetupService {
	return &MeetupService{meetups: meetups}
}

// List returns all meetups, optionally restricted to one state code. A
// meetup matches a state when it is based there or lists it in its
// coverage states.
func (s *MeetupService) List(ctx context.Context, state string) ([]domain.Meetup, error) {
	if state == "" {
		return s.meetups.List(ctx)
	}
	return s.meetups.ListByState(ctx, strings.ToUpper(state))
}

// GetByID returns one meetup.
func (s *MeetupService) GetByID(ctx context.Context, id string) (*domain.Meetup, error) {
	return s.meetups.GetByID(ctx, id)
}

// States returns the sorted set of state codes that have at least one
// meetup, counting coverage states. Used by the sitemap generator.
func (s *MeetupService) States(ctx context.Context) ([]string, error) {
	meetups, err := s.meetups.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var states []string
	add := func(code string) {
		code = strings.ToUpper(code)
		if _, ok := seen[code]; ok || code == "" {
			return
		}
		seen[code] = struct{}{}
		states = append(states, code)
	}
	for _, m := range meetups {
		add(m.State)
		for _, c := range m.CoverageStates {
			add(c)
		}
	}
	sort.Strings(states)
	return states, nil
}
