package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

// MeetupFile is a ports.MeetupRepository backed by a JSON file.
type MeetupFile struct {
	meetups []domain.Meetup
	byID    map[string]*domain.Meetup
}

// NewMeetupFile reads and validates the meetup data file. Every record
// is validated; all problems are reported at once so a data edit can be
// fixed in a single pass.
func NewMeetupFile(path string) (*MeetupFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meetup data: %w", err)
	}

	var meetups []domain.Meetup
	if err := json.Unmarshal(raw, &meetups); err != nil {
		return nil, fmt.Errorf("parse meetup data %s: %w", path, err)
	}

	m := &MeetupFile{
		meetups: meetups,
		byID:    make(map[string]*domain.Meetup, len(meetups)),
	}
	var errs []error
	for i := range meetups {
		mt := &m.meetups[i]
		if err := mt.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := m.byID[mt.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate meetup id %q", mt.ID))
			continue
		}
		m.byID[mt.ID] = mt
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("meetup data %s: %w", path, errors.Join(errs...))
	}
	return m, nil
}

// List returns every meetup in file order.
func (m *MeetupFile) List(_ context.Context) ([]domain.Meetup, error) {
	out := make([]domain.Meetup, len(m.meetups))
	copy(out, m.meetups)
	return out, nil
}

// ListByState returns meetups homed in a state plus those whose
// coverage includes it. state is matched case-insensitively.
func (m *MeetupFile) ListByState(_ context.Context, state string) ([]domain.Meetup, error) {
	state = strings.ToUpper(state)
	var out []domain.Meetup
	for _, mt := range m.meetups {
		if mt.State == state || containsState(mt.CoverageStates, state) {
			out = append(out, mt)
		}
	}
	return out, nil
}

// GetByID resolves one meetup.
func (m *MeetupFile) GetByID(_ context.Context, id string) (*domain.Meetup, error) {
	mt, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("meetup %q: %w", id, domain.ErrNotFound)
	}
	return mt, nil
}

func containsState(states []string, state string) bool {
	for _, s := range states {
		if strings.ToUpper(s) == state {
			return true
		}
	}
	return false
}
