// Package dashboard builds the saved-contracts view: display summaries,
// list filters, usage stats and confirmed deletion.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contratos.app/internal/contract"
	"contratos.app/internal/plan"
)

// RecentWindow is how far back the recent filter reaches.
const RecentWindow = 7 * 24 * time.Hour

var (
	ErrConfirmationRequired = errors.New("dashboard: delete requires confirmation")
	ErrUnknownFilter        = errors.New("dashboard: unknown filter")
)

// Filter selects which records the list shows.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterRecent Filter = "recent"
)

// ParseFilter accepts "", "all" and "recent".
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterRecent:
		return FilterRecent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
	}
}

// Recent reports whether created falls inside the trailing window ending at
// now. A record exactly RecentWindow old still counts.
func Recent(created, now time.Time) bool {
	return !created.Before(now.Add(-RecentWindow))
}

// Item is one row of the list.
type Item struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	ContractType   string    `json:"contract_type"`
	Value          string    `json:"value"`
	ContractorName string    `json:"contractor_name"`
	ContractedName string    `json:"contracted_name"`
	CreatedAt      time.Time `json:"created_at"`
	HasArtifact    bool      `json:"has_artifact"`
}

// Summarize derives the display fields of a record. Each missing payload field
// falls back to contract.NotInformed on its own.
func Summarize(r contract.Record) Item {
	f := contract.ParseFields(r.Payload)
	return Item{
		ID:             r.ID,
		Title:          r.Title,
		ContractType:   f.StringOr("contractType", contract.NotInformed),
		Value:          f.StringOr("value", contract.NotInformed),
		ContractorName: f.StringOr("contractorName", contract.NotInformed),
		ContractedName: f.StringOr("contractedName", contract.NotInformed),
		CreatedAt:      r.CreatedAt,
		HasArtifact:    r.ArtifactRef != nil && *r.ArtifactRef != "",
	}
}

// Stats summarises usage for the header of the dashboard.
type Stats struct {
	Total     int       `json:"total"`
	Recent    int       `json:"recent"`
	Plan      plan.Tier `json:"plan"`
	PlanLabel string    `json:"plan_label"`
	LimitText string    `json:"limit_text"`
	CanCreate bool      `json:"can_create"`
}

// View is the list for one filter plus stats over all records.
type View struct {
	Filter Filter `json:"filter"`
	Items  []Item `json:"items"`
	Stats  Stats  `json:"stats"`
}

// DeleteRequest names the record to delete. Confirmed must be set by the
// caller after the user explicitly agreed.
type DeleteRequest struct {
	ID        string
	Confirmed bool
}

// Service reads and deletes records through a contract.Store.
type Service struct {
	store contract.Store
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source used by the recent filter.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store contract.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View lists the owner's records newest first, applying filter to the items.
// Stats always cover the whole list.
func (s *Service) View(ctx context.Context, ownerID string, tier plan.Tier, filter Filter) (View, error) {
	records, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return View{}, fmt.Errorf("list contracts: %w", err)
	}
	now := s.now()
	items := make([]Item, 0, len(records))
	recent := 0
	for _, r := range records {
		isRecent := Recent(r.CreatedAt, now)
		if isRecent {
			recent++
		}
		if filter == FilterRecent && !isRecent {
			continue
		}
		items = append(items, Summarize(r))
	}
	return View{
		Filter: filter,
		Items:  items,
		Stats: Stats{
			Total:     len(records),
			Recent:    recent,
			Plan:      tier,
			PlanLabel: tier.Label(),
			LimitText: plan.LimitText(tier, len(records)),
			CanCreate: plan.Allows(tier, len(records)),
		},
	}, nil
}

// Find returns one of the owner's records with its full payload.
func (s *Service) Find(ctx context.Context, ownerID, id string) (contract.Record, error) {
	records, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return contract.Record{}, fmt.Errorf("list contracts: %w", err)
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return contract.Record{}, contract.ErrNotFound
}

// Delete removes a confirmed record owned by ownerID.
func (s *Service) Delete(ctx context.Context, ownerID string, req DeleteRequest) error {
	if !req.Confirmed {
		return ErrConfirmationRequired
	}
	if strings.TrimSpace(req.ID) == "" {
		return contract.ErrNotFound
	}
	return s.store.DeleteByID(ctx, ownerID, req.ID)
}
