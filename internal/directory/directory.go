// Package directory maintains the registry of instant-payment scheme
// participants and their delivery endpoints.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"ipsgateway/internal/common/events"
)

// ParticipantStatus enumerates scheme membership states. Only active
// participants are eligible for payment routing.
type ParticipantStatus string

const (
	StatusActive    ParticipantStatus = "active"
	StatusSuspended ParticipantStatus = "suspended"
	StatusInactive  ParticipantStatus = "inactive"
)

// Participant is one scheme member.
type Participant struct {
	ID       string            `json:"participantId"`
	Name     string            `json:"name"`
	BIC      string            `json:"bic"`
	Endpoint string            `json:"endpoint,omitempty"`
	Status   ParticipantStatus `json:"status"`
}

// Config holds directory configuration.
type Config struct {
	// Participants is an optional JSON array of participants that
	// replaces the built-in scheme defaults at startup.
	Participants string        `envconfig:"IPS_PARTICIPANTS"`
	RefreshEvery time.Duration `envconfig:"IPS_DIRECTORY_REFRESH" default:"15m"`
}

// Store loads the participant list from persistent storage.
type Store interface {
	ListParticipants(ctx context.Context) ([]Participant, error)
	UpsertParticipants(ctx context.Context, participants []Participant) error
}

// Publisher publishes directory lifecycle events. Nil disables
// publishing.
type Publisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

// Directory serves participant lookups from an in-memory snapshot.
// Readers never block behind a refresh; the snapshot is replaced
// atomically and only when a refresh fully succeeds.
type Directory struct {
	snapshot  atomic.Pointer[[]Participant]
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// New builds a directory seeded from cfg.Participants, falling back to
// the built-in scheme members when unset or unparseable.
func New(cfg Config, store Store, publisher Publisher, logger *slog.Logger) *Directory {
	d := &Directory{store: store, publisher: publisher, logger: logger}

	participants := defaultParticipants()
	if cfg.Participants != "" {
		var fromEnv []Participant
		if err := json.Unmarshal([]byte(cfg.Participants), &fromEnv); err != nil {
			logger.Warn("ignoring malformed participant list, using defaults", "error", err)
		} else if len(fromEnv) > 0 {
			participants = fromEnv
		}
	}
	d.snapshot.Store(&participants)
	return d
}

// defaultParticipants are the Namibian scheme members used when no
// external configuration or store is available.
func defaultParticipants() []Participant {
	return []Participant{
		{ID: "BON", Name: "Bank of Namibia", BIC: "BONANANX", Status: StatusActive},
		{ID: "FNB", Name: "First National Bank Namibia", BIC: "FIRNNANX", Status: StatusActive},
		{ID: "NED", Name: "Nedbank Namibia", BIC: "NEDSNANX", Status: StatusActive},
		{ID: "SBN", Name: "Standard Bank Namibia", BIC: "SBNMNANX", Status: StatusActive},
	}
}

// Refresh reloads the participant list from the store. On any failure
// the current snapshot stays in place and the error is returned for
// the caller to log; an empty store result is treated the same way so
// a half-provisioned database cannot wipe the directory.
func (d *Directory) Refresh(ctx context.Context) error {
	if d.store == nil {
		return nil
	}

	participants, err := d.store.ListParticipants(ctx)
	if err != nil {
		return fmt.Errorf("listing participants: %w", err)
	}
	if len(participants) == 0 {
		return fmt.Errorf("participant store returned no rows")
	}

	d.snapshot.Store(&participants)
	d.logger.Info("participant directory refreshed", "count", len(participants))
	d.publishRefreshed(ctx, len(participants))
	return nil
}

// Seed writes the current snapshot into an empty participant register,
// typically on first boot against a fresh database. A register that
// already holds rows is left alone so operator edits survive restarts.
func (d *Directory) Seed(ctx context.Context) error {
	if d.store == nil {
		return nil
	}

	existing, err := d.store.ListParticipants(ctx)
	if err != nil {
		return fmt.Errorf("checking participant register: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	participants := d.All()
	if err := d.store.UpsertParticipants(ctx, participants); err != nil {
		return fmt.Errorf("seeding participant register: %w", err)
	}
	d.logger.Info("participant register seeded", "count", len(participants))
	return nil
}

func (d *Directory) publishRefreshed(ctx context.Context, count int) {
	if d.publisher == nil {
		return
	}

	event, err := events.NewEvent(events.EventParticipantsRefreshed, "directory", "participants",
		events.ParticipantsRefreshedData{Count: count})
	if err != nil {
		d.logger.Error("building directory event", "error", err)
		return
	}
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn("publishing directory event failed", "error", err)
	}
}

// Run refreshes the directory on a fixed interval until ctx is done.
// Refresh failures are logged and the previous snapshot keeps serving.
func (d *Directory) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.logger.Warn("participant refresh failed, keeping cached list", "error", err)
			}
		}
	}
}

// All returns the current snapshot. The returned slice must not be
// mutated.
func (d *Directory) All() []Participant {
	return *d.snapshot.Load()
}

// Lookup finds an active participant by ID (case-insensitive). It
// returns false for unknown, suspended, or inactive participants.
func (d *Directory) Lookup(participantID string) (Participant, bool) {
	for _, p := range d.All() {
		if strings.EqualFold(p.ID, participantID) && p.Status == StatusActive {
			return p, true
		}
	}
	return Participant{}, false
}

// LookupByBIC finds an active participant by BIC.
func (d *Directory) LookupByBIC(bic string) (Participant, bool) {
	for _, p := range d.All() {
		if strings.EqualFold(p.BIC, bic) && p.Status == StatusActive {
			return p, true
		}
	}
	return Participant{}, false
}
