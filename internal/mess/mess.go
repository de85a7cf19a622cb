// Package mess implements mess lifecycle operations: creation, invite-code
// joining, manager transfer and meal-settings management.
package mess

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage"
)

// Service provides mess lifecycle operations.
type Service struct {
	store storage.Store
}

// New creates a mess service backed by the given store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// Identity is the opaque member identity supplied by the identity provider.
type Identity struct {
	UserID      string
	DisplayName string
	PhotoURL    string
}

// Create creates a mess with the creator as its manager and default meal
// settings in place.
func (s *Service) Create(ctx context.Context, creator Identity, name string) (*models.Mess, error) {
	if name == "" {
		return nil, errs.Validationf("mess name must not be empty")
	}
	if creator.UserID == "" {
		return nil, errs.Validationf("creator id must not be empty")
	}

	m := &models.Mess{
		Name:       name,
		ManagerID:  creator.UserID,
		InviteCode: newInviteCode(),
	}
	if err := s.store.CreateMess(ctx, m); err != nil {
		return nil, err
	}

	member := &models.Member{
		ID:          creator.UserID,
		MessID:      m.ID,
		DisplayName: creator.DisplayName,
		PhotoURL:    creator.PhotoURL,
		Role:        models.RoleManager,
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	if err := s.store.PutMealSettings(ctx, models.DefaultMealSettings(m.ID)); err != nil {
		return nil, err
	}

	slog.Info("mess created", "mess_id", m.ID, "name", m.Name, "manager_id", m.ManagerID)
	return m, nil
}

// Join adds a member to the mess matching the invite code.
func (s *Service) Join(ctx context.Context, joiner Identity, inviteCode string) (*models.Mess, error) {
	if joiner.UserID == "" {
		return nil, errs.Validationf("joiner id must not be empty")
	}
	m, err := s.store.GetMessByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(inviteCode)))
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		ID:          joiner.UserID,
		MessID:      m.ID,
		DisplayName: joiner.DisplayName,
		PhotoURL:    joiner.PhotoURL,
		Role:        models.RoleMember,
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	slog.Info("member joined", "mess_id", m.ID, "member_id", joiner.UserID)
	return m, nil
}

// TransferManager moves the manager role from the acting manager to another
// member. The demotion and promotion happen atomically so the mess never has
// zero or two managers.
func (s *Service) TransferManager(ctx context.Context, actor models.Actor, messID, newManagerID string) error {
	if !actor.IsManager() {
		return &errs.PermissionError{Action: "transfer manager", Msg: "manager role required"}
	}
	if newManagerID == actor.ID {
		return errs.Validationf("cannot transfer the manager role to yourself")
	}
	if _, err := s.store.GetMember(ctx, messID, newManagerID); err != nil {
		return err
	}

	if err := s.store.TransferManager(ctx, messID, actor.ID, newManagerID); err != nil {
		return err
	}
	slog.Info("manager transferred", "mess_id", messID, "from", actor.ID, "to", newManagerID)
	return nil
}

// Members lists the members of a mess.
func (s *Service) Members(ctx context.Context, messID string) ([]*models.Member, error) {
	return s.store.ListMembers(ctx, messID)
}

// Settings returns the mess's meal settings.
func (s *Service) Settings(ctx context.Context, messID string) (*models.MealSettings, error) {
	return s.store.GetMealSettings(ctx, messID)
}

// UpdateSettings replaces the meal settings. Manager only.
func (s *Service) UpdateSettings(ctx context.Context, actor models.Actor, settings *models.MealSettings) error {
	if !actor.IsManager() {
		return &errs.PermissionError{Action: "update settings", Msg: "manager role required"}
	}
	for _, cutoff := range []string{settings.BreakfastCutoff, settings.LunchCutoff, settings.DinnerCutoff} {
		if len(cutoff) != 5 || cutoff[2] != ':' {
			return errs.Validationf("cutoff times must be in HH:MM format, got %q", cutoff)
		}
	}
	if err := s.store.PutMealSettings(ctx, settings); err != nil {
		return err
	}
	slog.Info("meal settings updated", "mess_id", settings.MessID, "by", actor.ID)
	return nil
}

// newInviteCode returns a short uppercase join code.
func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
