package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
)

const maxNameLength = 100

// CatalogService manages halls, resources and the user list.  Reads are open
// to any authenticated user except the user list; writes are admin only.
type CatalogService struct {
	stores Stores
	now    Clock
}

func NewCatalogService(stores Stores, now Clock) *CatalogService {
	return &CatalogService{stores: stores, now: orNow(now)}
}

func requireAdmin(actor model.Actor) error {
	if !actor.IsAdmin {
		return apperr.Forbidden("administrators only")
	}
	return nil
}

func cleanName(name, what string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation(what + " name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperr.Validation(what + " name must be at most 100 characters")
	}
	return name, nil
}

func (s *CatalogService) ListHalls(ctx context.Context) ([]*model.Hall, error) {
	return s.stores.Halls.List(ctx)
}

// CreateHall adds a hall with a unique name and positive capacity.
func (s *CatalogService) CreateHall(ctx context.Context, actor model.Actor, name string, capacity int) (*model.Hall, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	h, err := newHall(name, capacity)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Halls.Create(ctx, h, s.now()); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateHall renames or resizes a hall.
func (s *CatalogService) UpdateHall(ctx context.Context, actor model.Actor, id uint64, name string, capacity int) (*model.Hall, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	h, err := newHall(name, capacity)
	if err != nil {
		return nil, err
	}
	h.ID = id
	if err := s.stores.Halls.Update(ctx, h, s.now()); err != nil {
		return nil, err
	}
	return h, nil
}

func newHall(name string, capacity int) (*model.Hall, error) {
	name, err := cleanName(name, "hall")
	if err != nil {
		return nil, err
	}
	if capacity <= 0 || capacity > 1_000_000 {
		return nil, apperr.Validation("capacity must be a positive number")
	}
	return &model.Hall{Name: name, Capacity: uint32(capacity)}, nil
}

func (s *CatalogService) ListResources(ctx context.Context) ([]model.Resource, error) {
	return s.stores.Resources.List(ctx)
}

// CreateResource adds a catalogue resource with a unique name.
func (s *CatalogService) CreateResource(ctx context.Context, actor model.Actor, name string) (*model.Resource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, err := cleanName(name, "resource")
	if err != nil {
		return nil, err
	}
	res := &model.Resource{Name: name}
	if err := s.stores.Resources.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteResource removes a resource no reservation refers to.
func (s *CatalogService) DeleteResource(ctx context.Context, actor model.Actor, id uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.stores.Resources.Delete(ctx, id)
}

// ListUsers pages through accounts.  Administrators only.
func (s *CatalogService) ListUsers(ctx context.Context, actor model.Actor, skip, limit int) ([]*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.stores.Users.List(ctx, skip, limit)
}
