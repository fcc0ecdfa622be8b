package service

import (
	"context"
	"fmt"

	"roombook/internal/cache"
	"roombook/internal/config"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves room catalog reads, optionally through a Redis cache.
type CatalogService struct {
	repo   CatalogRepository
	cache  *cache.Cache
	logger *zerolog.Logger
}

func NewCatalogService(repo CatalogRepository, c *cache.Cache, logger *zerolog.Logger) *CatalogService {
	l := logger.With().Str("component", "catalog").Logger()
	return &CatalogService{
		repo:   repo,
		cache:  c,
		logger: &l,
	}
}

// ListActiveRooms returns active rooms ordered by floor, then name.
func (s *CatalogService) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if s.cache.Get(ctx, "rooms", &rooms) {
		return rooms, nil
	}

	rooms, err := s.repo.ListActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, "rooms", rooms)
	return rooms, nil
}

// ListFloors returns the ascending distinct floors that have active rooms.
func (s *CatalogService) ListFloors(ctx context.Context) ([]int, error) {
	var floors []int
	if s.cache.Get(ctx, "floors", &floors) {
		return floors, nil
	}

	floors, err := s.repo.ListFloors(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, "floors", floors)
	return floors, nil
}

// ListRoomsOnFloor returns active rooms on floor ordered by name.
func (s *CatalogService) ListRoomsOnFloor(ctx context.Context, floor int) ([]models.Room, error) {
	key := fmt.Sprintf("floor:%d", floor)

	var rooms []models.Room
	if s.cache.Get(ctx, key, &rooms) {
		return rooms, nil
	}

	rooms, err := s.repo.ListRoomsOnFloor(ctx, floor)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, rooms)
	return rooms, nil
}

// GetRoom returns the active room with id, or nil when there is none.
func (s *CatalogService) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	key := fmt.Sprintf("room:%d", id)

	var room models.Room
	if s.cache.Get(ctx, key, &room) {
		return &room, nil
	}

	found, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if found != nil {
		s.cache.Set(ctx, key, found)
	}
	return found, nil
}

// ApplyConfig syncs rooms.yaml into storage and drops cached catalog entries.
func (s *CatalogService) ApplyConfig(ctx context.Context, cfg *config.RoomsConfig) error {
	if err := s.repo.SyncRoomsFromConfig(ctx, cfg); err != nil {
		return fmt.Errorf("sync rooms: %w", err)
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to invalidate catalog cache")
	}
	s.logger.Info().Str("summary", cfg.String()).Msg("Room catalog applied")
	return nil
}
