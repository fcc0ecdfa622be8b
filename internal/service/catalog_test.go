package service

import (
	"context"
	"io"
	"testing"
	"time"

	"roombook/internal/cache"
	"roombook/internal/config"
	"roombook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalogRepo struct {
	mock.Mock
}

func (m *mockCatalogRepo) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *mockCatalogRepo) ListFloors(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int), args.Error(1)
}

func (m *mockCatalogRepo) ListRoomsOnFloor(ctx context.Context, floor int) ([]models.Room, error) {
	args := m.Called(ctx, floor)
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *mockCatalogRepo) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *mockCatalogRepo) SyncRoomsFromConfig(ctx context.Context, cfg *config.RoomsConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func newCachedCatalog(t *testing.T) (*CatalogService, *mockCatalogRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	repo := new(mockCatalogRepo)
	logger := zerolog.New(io.Discard)
	return NewCatalogService(repo, cache.New(client, time.Minute, "test:catalog:"), &logger), repo
}

func TestCatalogService_CachesReads(t *testing.T) {
	svc, repo := newCachedCatalog(t)
	ctx := context.Background()

	rooms := []models.Room{{ID: 1, Name: "Room 2A", Floor: 2, Capacity: 4, IsActive: true}}
	repo.On("ListActiveRooms", ctx).Return(rooms, nil).Once()
	repo.On("ListFloors", ctx).Return([]int{2}, nil).Once()
	repo.On("ListRoomsOnFloor", ctx, 2).Return(rooms, nil).Once()
	repo.On("GetRoom", ctx, int64(1)).Return(&rooms[0], nil).Once()

	for i := 0; i < 2; i++ {
		got, err := svc.ListActiveRooms(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Room 2A", got[0].Name)

		floors, err := svc.ListFloors(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, floors)

		onFloor, err := svc.ListRoomsOnFloor(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, onFloor, 1)

		room, err := svc.GetRoom(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Equal(t, 4, room.Capacity)
	}

	repo.AssertExpectations(t)
}

func TestCatalogService_MissingRoomNotCached(t *testing.T) {
	svc, repo := newCachedCatalog(t)
	ctx := context.Background()

	repo.On("GetRoom", ctx, int64(9)).Return(nil, nil).Twice()

	for i := 0; i < 2; i++ {
		room, err := svc.GetRoom(ctx, 9)
		require.NoError(t, err)
		assert.Nil(t, room)
	}
	repo.AssertExpectations(t)
}

func TestCatalogService_ApplyConfigInvalidates(t *testing.T) {
	svc, repo := newCachedCatalog(t)
	ctx := context.Background()

	repo.On("ListFloors", ctx).Return([]int{2}, nil).Once()
	_, err := svc.ListFloors(ctx)
	require.NoError(t, err)

	cfg := &config.RoomsConfig{Rooms: []config.RoomConfig{{ID: 1, Name: "Room 3A", Floor: 3, Capacity: 4}}}
	repo.On("SyncRoomsFromConfig", ctx, cfg).Return(nil).Once()
	require.NoError(t, svc.ApplyConfig(ctx, cfg))

	repo.On("ListFloors", ctx).Return([]int{3}, nil).Once()
	floors, err := svc.ListFloors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, floors)

	repo.AssertExpectations(t)
}
