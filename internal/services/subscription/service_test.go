package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) UpsertUser(ctx context.Context, userID int64, username, firstName string) error {
	return m.Called(ctx, userID, username, firstName).Error(0)
}

func (m *RepoMock) MarkPaymentAttempt(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RepoMock) HasPaymentAttempt(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *RepoMock) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *RepoMock) GetStats(ctx context.Context) (*models.Stats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.Stats)
	return stats, args.Error(1)
}

func (m *RepoMock) CreateEntry(ctx context.Context, entry models.Subscription) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *RepoMock) GetEntry(ctx context.Context, userID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) GetEntryByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionRef)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) CancelEntry(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *RepoMock) CreateCancellation(ctx context.Context, userID int64, username, reason string, subscriptionRef *string) error {
	return m.Called(ctx, userID, username, reason, subscriptionRef).Error(0)
}

func (m *RepoMock) ExportData(ctx context.Context) (*models.Export, error) {
	args := m.Called(ctx)
	export, _ := args.Get(0).(*models.Export)
	return export, args.Error(1)
}

func (m *RepoMock) ListCancellations(ctx context.Context, limit, offset int) ([]*models.Cancellation, error) {
	args := m.Called(ctx, limit, offset)
	list, _ := args.Get(0).([]*models.Cancellation)
	return list, args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(repo *RepoMock, cache *CacheMock) *Service {
	return New(repo, cache, newNoopLogger(), config.Subscription{
		DurationDays:          30,
		MaxCancelReasonLength: 500,
	})
}

func TestGrant_DefaultDuration(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	var created models.Subscription
	repo.On("CreateEntry", mock.Anything, mock.MatchedBy(func(e models.Subscription) bool {
		created = e
		return e.UserID == 42
	})).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "subscription:42").Return(nil).Once()

	sub, err := svc.Grant(context.Background(), 42, 0, "https://t.me/+abc", "tribute", "tr_don_1")
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, models.StatusActive, created.Status)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), created.ExpiresAt, time.Minute)
	require.NotNil(t, created.SubscriptionRef)
	assert.Equal(t, "tr_don_1", *created.SubscriptionRef)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestGrant_CustomDuration(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	repo.On("CreateEntry", mock.Anything, mock.MatchedBy(func(e models.Subscription) bool {
		return time.Until(e.ExpiresAt) > 6*24*time.Hour && time.Until(e.ExpiresAt) <= 7*24*time.Hour
	})).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "subscription:42").Return(nil).Once()

	_, err := svc.Grant(context.Background(), 42, 7, "", "admin", "")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestGrant_RepoError(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	repo.On("CreateEntry", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	sub, err := svc.Grant(context.Background(), 42, 0, "", "tribute", "")
	assert.Error(t, err)
	assert.Nil(t, sub)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestStatus_CacheHit(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	cached := models.Subscription{UserID: 42, Status: models.StatusActive}
	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*models.Subscription) = cached
		}).Return(true, nil).Once()

	sub, err := svc.Status(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, int64(42), sub.UserID)
	repo.AssertNotCalled(t, "GetEntry", mock.Anything, mock.Anything)
}

func TestStatus_CacheMiss(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	stored := &models.Subscription{UserID: 42, Status: models.StatusActive}
	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntry", mock.Anything, int64(42)).Return(stored, nil).Once()
	cache.On("Set", mock.Anything, "subscription:42", stored, cacheTTL).Return(nil).Once()

	sub, err := svc.Status(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, stored, sub)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestStatus_NoSubscription(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(false, nil).Once()
	repo.On("GetEntry", mock.Anything, int64(42)).Return(nil, nil).Once()

	sub, err := svc.Status(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, sub)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		name string
		sub  *models.Subscription
		want bool
	}{
		{
			name: "active with time left",
			sub:  &models.Subscription{Status: models.StatusActive, ExpiresAt: time.Now().Add(time.Hour)},
			want: true,
		},
		{
			name: "cancelled with time left keeps access",
			sub:  &models.Subscription{Status: models.StatusCancelled, ExpiresAt: time.Now().Add(time.Hour)},
			want: true,
		},
		{
			name: "active but past due",
			sub:  &models.Subscription{Status: models.StatusActive, ExpiresAt: time.Now().Add(-time.Hour)},
			want: false,
		},
		{
			name: "expired",
			sub:  &models.Subscription{Status: models.StatusExpired, ExpiresAt: time.Now().Add(time.Hour)},
			want: false,
		},
		{
			name: "no subscription",
			sub:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &RepoMock{}
			cache := &CacheMock{}
			svc := newService(repo, cache)

			cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
			cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			repo.On("GetEntry", mock.Anything, int64(42)).Return(tt.sub, nil)

			active, err := svc.IsActive(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, tt.want, active)
		})
	}
}

func TestCancel(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	ref := "tr_don_1"
	sub := &models.Subscription{UserID: 42, SubscriptionRef: &ref}
	repo.On("GetEntry", mock.Anything, int64(42)).Return(sub, nil).Once()
	repo.On("CancelEntry", mock.Anything, int64(42)).Return(nil).Once()
	repo.On("CreateCancellation", mock.Anything, int64(42), "alice", "too expensive", &ref).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "subscription:42").Return(nil).Once()

	err := svc.Cancel(context.Background(), 42, "alice", "too expensive")
	require.NoError(t, err)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCancel_TruncatesReason(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	longReason := strings.Repeat("ы", 600)
	repo.On("GetEntry", mock.Anything, int64(42)).Return(&models.Subscription{UserID: 42}, nil).Once()
	repo.On("CancelEntry", mock.Anything, int64(42)).Return(nil).Once()
	repo.On("CreateCancellation", mock.Anything, int64(42), "alice",
		mock.MatchedBy(func(reason string) bool {
			return len([]rune(reason)) == 500
		}), (*string)(nil)).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "subscription:42").Return(nil).Once()

	err := svc.Cancel(context.Background(), 42, "alice", longReason)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCancel_NoSubscription(t *testing.T) {
	repo := &RepoMock{}
	cache := &CacheMock{}
	svc := newService(repo, cache)

	repo.On("GetEntry", mock.Anything, int64(42)).Return(nil, nil).Once()

	err := svc.Cancel(context.Background(), 42, "alice", "reason")
	assert.ErrorIs(t, err, ErrNoSubscription)
	repo.AssertNotCalled(t, "CancelEntry", mock.Anything, mock.Anything)
}
