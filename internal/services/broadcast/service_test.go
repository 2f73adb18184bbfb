package broadcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/telegram"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListAllUserIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type TelegramMock struct{ mock.Mock }

func (m *TelegramMock) SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	return m.Called(ctx, chatID, text, markup).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(repo *RepoMock, tg *TelegramMock) *Service {
	return New(repo, tg, newNoopLogger(), config.Subscription{
		BroadcastInterval: time.Millisecond,
	})
}

func TestSend(t *testing.T) {
	repo := &RepoMock{}
	tg := &TelegramMock{}
	svc := newService(repo, tg)

	repo.On("ListAllUserIDs", mock.Anything).Return([]int64{1, 2, 3}, nil).Once()
	tg.On("SendMessage", mock.Anything, int64(1), "привет", (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	tg.On("SendMessage", mock.Anything, int64(2), "привет", (*telegram.InlineKeyboardMarkup)(nil)).
		Return(errors.New("bot was blocked by the user")).Once()
	tg.On("SendMessage", mock.Anything, int64(3), "привет", (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	report, err := svc.Send(context.Background(), "привет")
	require.NoError(t, err)
	assert.Equal(t, &Report{Total: 3, Sent: 2, Failed: 1}, report)
	tg.AssertExpectations(t)
}

func TestSend_RepoError(t *testing.T) {
	repo := &RepoMock{}
	tg := &TelegramMock{}
	svc := newService(repo, tg)

	repo.On("ListAllUserIDs", mock.Anything).Return(nil, errors.New("db down")).Once()

	report, err := svc.Send(context.Background(), "привет")
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestSendTo(t *testing.T) {
	repo := &RepoMock{}
	tg := &TelegramMock{}
	svc := newService(repo, tg)

	tg.On("SendMessage", mock.Anything, int64(42), "привет", (*telegram.InlineKeyboardMarkup)(nil)).
		Return(nil).Once()

	err := svc.SendTo(context.Background(), 42, "привет")
	require.NoError(t, err)
	tg.AssertExpectations(t)
	repo.AssertNotCalled(t, "ListAllUserIDs", mock.Anything)
}

func TestSendTo_DeliveryError(t *testing.T) {
	repo := &RepoMock{}
	tg := &TelegramMock{}
	svc := newService(repo, tg)

	tg.On("SendMessage", mock.Anything, int64(42), "привет", (*telegram.InlineKeyboardMarkup)(nil)).
		Return(errors.New("bot was blocked by the user")).Once()

	err := svc.SendTo(context.Background(), 42, "привет")
	assert.Error(t, err)
}

func TestSend_ContextCancelReturnsPartialReport(t *testing.T) {
	repo := &RepoMock{}
	tg := &TelegramMock{}
	svc := New(repo, tg, newNoopLogger(), config.Subscription{
		BroadcastInterval: 50 * time.Millisecond,
	})

	repo.On("ListAllUserIDs", mock.Anything).Return([]int64{1, 2, 3, 4, 5}, nil).Once()
	tg.On("SendMessage", mock.Anything, mock.Anything, "привет",
		(*telegram.InlineKeyboardMarkup)(nil)).Return(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	report, err := svc.Send(ctx, "привет")
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 5, report.Total)
	assert.Less(t, report.Sent, 5)
}
