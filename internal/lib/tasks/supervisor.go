// Package tasks реализует супервизор фоновых задач. Обработчики запускают
// через него работу в стиле «отправил и забыл» (например, выдачу подписки
// после webhook), при этом ошибки и паники каждой задачи логируются под
// её идентификатором, а при остановке процесса супервизор дожидается
// завершения начатых задач.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ar2em/subscription-bot/internal/lib/sl"
)

// Supervisor запускает именованные фоновые задачи и отслеживает их завершение.
type Supervisor struct {
	log *slog.Logger
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSupervisor создает новый экземпляр Supervisor.
func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Go запускает задачу в отдельной горутине. Ошибка задачи логируется,
// но не возвращается вызывающему: вызывающая сторона по контракту не ждёт
// результата. После Shutdown новые задачи не принимаются.
func (s *Supervisor) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("tasks: supervisor is shut down")
	}
	s.wg.Add(1)
	s.mu.Unlock()

	jobID := uuid.NewString()
	log := s.log.With(slog.String("job", name), slog.String("job_id", jobID))

	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("job panicked", slog.Any("panic", r))
			}
		}()

		log.Info("job started")
		if err := fn(ctx); err != nil {
			log.Error("job failed", sl.Err(err))
			return
		}
		log.Info("job finished")
	}()
	return nil
}

// Shutdown прекращает приём новых задач и ждёт завершения запущенных
// либо истечения контекста.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tasks: shutdown interrupted: %w", ctx.Err())
	}
}
