package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivankudzin/plutonic/backend/internal/domain/events"
	"github.com/ivankudzin/plutonic/backend/internal/infra/metrics"
)

// DefaultChangeChannel is the channel the change triggers publish on.
const DefaultChangeChannel = "plutonic_changes"

type ChangeHandler func(ctx context.Context, event events.Event) error

// ChangeListener holds one dedicated connection in LISTEN mode and hands every
// decoded change to a handler.
type ChangeListener struct {
	pool      *pgxpool.Pool
	channel   string
	logger    *zap.Logger
	reconnect time.Duration
}

func NewChangeListener(pool *pgxpool.Pool, channel string, logger *zap.Logger) *ChangeListener {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChangeChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeListener{
		pool:      pool,
		channel:   channel,
		logger:    logger,
		reconnect: 2 * time.Second,
	}
}

// Run blocks until ctx is done. A dropped connection is re-established after
// a fixed pause; notifications sent while disconnected are lost.
func (l *ChangeListener) Run(ctx context.Context, handle ChangeHandler) error {
	if l.pool == nil {
		return errors.New("postgres pool is nil")
	}
	if handle == nil {
		return errors.New("change handler is nil")
	}

	for {
		err := l.listen(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("change listener disconnected", zap.Error(err), zap.Duration("reconnect_in", l.reconnect))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnect):
		}
	}
}

func (l *ChangeListener) listen(ctx context.Context, handle ChangeHandler) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer func() {
		unlistenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
		cancel()
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("change listener started", zap.String("channel", l.channel))

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		event, err := events.FromNotification(notification.Payload)
		if err != nil {
			l.logger.Warn("skip change notification", zap.Error(err))
			continue
		}
		metrics.ChangeEvent(string(event.Kind()))

		if err := handle(ctx, event); err != nil {
			l.logger.Warn("handle change event failed",
				zap.String("kind", string(event.Kind())),
				zap.Error(err),
			)
		}
	}
}
