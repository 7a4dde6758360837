package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultTokenMaxAge = 60 * 24 * time.Hour

type tokenPruner interface {
	DeleteSeenBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job removes push device tokens that have not been re-registered within
// maxAge. Clients refresh their token on every app start.
type Job struct {
	tokens tokenPruner
	maxAge time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewDeviceTokenJob(tokens tokenPruner, maxAge time.Duration, logger *zap.Logger) *Job {
	if maxAge <= 0 {
		maxAge = defaultTokenMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		tokens: tokens,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger,
	}
}

func (j *Job) Name() string {
	return "device_token_prune"
}

func (j *Job) Run(ctx context.Context) error {
	if j.tokens == nil {
		return nil
	}

	cutoff := j.now().Add(-j.maxAge)
	rows, err := j.tokens.DeleteSeenBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune device tokens: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup device tokens completed", zap.Int64("deleted", rows), zap.Time("cutoff", cutoff))
	}
	return nil
}
