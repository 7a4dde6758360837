package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"
)

type prunerStub struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (p *prunerStub) DeleteSeenBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.rows, p.err
}

func TestRunUsesMaxAgeCutoff(t *testing.T) {
	now := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	pruner := &prunerStub{rows: 4}
	job := NewDeviceTokenJob(pruner, 30*24*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := now.Add(-30 * 24 * time.Hour); !pruner.cutoff.Equal(want) {
		t.Fatalf("unexpected cutoff: got %s want %s", pruner.cutoff, want)
	}
}

func TestRunDefaultsMaxAge(t *testing.T) {
	job := NewDeviceTokenJob(&prunerStub{}, 0, nil)
	if job.maxAge != defaultTokenMaxAge {
		t.Fatalf("unexpected default max age: %s", job.maxAge)
	}
}

func TestRunWrapsStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	job := NewDeviceTokenJob(&prunerStub{err: storeErr}, time.Hour, nil)

	if err := job.Run(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestRunWithoutStoreIsNoop(t *testing.T) {
	if err := NewDeviceTokenJob(nil, time.Hour, nil).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
