package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
)

type failingOTPs struct {
	repositories.OTPRepository
}

func (failingOTPs) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestPurgeExpiredOTPs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	otps := repositories.NewMemoryOTPRepository()
	require.NoError(t, otps.Upsert(ctx, &models.OTP{Email: "old@example.com", Code: "111111", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, otps.Upsert(ctx, &models.OTP{Email: "edge@example.com", Code: "222222", ExpiresAt: now}))
	require.NoError(t, otps.Upsert(ctx, &models.OTP{Email: "live@example.com", Code: "333333", ExpiresAt: now.Add(time.Minute)}))

	n, err := PurgeExpiredOTPs(ctx, otps, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = otps.GetByEmail(ctx, "live@example.com")
	assert.NoError(t, err)
	_, err = otps.GetByEmail(ctx, "edge@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPurgeExpiredOTPsReturnsStoreErrors(t *testing.T) {
	_, err := PurgeExpiredOTPs(context.Background(), failingOTPs{}, time.Now())
	assert.EqualError(t, err, "connection reset")
}

func TestSchedulerPurgesPeriodically(t *testing.T) {
	ctx := context.Background()
	otps := repositories.NewMemoryOTPRepository()
	require.NoError(t, otps.Upsert(ctx, &models.OTP{Email: "old@example.com", Code: "111111", ExpiresAt: time.Now().Add(-time.Minute)}))

	s, err := NewScheduler(otps, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, s.Jobs(), 1)
	assert.Equal(t, "purge-expired-otps", s.Jobs()[0].Name())

	s.Start()
	t.Cleanup(func() { s.Shutdown() })

	assert.Eventually(t, func() bool {
		_, err := otps.GetByEmail(ctx, "old@example.com")
		return errors.Is(err, errs.ErrNotFound)
	}, 2*time.Second, 20*time.Millisecond)
}
