package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"tradehub/internal/repositories"
)

const purgeTimeout = 30 * time.Second

// PurgeExpiredOTPs deletes every reset code that expired before now.
func PurgeExpiredOTPs(ctx context.Context, otps repositories.OTPRepository, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := otps.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		zap.L().Info("purged expired reset codes", zap.Int64("count", n))
	}
	return n, nil
}

// NewScheduler registers the OTP purge to run every interval. The caller starts
// and shuts down the returned scheduler.
func NewScheduler(otps repositories.OTPRepository, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := PurgeExpiredOTPs(context.Background(), otps, time.Now()); err != nil {
				zap.L().Error("otp purge failed", zap.Error(err))
			}
		}),
		gocron.WithName("purge-expired-otps"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule otp purge: %w", err)
	}
	return s, nil
}
