package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/calendar"
)

type credentialStore interface {
	ListCounselorsWithRefreshToken(ctx context.Context) ([]appointment.Counselor, error)
	UpdateCounselorCredential(ctx context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiry *time.Time) error
}

type tokenRefresher interface {
	Refresh(ctx context.Context, cred calendar.Credential) (calendar.Credential, error)
}

// refreshAll renews every stored credential. A failing counselor is logged
// and left with its previous tokens.
func refreshAll(ctx context.Context, store credentialStore, refresher tokenRefresher, logger *zap.Logger) (refreshed, failed int) {
	counselors, err := store.ListCounselorsWithRefreshToken(ctx)
	if err != nil {
		logger.Error("list counselors with refresh token", zap.Error(err))
		return 0, 0
	}

	for _, c := range counselors {
		if ctx.Err() != nil {
			break
		}
		if c.CalendarRefreshToken == nil || *c.CalendarRefreshToken == "" {
			continue
		}

		cred := calendar.Credential{RefreshToken: *c.CalendarRefreshToken}
		if c.CalendarAccessToken != nil {
			cred.AccessToken = *c.CalendarAccessToken
		}

		fresh, err := refresher.Refresh(ctx, cred)
		if err != nil {
			failed++
			logger.Warn("token refresh failed", zap.String("counselor_id", c.ID.String()), zap.Error(err))
			continue
		}

		var refresh *string
		if fresh.RefreshToken != "" && fresh.RefreshToken != cred.RefreshToken {
			refresh = &fresh.RefreshToken
		}
		var expiry *time.Time
		if !fresh.Expiry.IsZero() {
			expiry = &fresh.Expiry
		}

		if err := store.UpdateCounselorCredential(ctx, c.ID, fresh.AccessToken, refresh, expiry); err != nil {
			failed++
			logger.Error("store refreshed token", zap.String("counselor_id", c.ID.String()), zap.Error(err))
			continue
		}
		refreshed++
	}

	logger.Info("token refresh run finished", zap.Int("refreshed", refreshed), zap.Int("failed", failed))
	return refreshed, failed
}
