package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// ErrAdminNotFound is returned once discovery gives up. The chat page stays
// usable; sending is simply disabled until an admin account exists.
var ErrAdminNotFound = &common.AppError{
	Code:       "ADMIN_NOT_FOUND",
	Message:    "no support agent is available",
	HTTPStatus: http.StatusServiceUnavailable,
}

// UserSource lists upstream accounts for counterpart discovery.
type UserSource interface {
	Users(ctx context.Context) ([]upstream.User, error)
}

// Discovery locates the admin counterpart a customer chats with. The user
// listing can lag behind login, so lookup retries a bounded number of times
// before giving up.
type Discovery struct {
	Users       UserSource
	MaxAttempts int
	Delay       time.Duration
	Logger      zerolog.Logger

	// sleep is swapped out in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDiscovery constructs a Discovery with the given bounds. Non-positive
// values fall back to 3 attempts spaced 2 seconds apart.
func NewDiscovery(users UserSource, maxAttempts int, delay time.Duration, logger zerolog.Logger) *Discovery {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Discovery{
		Users:       users,
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Logger:      logger,
		sleep:       sleepCtx,
	}
}

// FindAdmin returns the first user carrying the admin role. Between attempts
// it waits for the configured delay; cancelling the context aborts the wait
// immediately.
func (d *Discovery) FindAdmin(ctx context.Context) (upstream.User, error) {
	var lastErr error
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		users, err := d.Users.Users(ctx)
		if err != nil {
			lastErr = err
			d.Logger.Warn().Int("attempt", attempt).Err(err).Msg("admin discovery fetch failed")
		} else {
			for _, u := range users {
				if u.Role == session.RoleAdmin {
					obs.ChatDiscovery("found")
					return u, nil
				}
			}
			d.Logger.Debug().Int("attempt", attempt).Int("users", len(users)).Msg("no admin account yet")
		}
		if attempt == d.MaxAttempts {
			break
		}
		if err := d.sleep(ctx, d.Delay); err != nil {
			return upstream.User{}, err
		}
	}
	obs.ChatDiscovery("exhausted")
	if lastErr != nil {
		return upstream.User{}, fmt.Errorf("admin discovery: %w", errors.Join(ErrAdminNotFound, lastErr))
	}
	return upstream.User{}, ErrAdminNotFound
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
