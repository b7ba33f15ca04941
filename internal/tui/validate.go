// ABOUTME: Sign-in validation against a board API.
// ABOUTME: Uses the remote client's login call with a short timeout and no retries.
package tui

import (
	"context"
	"net/http"
	"time"

	"github.com/2389-research/adboard/internal/models"
	"github.com/2389-research/adboard/internal/storage"
)

// ValidateLogin signs in with the given credentials. The context allows
// cancellation when the user quits during validation.
func ValidateLogin(ctx context.Context, apiURL, username, password string) (models.LoginResult, error) {
	retry := storage.NewRetrier()
	retry.MaxRetries = 0
	client := storage.NewRemoteClient(apiURL,
		storage.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		storage.WithRetrier(retry),
	)
	return client.Login(ctx, username, password)
}
