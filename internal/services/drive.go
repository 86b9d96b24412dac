package services

import (
	"context"

	"github.com/dms/backend/internal/config"
	"github.com/dms/backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
)

// DriveAuthService mediates the authorization-code exchange that grants the
// browser a token for direct uploads to Google Drive. The oauth2 config is
// immutable and tokens never land on shared process state; the access token
// goes straight to a client cookie.
type DriveAuthService struct {
	oauthConfig *oauth2.Config
}

func NewDriveAuthService(cfg config.GoogleConfig) *DriveAuthService {
	return NewDriveAuthServiceWithEndpoint(cfg, google.Endpoint)
}

// NewDriveAuthServiceWithEndpoint exists so tests can point the exchange at
// a local token server.
func NewDriveAuthServiceWithEndpoint(cfg config.GoogleConfig, endpoint oauth2.Endpoint) *DriveAuthService {
	return &DriveAuthService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", drive.DriveFileScope},
			Endpoint:     endpoint,
		},
	}
}

// AuthCodeURL returns the URL to send the user to for Google consent,
// scoped to profile plus per-file Drive access.
func (s *DriveAuthService) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state)
}

// Exchange trades the callback code for an access/refresh token pair.
func (s *DriveAuthService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		logger.Warn("drive_oauth_exchange_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return token, nil
}
