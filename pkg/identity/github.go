package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// DeviceLogin runs the GitHub device authorization flow and returns the
// resulting GitHub access token. The token is only used once, to exchange
// for an orgsync session at the server; it is never stored locally.
func DeviceLogin(ctx context.Context, clientID string) (string, error) {
	if clientID == "" {
		return "", errors.New("GitHub Client ID is required for authentication")
	}

	oauthConfig := &oauth2.Config{
		ClientID: clientID,
		Scopes:   []string{"read:org"},
		Endpoint: github.Endpoint,
	}

	deviceCode, err := oauthConfig.DeviceAuth(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to request device code: %w", err)
	}

	fmt.Printf("Please visit %s and enter the code: %s\n", deviceCode.VerificationURI, deviceCode.UserCode)
	fmt.Printf("Waiting for the authentication to complete...\n")

	token, err := oauthConfig.DeviceAccessToken(ctx, deviceCode)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	return token.AccessToken, nil
}
