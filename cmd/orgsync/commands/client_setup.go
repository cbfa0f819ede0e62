package commands

import (
	"context"
	"fmt"

	"github.com/tavre/orgsync/pkg/api"
	"github.com/tavre/orgsync/pkg/identity"
)

// staticTokenProvider serves a token passed on the command line instead of
// one stored in the keyring.
type staticTokenProvider string

func (t staticTokenProvider) SessionToken(ctx context.Context) (string, error) {
	return string(t), nil
}

// setupClient builds the directory API client and the keyring-backed identity
// source shared by the commands. The --auth-token flag takes precedence over
// any stored session.
func setupClient(ctx *cliCtx, root *cli) (*api.Client, *identity.KeyringSource, error) {
	source := identity.NewKeyringSource(ctx.OSKeyring, ctx.Logger)

	var tokens api.TokenProvider = source
	if root.AuthToken != "" {
		tokens = staticTokenProvider(root.AuthToken)
	}

	ctx.Logger.Debug("initializing API client", "serverURL", root.ServerURL)
	client, err := api.NewClient(api.ClientConfig{
		ServerURL:         root.ServerURL,
		Tokens:            tokens,
		Logger:            ctx.Logger,
		RequestsPerSecond: 10,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, source, nil
}
