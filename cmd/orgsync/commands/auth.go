package commands

import (
	"fmt"

	"github.com/tavre/orgsync/pkg/identity"
)

type LoginCmd struct{}

func (c *LoginCmd) Run(ctx *cliCtx, root *cli) error {
	if root.GithubClientID == "" {
		return fmt.Errorf("GitHub Client ID must be provided via --github-client-id flag or ORGSYNC_GITHUB_CLIENT_ID env var")
	}

	ctx.Logger.Info("Starting GitHub device login flow...")
	githubToken, err := identity.DeviceLogin(ctx, root.GithubClientID)
	if err != nil {
		ctx.Logger.Error("Authentication failed", "error", err)
		return fmt.Errorf("authentication failed: %w", err)
	}

	client, source, err := setupClient(ctx, root)
	if err != nil {
		return err
	}

	token, expiresAt, err := client.Login(ctx, githubToken)
	if err != nil {
		ctx.Logger.Error("Session exchange failed", "error", err)
		return fmt.Errorf("session exchange failed: %w", err)
	}

	if err := source.StoreSession(ctx, token, expiresAt); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	ctx.Logger.Info("Authentication successful.")
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cliCtx, root *cli) error {
	source := identity.NewKeyringSource(ctx.OSKeyring, ctx.Logger)

	ctx.Logger.Info("Logging out and removing stored session...")
	if err := source.Logout(ctx); err != nil {
		ctx.Logger.Error("Logout failed", "error", err)
		return fmt.Errorf("logout failed: %w", err)
	}
	ctx.Logger.Info("Logout successful.")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cliCtx, root *cli) error {
	source := identity.NewKeyringSource(ctx.OSKeyring, ctx.Logger)

	userID, err := source.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored identity: %w", err)
	}
	if userID == "" {
		fmt.Println("Not logged in.")
		return nil
	}

	login, err := source.Login(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored login: %w", err)
	}

	fmt.Printf("Logged in as:\n")
	fmt.Printf("  Login:   %s\n", login)
	fmt.Printf("  User ID: %s\n", userID)
	fmt.Printf("  Server:  %s\n", root.ServerURL)
	return nil
}
