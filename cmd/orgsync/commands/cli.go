package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/tavre/orgsync/pkg/oskeyring"
)

type cliCtx struct {
	context.Context
	Logger    *slog.Logger
	OSKeyring oskeyring.Service
}

type cli struct {
	Login  LoginCmd  `cmd:"" help:"Authenticate with GitHub using device flow."`
	Logout LogoutCmd `cmd:"" help:"Remove stored session credentials."`
	Whoami WhoamiCmd `cmd:"" help:"Show info about the currently logged-in user."`
	Orgs   OrgsCmd   `cmd:"" help:"Organization operations."`

	ServerURL      string           `env:"ORGSYNC_SERVER_URL" default:"http://localhost:8080" help:"Directory server URL."`
	AuthToken      string           `env:"ORGSYNC_AUTH_TOKEN" help:"Session token override. Skips the keyring when set."`
	GithubClientID string           `env:"ORGSYNC_GITHUB_CLIENT_ID" default:"Iv23liWQpXoLBF92kdTz" help:"GitHub OAuth App Client ID." short:"c"`
	Debug          bool             `help:"Enable debug logging." short:"d"`
	Version        kong.VersionFlag `help:"Show version"`
}

func Execute(version string) {
	// A missing .env file is fine; flags and the environment take over.
	_ = godotenv.Load()

	var cli cli
	ctx := kong.Parse(&cli,
		kong.UsageOnError(),
		kong.Name("orgsync"),
		kong.Description("orgsync keeps a local cache of the organizations you belong to"),
		kong.Vars{"version": version},
	)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := ctx.Run(&cliCtx{
		Context:   context.Background(),
		Logger:    logger,
		OSKeyring: oskeyring.NewSystemService(),
	})
	ctx.FatalIfErrorf(err)
}
