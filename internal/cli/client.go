package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/config"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/infra/api"
)

var (
	baseURL    string
	adminToken string
)

// addClientFlags registers the flags shared by commands that call a
// running server.
func addClientFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "server URL (default from client.base_url)")
	cmd.PersistentFlags().StringVar(&adminToken, "token", "", "admin bearer token (default from client.token or server.admin_token)")
}

func newAPIClient(cfg *config.AppConfig) *api.Client {
	c := cfg.Client
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	c.Token = resolveToken(cfg)
	return api.NewClient(c)
}

func resolveToken(cfg *config.AppConfig) string {
	switch {
	case adminToken != "":
		return adminToken
	case cfg.Client.Token != "":
		return cfg.Client.Token
	default:
		return cfg.Server.AdminToken
	}
}

func fail(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, "Error:", msg)
	os.Exit(1)
}
