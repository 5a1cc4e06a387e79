package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an API client",
		Long: `Signs a token with JWT_SECRET. The output is the JSON body a client would
get from /auth/refresh; with --refresh it also carries a refresh token.

Scopes: filters:write, categories:write, distributors:write, stats:read, *`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}
	cmd.Flags().String("subject", "", "Client or operator the token is issued to (required)")
	cmd.Flags().StringSlice("scopes", nil, "Comma separated scopes")
	cmd.Flags().Bool("refresh", false, "Also issue a refresh token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func parseScopes(values []string) ([]auth.Scope, error) {
	scopes := make([]auth.Scope, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		s, ok := auth.ParseScope(v)
		if !ok {
			return nil, fmt.Errorf("unknown scope %q", v)
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

func newTokenManager(cfg *config.Config) (*auth.TokenManager, error) {
	return auth.NewTokenManager(auth.Config{
		Secret:     cfg.Security.JWTSecret,
		Algorithm:  cfg.Security.JWTAlgorithm,
		Issuer:     cfg.Security.JWTIssuer,
		AccessTTL:  cfg.Security.AccessTokenTTL,
		RefreshTTL: cfg.Security.RefreshTokenTTL,
	})
}

func runToken(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	rawScopes, _ := cmd.Flags().GetStringSlice("scopes")
	withRefresh, _ := cmd.Flags().GetBool("refresh")

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("--subject must not be empty")
	}
	scopes, err := parseScopes(rawScopes)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Security.GeneratedSecret {
		return fmt.Errorf("JWT_SECRET must be set to issue tokens the server will accept")
	}
	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	var pair *auth.TokenPair
	if withRefresh {
		pair, err = tokens.IssuePair(subject, scopes)
	} else {
		var access string
		access, err = tokens.IssueAccessToken(subject, scopes)
		pair = &auth.TokenPair{AccessToken: access, TokenType: "bearer", ExpiresIn: int64(tokens.AccessTTL().Seconds())}
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pair)
}
