package main

import (
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/leadmagnet/leadmagnet-cli/internal/finder"
	"github.com/leadmagnet/leadmagnet-cli/internal/normalizer"
	"github.com/leadmagnet/leadmagnet-cli/internal/session"
	anthropicpkg "github.com/leadmagnet/leadmagnet-cli/pkg/anthropic"
	sfpkg "github.com/leadmagnet/leadmagnet-cli/pkg/salesforce"
)

// newSession wires the AI boundaries into a fresh in-memory session.
func newSession() (*session.Session, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (LEADMAGNET_ANTHROPIC_KEY)")
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	f := finder.New(client, cfg.Anthropic.Model, cfg.Finder)
	n := normalizer.New(client, cfg.Anthropic.Model, cfg.Normalizer)

	return session.New(f, n, cfg.Session), nil
}

// initSalesforce builds the JWT-authenticated Salesforce client for the CRM
// push. Returns (nil, nil) when Salesforce is not configured.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, nil
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RequestsPerSecond)), nil
}
