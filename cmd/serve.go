package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/NoCodeNode/scamometer/config"
	"github.com/NoCodeNode/scamometer/internal/analysis"
	"github.com/NoCodeNode/scamometer/internal/api"
	"github.com/NoCodeNode/scamometer/internal/batch"
	"github.com/NoCodeNode/scamometer/internal/doh"
	"github.com/NoCodeNode/scamometer/internal/model"
	"github.com/NoCodeNode/scamometer/internal/rdap"
	"github.com/NoCodeNode/scamometer/internal/store"
	"github.com/NoCodeNode/scamometer/internal/webhook"
)

// serveCmd is the cobra command that starts the scamometer API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the scamometer api server",
	Run: func(cmd *cobra.Command, _ []string) {
		err := serve(cmd.Context())
		cobra.CheckErr(err)
	},
}

// init registers the serve command on the root command
func init() {
	rootCmd.AddCommand(serveCmd)
}

// serve initializes dependencies and starts the scamometer API server
func serve(ctx context.Context) error {
	cfg := config.New()

	st, err := store.Open(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	settings := st.Settings()
	creds := &credentials{settings: settings, fallback: cfg.ModelAPIKey}

	dnsResolver := doh.NewResolver(
		doh.WithEndpoints(cfg.DoHPrimaryURL, cfg.DoHFallbackURL),
		doh.WithTimeout(cfg.DNSTimeout),
		doh.WithCacheTTL(cfg.DNSCacheTTL),
	)

	rdapClient := rdap.NewClient(
		rdap.WithBaseURL(cfg.RDAPBaseURL),
		rdap.WithTimeout(cfg.RDAPTimeout),
		rdap.WithCacheTTL(cfg.RDAPCacheTTL),
	)

	orchestrator, err := analysis.New(analysis.Config{
		Results: st.Analyses(),
		Lists:   st.Lists(),
		DNS:     dnsResolver,
		RDAP:    rdapClient,
		Scorer: &modelScorer{
			endpoint:  cfg.ModelEndpoint,
			modelName: cfg.ModelName,
			timeout:   cfg.ModelTimeout,
			creds:     creds,
		},
		Credentials: creds,
	})
	if err != nil {
		return fmt.Errorf("setting up analysis pipeline: %w", err)
	}

	controller, err := batch.New(batch.Config{
		Store:       st.Batches(),
		Analyzer:    orchestrator,
		Tabs:        batch.NewLocalTabs(),
		Notifier:    setupWebhook(cfg, settings),
		Cooldown:    cfg.BatchCooldown,
		LoadTimeout: cfg.TabLoadTimeout,
	})
	if err != nil {
		return fmt.Errorf("setting up batch controller: %w", err)
	}

	handler := api.NewRouter(api.NewHandler(orchestrator, controller, st.Analyses()))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("starting scamometer service")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	return nil
}

// setupWebhook initializes the completion notifier, returning nil when
// unconfigured. Stored settings win over the environment.
func setupWebhook(cfg *config.Config, settings *store.Settings) batch.Notifier {
	url, auth, enabled, err := settings.Webhook()
	if err != nil {
		log.Error().Err(err).Msg("reading webhook settings")
	}

	if url == "" {
		url, auth, enabled = cfg.WebhookURL, cfg.WebhookAuth, cfg.WebhookEnabled
	}

	if !enabled || url == "" {
		log.Info().Msg("completion webhook not configured, skipping")
		return nil
	}

	var opts []webhook.Option
	if auth != "" {
		opts = append(opts, webhook.WithAuth(auth))
	}

	client, err := webhook.New(url, opts...)
	if err != nil {
		log.Error().Err(err).Msg("setting up webhook client")
		return nil
	}

	return client
}

// credentials resolves the model key from stored settings, falling back to
// the environment
type credentials struct {
	settings *store.Settings
	fallback string
}

// APIKey returns the effective model key, empty when none is configured
func (c *credentials) APIKey() (string, error) {
	key, err := c.settings.APIKey()
	if err != nil {
		return "", err
	}

	if key == "" {
		key = c.fallback
	}

	return key, nil
}

// modelScorer builds a model client per call so key and model changes made
// at runtime take effect without a restart
type modelScorer struct {
	endpoint  string
	modelName string
	timeout   time.Duration
	creds     *credentials
}

// Score resolves the current credentials and invokes the model
func (s *modelScorer) Score(ctx context.Context, payload model.Payload) (model.Verdict, error) {
	key, err := s.creds.APIKey()
	if err != nil {
		return model.Verdict{}, err
	}

	name, err := s.creds.settings.ModelName()
	if err != nil {
		return model.Verdict{}, err
	}

	if name == "" {
		name = s.modelName
	}

	client, err := model.NewClient(key, name,
		model.WithEndpoint(s.endpoint),
		model.WithTimeout(s.timeout),
	)
	if err != nil {
		return model.Verdict{}, err
	}

	return client.Score(ctx, payload)
}
