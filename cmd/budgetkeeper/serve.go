package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"budgetkeeper/internal/amqp"
	"budgetkeeper/internal/cli"
	apihttp "budgetkeeper/internal/http"
	"budgetkeeper/internal/log"
	"budgetkeeper/internal/mail"
	"budgetkeeper/internal/middleware/ratelimit"
	"budgetkeeper/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API together with the mail poller, inbox consumer and recurring scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	logger.Info("Starting budgetkeeper", "port", cfg.Port)

	account, err := cli.NewAccount(logger, cfg)
	if err != nil {
		return err
	}
	journal, err := cli.InitJournal(logger, cfg.JournalDBPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	opts := []services.ServiceOption{services.WithJournal(journal)}
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient, cfg.AMQPEventsQueue))
	}
	svc := services.NewLedgerService(account, opts...)

	var poller *services.MailPoller
	if cfg.IMAPEnabled {
		fetcher, err := mail.NewFetcher(mailConfig())
		if err != nil {
			return err
		}
		poller = services.NewMailPoller(fetcher, svc, cfg.MailPollInterval)
	}

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger.WithComponent(log.ComponentHTTP)),
		apihttp.WithRateLimit(ratelimit.DefaultConfig()),
		apihttp.WithReadinessCheck("journal", journal.Ping),
	}
	srv := apihttp.NewServer(":"+cfg.Port, svc, serverOpts...)

	ctx, stop := cli.ShutdownContext(parent, logger)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.RecurringSchedule != "" {
		processor := services.NewRecurringProcessor(svc, cfg.RecurringSchedule)
		g.Go(func() error { return processor.Run(gctx) })
	}

	if poller != nil {
		g.Go(func() error { return poller.Run(gctx) })
	}

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeInbox(gctx, cfg.AMQPInboxQueue, func(ctx context.Context, msg *amqp.InboxMessage) error {
				_, err := svc.Ingest(ctx, services.Message{
					Source:     msg.Source,
					ExternalID: msg.ExternalID,
					Text:       msg.Text,
					ReceivedAt: msg.ReceivedAt,
				})
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	logger.Info("budgetkeeper stopped")
	return err
}

func mailConfig() mail.Config {
	return mail.Config{
		Server:      cfg.IMAPServer,
		Port:        cfg.IMAPPort,
		UseTLS:      cfg.IMAPUseTLS,
		Username:    cfg.IMAPUsername,
		Password:    cfg.IMAPPassword,
		Label:       cfg.IMAPLabel,
		FromAddress: cfg.IMAPFromAddress,
	}
}
