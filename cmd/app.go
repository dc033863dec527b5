package cmd

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/db"
	"github.com/ginjaninja78/invoice-batch/internal/email"
	"github.com/ginjaninja78/invoice-batch/internal/generator"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/source"
)

// buildGenerator wires the configured source, metadata store, mailer and
// renderer into a Generator. The caller must Close it. The source and the
// mailer log under their own child names.
func buildGenerator(ctx context.Context, cfg *config.Config, logger *logging.ZapLogger) (*generator.Generator, error) {
	src, err := source.Open(ctx, cfg.Database, logger.Named("source"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", cfg.Database.Type, err)
	}

	store, err := openMetadataStore(ctx, cfg, src, logger)
	if err != nil {
		src.Close()
		return nil, err
	}

	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		src.Close()
		return nil, err
	}

	return generator.New(generator.Options{
		Config: cfg,
		Source: src,
		Store:  store,
		Mailer: mailer,
		Logger: logger,
	}), nil
}

// openMetadataStore returns the store that shares the source's connection.
// File sources have no database, so metadata is not persisted for them.
func openMetadataStore(ctx context.Context, cfg *config.Config, src source.Source, logger logging.Logger) (db.MetadataStore, error) {
	switch s := src.(type) {
	case *source.PostgresSource:
		store := db.NewPostgresMetadataStore(s.DB(), cfg.Database.Postgres.MetadataTable)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case *source.MongoSource:
		coll := s.Database().Collection(cfg.Database.MongoDB.MetadataCollection)
		store := db.NewMongoMetadataStore(coll)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	default:
		logger.Debug("Invoice metadata is not persisted for %s sources", cfg.Database.Type)
		return nil, nil
	}
}

// buildMailer creates the InvoiceMailer over the configured transport.
func buildMailer(cfg *config.Config, logger *logging.ZapLogger) (*email.InvoiceMailer, error) {
	logger = logger.Named("email")
	sender, err := email.NewSender(cfg.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure email: %w", err)
	}
	return email.NewInvoiceMailer(cfg, sender, logger), nil
}
