package bootstrap

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"

	infraes "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/elasticsearch"
	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/config"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/database"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/storage"
)

// PersistenceComponents holds the report sinks. Every field is nil when its
// backend is disabled.
type PersistenceComponents struct {
	DB       *sqlx.DB
	Reports  *database.ReportRepository
	Archiver *storage.Archiver
	ES       *es.Client
	Indexer  *storage.Indexer
}

// Close releases the database connection.
func (p *PersistenceComponents) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}

// SetupPersistence connects every enabled report backend. An enabled backend
// that cannot be reached fails startup.
func SetupPersistence(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*PersistenceComponents, error) {
	p := &PersistenceComponents{}

	if cfg.Database.Enabled {
		log.Info("Connecting to PostgreSQL database",
			infralogger.String("host", cfg.Database.Host),
			infralogger.String("port", cfg.Database.Port),
			infralogger.String("database", cfg.Database.DBName),
		)
		db, err := database.NewPostgresConnection(cfg.Database.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		p.DB = db
		p.Reports = database.NewReportRepository(db)
		log.Info("Database connected successfully")
	}

	if cfg.Storage.Enabled {
		archiver, err := storage.NewArchiver(cfg.Storage, log)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create report archiver: %w", err)
		}
		if err = archiver.EnsureBucket(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to prepare report bucket: %w", err)
		}
		p.Archiver = archiver
	}

	if cfg.Elasticsearch.Enabled {
		client, err := infraes.NewClient(ctx, cfg.Elasticsearch, log)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		indexer := storage.NewIndexer(client, cfg.Elasticsearch.ReportIndex, log)
		if err = indexer.EnsureIndex(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to prepare report index: %w", err)
		}
		p.ES = client
		p.Indexer = indexer
	}

	return p, nil
}
