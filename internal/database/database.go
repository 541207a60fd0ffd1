package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/Davayme/chasquigo-backend-sub000/internal/config"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

// Connect opens the configured database, retrying the ping a few times so
// the service can start alongside its database container.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var (
		sqldb *sql.DB
		err   error
	)
	for i := 0; i < retries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to %s (attempt %d/%d)", cfg.Driver, i+1, retries))
		sqldb, err = open(cfg)
		if err == nil {
			if err = sqldb.PingContext(ctx); err == nil {
				break
			}
			sqldb.Close()
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect: %v", err))
		if i < retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", retries, err)
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	if cfg.Driver == "sqlite" {
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func open(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "postgres", "":
		return sql.Open("postgres", cfg.DSN)
	case "sqlite":
		return sql.Open(sqliteshim.ShimName, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

var tables = []interface{}{
	(*models.Departure)(nil),
	(*models.Seat)(nil),
	(*models.PriceConfig)(nil),
	(*models.Passenger)(nil),
	(*models.PurchaseTransaction)(nil),
	(*models.Ticket)(nil),
	(*models.TicketPassenger)(nil),
	(*models.Payment)(nil),
}

// CreateSchema builds the tables and indexes from the models. Postgres
// deployments use the SQL migrations instead; this serves sqlite and tests.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	indexes := []*bun.CreateIndexQuery{
		db.NewCreateIndex().Model((*models.TicketPassenger)(nil)).
			Index("ux_ticket_passengers_active_seat").Unique().IfNotExists().
			Column("departure_id", "seat_id").Where("active"),
		db.NewCreateIndex().Model((*models.TicketPassenger)(nil)).
			Index("ix_ticket_passengers_ticket").IfNotExists().
			Column("ticket_id"),
		db.NewCreateIndex().Model((*models.Passenger)(nil)).
			Index("ux_passengers_id_number").Unique().IfNotExists().
			Column("id_number").Where("deleted_at IS NULL"),
		db.NewCreateIndex().Model((*models.Payment)(nil)).
			Index("ux_payments_method_reference").Unique().IfNotExists().
			Column("method", "external_reference"),
		db.NewCreateIndex().Model((*models.Seat)(nil)).
			Index("ux_seats_bus_number").Unique().IfNotExists().
			Column("bus_id", "number"),
	}
	for _, q := range indexes {
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
