// Package dbtest opens schema-ready in-memory sqlite databases and seeds the
// departure fixtures shared by package tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/Davayme/chasquigo-backend-sub000/internal/database"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

const (
	DepartureID  = "dep-1"
	BusID        = "bus-1"
	FrequencyID  = "freq-1"
	Seat12       = "seat-12"
	SeatVIP1     = "seat-vip-1"
	Seat2        = "seat-2"
	OtherBusSeat = "seat-other-bus"
)

// New returns a fresh database private to t. A single connection keeps the
// in-memory database alive and serializes writers the way a row lock would.
func New(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

// Seed inserts one departure with three seats and its price configuration:
// NORMAL 5.00, VIP 8.00, child 50%, senior 25%, handicapped 30%, tax 12%
// charged on top.
func Seed(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	dep := &models.Departure{
		ID:              DepartureID,
		BusID:           BusID,
		BusNumber:       "42",
		FrequencyID:     FrequencyID,
		OriginCity:      "Quito",
		DestinationCity: "Ambato",
		ServiceDate:     time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		DepartureTime:   "08:30",
	}
	_, err := db.NewInsert().Model(dep).Exec(ctx)
	require.NoError(t, err)

	seats := []*models.Seat{
		{ID: Seat12, BusID: BusID, Number: 12, Type: models.SeatTypeNormal},
		{ID: SeatVIP1, BusID: BusID, Number: 1, Type: models.SeatTypeVIP},
		{ID: Seat2, BusID: BusID, Number: 2, Type: models.SeatTypeNormal},
		{ID: OtherBusSeat, BusID: "bus-2", Number: 12, Type: models.SeatTypeNormal},
	}
	_, err = db.NewInsert().Model(&seats).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(PriceConfig()).Exec(ctx)
	require.NoError(t, err)
}

func PriceConfig() *models.PriceConfig {
	return &models.PriceConfig{
		ID:                  "price-1",
		FrequencyID:         FrequencyID,
		NormalPrice:         decimal.RequireFromString("5.00"),
		VIPPrice:            decimal.RequireFromString("8.00"),
		ChildDiscount:       decimal.RequireFromString("50"),
		SeniorDiscount:      decimal.RequireFromString("25"),
		HandicappedDiscount: decimal.RequireFromString("30"),
		TaxRate:             decimal.RequireFromString("12"),
		IncludesTax:         false,
	}
}
