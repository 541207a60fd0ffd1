package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

// SampleDepartureID is the departure created by SeedSample.
const SampleDepartureID = "dep-sample-uio-amb"

// SeedSample inserts a demo catalogue for local runs: one 40 seat bus whose
// first four seats are VIP, a Quito → Ambato departure tomorrow and its
// fares. Existing rows are left alone, so it is safe to run twice.
func SeedSample(ctx context.Context, db bun.IDB, now time.Time) error {
	const (
		busID       = "bus-sample-07"
		frequencyID = "freq-sample-uio-amb"
	)

	dep := &models.Departure{
		ID:              SampleDepartureID,
		BusID:           busID,
		BusNumber:       "07",
		FrequencyID:     frequencyID,
		OriginCity:      "Quito",
		DestinationCity: "Ambato",
		ServiceDate:     now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1),
		DepartureTime:   "07:15",
	}
	if _, err := db.NewInsert().Model(dep).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed departure: %w", err)
	}

	seats := make([]*models.Seat, 0, 40)
	for n := 1; n <= 40; n++ {
		seatType := models.SeatTypeNormal
		if n <= 4 {
			seatType = models.SeatTypeVIP
		}
		seats = append(seats, &models.Seat{
			ID:     fmt.Sprintf("%s-seat-%02d", busID, n),
			BusID:  busID,
			Number: n,
			Type:   seatType,
		})
	}
	if _, err := db.NewInsert().Model(&seats).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed seats: %w", err)
	}

	price := &models.PriceConfig{
		ID:                  "price-sample-uio-amb",
		FrequencyID:         frequencyID,
		NormalPrice:         decimal.RequireFromString("3.50"),
		VIPPrice:            decimal.RequireFromString("5.25"),
		ChildDiscount:       decimal.RequireFromString("50"),
		SeniorDiscount:      decimal.RequireFromString("50"),
		HandicappedDiscount: decimal.RequireFromString("50"),
		TaxRate:             decimal.RequireFromString("15"),
		IncludesTax:         true,
	}
	if _, err := db.NewInsert().Model(price).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seed price config: %w", err)
	}
	return nil
}
