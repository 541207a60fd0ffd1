// Package pricing computes per-passenger fares from a frequency's price
// configuration. Every monetary value is rounded half-up to cents where it
// is computed, and totals are summed from the rounded per-passenger values.
package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

var hundred = decimal.NewFromInt(100)

type Item struct {
	SeatID        string
	SeatNumber    int
	SeatType      models.SeatType
	PassengerType models.PassengerType
}

type Line struct {
	Item
	BasePrice          decimal.Decimal `json:"base_price"`
	DiscountPercent    decimal.Decimal `json:"discount_percent"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	PriceAfterDiscount decimal.Decimal `json:"price_after_discount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	FinalPrice         decimal.Decimal `json:"final_price"`
}

type Totals struct {
	BaseAmount     decimal.Decimal `json:"base_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

type Quote struct {
	Lines  []Line
	Totals Totals
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Calculate prices each item against cfg.
func Calculate(cfg *models.PriceConfig, items []Item) (*Quote, error) {
	if cfg == nil {
		return nil, apperror.NotFound("price configuration not found")
	}
	if len(items) == 0 {
		return nil, apperror.BadRequest("at least one passenger is required")
	}

	quote := &Quote{Lines: make([]Line, 0, len(items))}
	totals := Totals{
		BaseAmount:     decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		FinalAmount:    decimal.Zero,
	}

	for _, item := range items {
		if !item.PassengerType.Valid() {
			return nil, apperror.BadRequest("invalid passenger type %q", item.PassengerType)
		}

		base := round(cfg.BasePriceFor(item.SeatType))
		percent := cfg.DiscountFor(item.PassengerType)
		discount := round(base.Mul(percent).Div(hundred))
		afterDiscount := round(base.Sub(discount))

		tax := decimal.Zero
		if !cfg.IncludesTax {
			tax = round(afterDiscount.Mul(cfg.TaxRate).Div(hundred))
		}
		final := round(afterDiscount.Add(tax))

		quote.Lines = append(quote.Lines, Line{
			Item:               item,
			BasePrice:          base,
			DiscountPercent:    percent,
			DiscountAmount:     discount,
			PriceAfterDiscount: afterDiscount,
			TaxAmount:          tax,
			FinalPrice:         final,
		})

		totals.BaseAmount = totals.BaseAmount.Add(base)
		totals.DiscountAmount = totals.DiscountAmount.Add(discount)
		totals.TaxAmount = totals.TaxAmount.Add(tax)
		totals.FinalAmount = totals.FinalAmount.Add(final)
	}

	quote.Totals = Totals{
		BaseAmount:     round(totals.BaseAmount),
		DiscountAmount: round(totals.DiscountAmount),
		TaxAmount:      round(totals.TaxAmount),
		FinalAmount:    round(totals.FinalAmount),
	}
	return quote, nil
}

// LoadConfig reads the price configuration of a frequency.
func LoadConfig(ctx context.Context, idb bun.IDB, frequencyID string) (*models.PriceConfig, error) {
	cfg := new(models.PriceConfig)
	err := idb.NewSelect().Model(cfg).Where("frequency_id = ?", frequencyID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("price configuration for frequency %s not found", frequencyID)
	}
	if err != nil {
		return nil, apperror.Internal("failed to load price configuration", fmt.Errorf("select price config: %w", err))
	}
	return cfg, nil
}
