package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type SeatType string

const (
	SeatTypeNormal SeatType = "NORMAL"
	SeatTypeVIP    SeatType = "VIP"
)

func (t SeatType) Valid() bool {
	switch t {
	case SeatTypeNormal, SeatTypeVIP:
		return true
	}
	return false
}

// Departure is a bus operating a frequency on one service day. It is owned
// by the route catalogue and only read here.
type Departure struct {
	bun.BaseModel `bun:"table:departures"`

	ID              string    `bun:"id,pk" json:"id"`
	BusID           string    `bun:"bus_id,notnull" json:"bus_id"`
	BusNumber       string    `bun:"bus_number" json:"bus_number"`
	FrequencyID     string    `bun:"frequency_id,notnull" json:"frequency_id"`
	OriginCity      string    `bun:"origin_city,notnull" json:"origin_city"`
	DestinationCity string    `bun:"destination_city,notnull" json:"destination_city"`
	ServiceDate     time.Time `bun:"service_date,notnull" json:"service_date"`
	DepartureTime   string    `bun:"departure_time,notnull" json:"departure_time"`
}

// RouteSummary is the human readable line printed on tickets.
func (d *Departure) RouteSummary() string {
	summary := fmt.Sprintf("%s → %s, %s %s", d.OriginCity, d.DestinationCity,
		d.ServiceDate.Format("2006-01-02"), d.DepartureTime)
	if d.BusNumber != "" {
		summary += fmt.Sprintf(" (bus %s)", d.BusNumber)
	}
	return summary
}

type Seat struct {
	bun.BaseModel `bun:"table:seats"`

	ID     string   `bun:"id,pk" json:"id"`
	BusID  string   `bun:"bus_id,notnull" json:"bus_id"`
	Number int      `bun:"number,notnull" json:"number"`
	Type   SeatType `bun:"type,notnull" json:"type"`
}

// PriceConfig holds the fare rules of a frequency. Discounts and tax are
// percentages.
type PriceConfig struct {
	bun.BaseModel `bun:"table:price_configs"`

	ID                  string          `bun:"id,pk" json:"id"`
	FrequencyID         string          `bun:"frequency_id,notnull,unique" json:"frequency_id"`
	NormalPrice         decimal.Decimal `bun:"normal_price,type:decimal(10,2),notnull" json:"normal_price"`
	VIPPrice            decimal.Decimal `bun:"vip_price,type:decimal(10,2),notnull" json:"vip_price"`
	ChildDiscount       decimal.Decimal `bun:"child_discount,type:decimal(5,2),notnull" json:"child_discount"`
	SeniorDiscount      decimal.Decimal `bun:"senior_discount,type:decimal(5,2),notnull" json:"senior_discount"`
	HandicappedDiscount decimal.Decimal `bun:"handicapped_discount,type:decimal(5,2),notnull" json:"handicapped_discount"`
	TaxRate             decimal.Decimal `bun:"tax_rate,type:decimal(5,2),notnull" json:"tax_rate"`
	IncludesTax         bool            `bun:"includes_tax,notnull" json:"includes_tax"`
}

// BasePriceFor picks the fare for a seat type. Anything that is not VIP is
// charged the normal fare.
func (p *PriceConfig) BasePriceFor(t SeatType) decimal.Decimal {
	if t == SeatTypeVIP {
		return p.VIPPrice
	}
	return p.NormalPrice
}

// DiscountFor returns the discount percentage of a passenger type.
func (p *PriceConfig) DiscountFor(t PassengerType) decimal.Decimal {
	switch t {
	case PassengerTypeChild:
		return p.ChildDiscount
	case PassengerTypeSenior:
		return p.SeniorDiscount
	case PassengerTypeHandicapped:
		return p.HandicappedDiscount
	default:
		return decimal.Zero
	}
}
