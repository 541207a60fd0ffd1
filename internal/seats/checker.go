package seats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

type Availability struct {
	DepartureID   string `json:"departure_id"`
	Available     bool   `json:"available"`
	OccupiedSeats []int  `json:"occupied_seats,omitempty"`
}

// Checker answers seat questions for a departure. Every method that takes a
// bun.IDB runs on the caller's transaction when one is passed.
type Checker struct {
	DB bun.IDB
}

func NewChecker(db bun.IDB) *Checker {
	return &Checker{DB: db}
}

func LoadDeparture(ctx context.Context, idb bun.IDB, departureID string) (*models.Departure, error) {
	dep := new(models.Departure)
	err := idb.NewSelect().Model(dep).Where("id = ?", departureID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("departure %s not found", departureID)
	}
	if err != nil {
		return nil, apperror.Internal("failed to load departure", fmt.Errorf("select departure %s: %w", departureID, err))
	}
	return dep, nil
}

// LoadSeats returns the requested seats in request order. Every seat must
// exist and belong to the departure's bus.
func LoadSeats(ctx context.Context, idb bun.IDB, dep *models.Departure, seatIDs []string) ([]models.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, apperror.BadRequest("no seats requested")
	}
	seen := make(map[string]bool, len(seatIDs))
	for _, id := range seatIDs {
		if seen[id] {
			return nil, apperror.BadRequest("seat %s requested more than once", id)
		}
		seen[id] = true
	}

	var found []models.Seat
	err := idb.NewSelect().Model(&found).
		Where("id IN (?)", bun.In(seatIDs)).
		Where("bus_id = ?", dep.BusID).
		Scan(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to load seats", fmt.Errorf("select seats: %w", err))
	}

	byID := make(map[string]models.Seat, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	ordered := make([]models.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		s, ok := byID[id]
		if !ok {
			return nil, apperror.NotFound("seat %s not found on bus %s", id, dep.BusID)
		}
		ordered = append(ordered, s)
	}
	return ordered, nil
}

// OccupiedSeatNumbers lists the seat numbers among seatIDs held by an
// active ticket on the departure.
func OccupiedSeatNumbers(ctx context.Context, idb bun.IDB, departureID string, seatIDs []string) ([]int, error) {
	var numbers []int
	err := idb.NewSelect().
		TableExpr("ticket_passengers AS tp").
		Join("JOIN tickets AS t ON t.id = tp.ticket_id").
		ColumnExpr("tp.seat_number").
		Where("tp.departure_id = ?", departureID).
		Where("tp.active = ?", true).
		Where("t.status IN (?)", bun.In(models.ActiveTicketStatuses)).
		Where("tp.seat_id IN (?)", bun.In(seatIDs)).
		Scan(ctx, &numbers)
	if err != nil {
		return nil, apperror.Internal("failed to check seat availability", fmt.Errorf("select occupied seats: %w", err))
	}
	sort.Ints(numbers)
	return numbers, nil
}

// Check validates seat ownership and reports a seat conflict when any
// requested seat is taken.
func Check(ctx context.Context, idb bun.IDB, dep *models.Departure, seatIDs []string) ([]models.Seat, error) {
	seatRows, err := LoadSeats(ctx, idb, dep, seatIDs)
	if err != nil {
		return nil, err
	}
	occupied, err := OccupiedSeatNumbers(ctx, idb, dep.ID, seatIDs)
	if err != nil {
		return nil, err
	}
	if len(occupied) > 0 {
		return nil, apperror.SeatConflict(occupied)
	}
	return seatRows, nil
}

// CheckAvailability is the read-only variant used outside a purchase.
func (c *Checker) CheckAvailability(ctx context.Context, departureID string, seatIDs []string) (*Availability, error) {
	dep, err := LoadDeparture(ctx, c.DB, departureID)
	if err != nil {
		return nil, err
	}
	if _, err := LoadSeats(ctx, c.DB, dep, seatIDs); err != nil {
		return nil, err
	}
	occupied, err := OccupiedSeatNumbers(ctx, c.DB, dep.ID, seatIDs)
	if err != nil {
		return nil, err
	}
	return &Availability{
		DepartureID:   dep.ID,
		Available:     len(occupied) == 0,
		OccupiedSeats: occupied,
	}, nil
}
