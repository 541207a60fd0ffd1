package passengers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

const placeholderDomain = "passenger.chasquigo.local"

// Registry resolves passengers by national id number.
type Registry struct {
	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

func NormalizeIDNumber(idNumber string) string {
	return strings.ToUpper(strings.TrimSpace(idNumber))
}

// Resolve returns the passenger with idNumber, creating it when absent and
// refreshing the names when present.
func (r *Registry) Resolve(ctx context.Context, idb bun.IDB, idNumber, firstName, lastName string) (*models.Passenger, error) {
	idNumber = NormalizeIDNumber(idNumber)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if idNumber == "" {
		return nil, apperror.BadRequest("passenger id number is required")
	}

	existing, err := r.find(ctx, idb, idNumber)
	if err != nil {
		return nil, err
	}
	now := r.now()

	if existing != nil {
		existing.FirstName = firstName
		existing.LastName = lastName
		existing.UpdatedAt = now
		_, err := idb.NewUpdate().Model(existing).
			Column("first_name", "last_name", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, apperror.Internal("failed to update passenger", fmt.Errorf("update passenger %s: %w", existing.ID, err))
		}
		return existing, nil
	}

	passenger := &models.Passenger{
		ID:        uuid.New().String(),
		IDNumber:  idNumber,
		FirstName: firstName,
		LastName:  lastName,
		Email:     fmt.Sprintf("%s@%s", strings.ToLower(idNumber), placeholderDomain),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// A concurrent purchase may create the same passenger first.
	if _, err := idb.NewInsert().Model(passenger).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return nil, apperror.Internal("failed to create passenger", fmt.Errorf("insert passenger: %w", err))
	}

	stored, err := r.find(ctx, idb, idNumber)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, apperror.Internal("failed to create passenger", fmt.Errorf("passenger %s missing after insert", idNumber))
	}
	return stored, nil
}

func (r *Registry) find(ctx context.Context, idb bun.IDB, idNumber string) (*models.Passenger, error) {
	passenger := new(models.Passenger)
	err := idb.NewSelect().Model(passenger).Where("id_number = ?", idNumber).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal("failed to load passenger", fmt.Errorf("select passenger: %w", err))
	}
	return passenger, nil
}
