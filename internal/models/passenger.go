package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PassengerType string

const (
	PassengerTypeNormal      PassengerType = "NORMAL"
	PassengerTypeChild       PassengerType = "CHILD"
	PassengerTypeSenior      PassengerType = "SENIOR"
	PassengerTypeHandicapped PassengerType = "HANDICAPPED"
)

func (t PassengerType) Valid() bool {
	switch t {
	case PassengerTypeNormal, PassengerTypeChild, PassengerTypeSenior, PassengerTypeHandicapped:
		return true
	}
	return false
}

type Passenger struct {
	bun.BaseModel `bun:"table:passengers"`

	ID        string    `bun:"id,pk" json:"id"`
	IDNumber  string    `bun:"id_number,notnull" json:"id_number"`
	FirstName string    `bun:"first_name,notnull" json:"first_name"`
	LastName  string    `bun:"last_name,notnull" json:"last_name"`
	Email     string    `bun:"email,notnull" json:"email"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

func (p *Passenger) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
