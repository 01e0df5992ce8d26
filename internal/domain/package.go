package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PackageStatus string

const (
	PackageStatusActive   PackageStatus = "active"
	PackageStatusInactive PackageStatus = "inactive"
)

// Package is a purchasable coin bundle.
type Package struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Coins     int64           `db:"coins" json:"coins"`
	Price     decimal.Decimal `db:"price" json:"price"`
	QRURL     string          `db:"qr_url" json:"qr_url,omitempty"`
	Status    PackageStatus   `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

func (p *Package) IsActive() bool {
	return p.Status == PackageStatusActive
}

// PackageUpdate lists the fields an admin may change. Nil means unchanged.
type PackageUpdate struct {
	Name   *string          `json:"name"`
	Coins  *int64           `json:"coins"`
	Price  *decimal.Decimal `json:"price"`
	QRURL  *string          `json:"-"`
	Status *PackageStatus   `json:"status"`
}

// ChangesQuote reports whether the update touches coins or price.
func (u PackageUpdate) ChangesQuote() bool {
	return u.Coins != nil || u.Price != nil
}

func (u PackageUpdate) Validate() error {
	if u.Name != nil && *u.Name == "" {
		return Validation("name must not be empty")
	}
	if u.Coins != nil && *u.Coins <= 0 {
		return Validation("coins must be positive")
	}
	if u.Price != nil && !u.Price.IsPositive() {
		return Validation("price must be positive")
	}
	if u.Status != nil && *u.Status != PackageStatusActive && *u.Status != PackageStatusInactive {
		return Validation("unknown package status %q", *u.Status)
	}
	return nil
}
