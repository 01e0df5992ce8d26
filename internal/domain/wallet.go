package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdminWalletID is the primary key of the singleton wallet row.
const AdminWalletID = 1

// AdminWallet aggregates every approved top-up.
type AdminWallet struct {
	TotalCoins   int64           `db:"total_coins" json:"total_coins"`
	TotalRevenue decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	UpdatedAt    *time.Time      `db:"updated_at" json:"updated_at"`
}
