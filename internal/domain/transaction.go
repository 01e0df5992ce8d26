package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusRejected TransactionStatus = "rejected"
)

const TransactionTypeTopup = "topup"

// Transaction is a top-up request backed by an uploaded payment slip.
// Amount and Money are the package quote captured at submission time.
type Transaction struct {
	ID         int64             `db:"id" json:"id"`
	UserID     int64             `db:"user_id" json:"user_id"`
	PackageID  int64             `db:"package_id" json:"package_id"`
	Type       string            `db:"type" json:"type"`
	Amount     int64             `db:"amount" json:"amount"`
	Money      decimal.Decimal   `db:"money" json:"money"`
	SlipURL    string            `db:"slip_url" json:"slip_url"`
	Status     TransactionStatus `db:"status" json:"status"`
	ApprovedBy *int64            `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// PendingTopup is a pending transaction with the submitter and package shown to admins.
type PendingTopup struct {
	Transaction
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PackageName string `json:"package_name"`
}

// UserTransaction is a user's own transaction with package details.
type UserTransaction struct {
	Transaction
	PackageName  string `json:"package_name"`
	PackageCoins int64  `json:"package_coins"`
}
