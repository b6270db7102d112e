// Package model holds the planner rows and account identities exchanged
// with the gateway.
package model

import "time"

// Budget mirrors a row of `budgets`. At most one row exists per
// (user, category).
type Budget struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Category      string    `json:"category"`
	PlannedAmount float64   `json:"planned_amount"`
	SpentAmount   float64   `json:"spent_amount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Transaction types as stored in `transactions.type`.
const (
	TransactionIncome  = "ingreso"
	TransactionExpense = "gasto"
)

// Transaction mirrors a row of `transactions`. Rows are append-only.
type Transaction struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Amount          float64   `json:"amount"`
	Type            string    `json:"type"`
	Category        *string   `json:"category"`
	Description     *string   `json:"description"`
	ProviderID      *string   `json:"provider_id"`
	TransactionDate time.Time `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}
