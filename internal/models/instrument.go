package models

import "time"

// Deposit represents a term deposit: the client's money is held by the bank
// and returned with interest at maturity. InterestRate is an annual rate in
// percent.
type Deposit struct {
	ID             int64     `json:"id"`
	ClientName     string    `json:"client_name"`
	Amount         float64   `json:"amount"`
	InterestRate   float64   `json:"interest_rate"`
	Days           int       `json:"days"`
	CreatedAt      time.Time `json:"created_at"`
	DueDate        time.Time `json:"due_date"`
	IsActive       bool      `json:"is_active"`
	InterestEarned float64   `json:"interest_earned"`
}

// Credit represents a loan from the bank to a client, repayable with
// interest at maturity. IsOverdue is set when the client cannot repay at
// maturity; the credit stays active until it is actually settled.
type Credit struct {
	ID           int64     `json:"id"`
	ClientName   string    `json:"client_name"`
	Amount       float64   `json:"amount"`
	InterestRate float64   `json:"interest_rate"`
	Days         int       `json:"days"`
	CreatedAt    time.Time `json:"created_at"`
	DueDate      time.Time `json:"due_date"`
	IsActive     bool      `json:"is_active"`
	IsOverdue    bool      `json:"is_overdue"`
	InterestOwed float64   `json:"interest_owed"`
}
