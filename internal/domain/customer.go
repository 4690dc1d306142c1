package domain

import "time"

type Customer struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type InteractionKind string

const (
	InteractionVisit    InteractionKind = "visit"
	InteractionCall     InteractionKind = "call"
	InteractionPurchase InteractionKind = "purchase"
	InteractionRepair   InteractionKind = "repair"
)

// Interaction is a touchpoint with a customer: a store visit, a call,
// a purchase or a repair intake.
type Interaction struct {
	ID         int             `db:"id" json:"id"`
	CustomerID int             `db:"customer_id" json:"customer_id"`
	Kind       InteractionKind `db:"kind" json:"kind"`
	Note       string          `db:"note" json:"note,omitempty"`
	CreatedBy  string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
