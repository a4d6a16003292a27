package entity

import (
	"errors"
	"time"
)

// ErrLedgerClosed is returned when a decision is appended to an order that already has one
var ErrLedgerClosed = errors.New("approval history already holds a decision")

// PurchaseOrder is a purchase request and its approval ledger
type PurchaseOrder struct {
	ID              string          `json:"id"`
	ItemName        string          `json:"itemName"`
	Quantity        int             `json:"quantity"`
	Cost            float64         `json:"cost"`
	VendorName      string          `json:"vendorName"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
	SubmittedBy     string          `json:"submittedBy"`
	CreatedAt       time.Time       `json:"createdAt"`
	ApprovalHistory []ApprovalEntry `json:"approvalHistory"`
}

// ApprovalEntry is one immutable decision recorded against an order
type ApprovalEntry struct {
	Status   Status    `json:"status"`
	Reviewer string    `json:"reviewer"`
	Comment  string    `json:"comment"`
	Date     time.Time `json:"date"`
}

// Submission is the payload a requester sends to create an order
type Submission struct {
	ItemName    string  `json:"itemName" binding:"required,notblank"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
	Cost        float64 `json:"cost" binding:"gte=0"`
	VendorName  string  `json:"vendorName" binding:"required,notblank"`
	Description string  `json:"description"`
}

// Decision is the body of an approve/reject request
type Decision struct {
	Status  Status `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// NewPurchaseOrder builds a pending order with an empty ledger from a submission
func NewPurchaseOrder(id string, sub Submission, submittedBy string, createdAt time.Time) *PurchaseOrder {
	return &PurchaseOrder{
		ID:              id,
		ItemName:        sub.ItemName,
		Quantity:        sub.Quantity,
		Cost:            sub.Cost,
		VendorName:      sub.VendorName,
		Description:     sub.Description,
		Status:          StatusPending,
		SubmittedBy:     submittedBy,
		CreatedAt:       createdAt,
		ApprovalHistory: []ApprovalEntry{},
	}
}

// Decided reports whether the ledger already holds an approve or reject entry
func (o *PurchaseOrder) Decided() bool {
	for _, entry := range o.ApprovalHistory {
		if entry.Status.IsDecision() {
			return true
		}
	}
	return false
}

// AppendDecision records a decision and moves the order to its outcome.
// The order is left untouched when the entry is not a decision or a decision already exists.
func (o *PurchaseOrder) AppendDecision(entry ApprovalEntry) error {
	if !entry.Status.IsDecision() {
		return ErrInvalidOutcome
	}
	if o.Status != StatusPending || o.Decided() {
		return ErrLedgerClosed
	}

	o.ApprovalHistory = append(o.ApprovalHistory, entry)
	o.Status = entry.Status
	return nil
}

// Clone returns a deep copy so cached orders can be handed out safely
func (o *PurchaseOrder) Clone() *PurchaseOrder {
	if o == nil {
		return nil
	}
	c := *o
	c.ApprovalHistory = append([]ApprovalEntry{}, o.ApprovalHistory...)
	return &c
}

// ErrInvalidOutcome is returned when a decision is neither approved nor rejected
var ErrInvalidOutcome = errors.New("outcome must be approved or rejected")
