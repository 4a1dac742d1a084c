package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentStatus of a sale payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// TransactionType classifies a buyer to farmer payment.
type TransactionType string

const (
	TransactionTypeSale    TransactionType = "sale"
	TransactionTypeAdvance TransactionType = "advance"
	TransactionTypeBonus   TransactionType = "bonus"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypeAdvance, TransactionTypeBonus:
		return true
	}
	return false
}

// PaymentMethod selects the settlement strategy.
type PaymentMethod string

const (
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// PremiumFactor is one line of the quality premium breakdown.
type PremiumFactor struct {
	Factor string          `json:"factor"`
	Value  string          `json:"value"`
	Uplift decimal.Decimal `json:"uplift"`
	Amount decimal.Decimal `json:"amount"`
}

// CertificationBonus is an additive bonus for a recognised certification.
type CertificationBonus struct {
	Name   string          `json:"name"`
	Kind   string          `json:"kind"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Deduction reduces the net amount paid to the farmer.
type Deduction struct {
	Reason string          `json:"reason"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentTransaction is a buyer to farmer sale payment with quality pricing.
type PaymentTransaction struct {
	ID       uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FarmerID uuid.UUID       `gorm:"type:uuid;not null;index" json:"farmer_id"`
	BuyerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	LotID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"lot_id"`
	LotCode  string          `gorm:"type:varchar(64)" json:"lot_code"`
	Type     TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Currency string          `gorm:"type:varchar(3);not null" json:"currency"`

	Quantity     decimal.Decimal `gorm:"type:decimal(15,3)" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(15,2)" json:"price_per_unit"`
	BaseAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"base_amount"`

	QualityScore         decimal.Decimal                         `gorm:"type:decimal(5,2)" json:"quality_score"`
	QualityGrade         string                                  `gorm:"type:varchar(10)" json:"quality_grade"`
	PremiumMultiplier    decimal.Decimal                         `gorm:"type:decimal(6,4);not null" json:"premium_multiplier"`
	PremiumAmount        decimal.Decimal                         `gorm:"type:decimal(15,2);not null" json:"premium_amount"`
	PremiumBreakdown     datatypes.JSONSlice[PremiumFactor]      `gorm:"type:jsonb" json:"premium_breakdown"`
	CertificationBonuses datatypes.JSONSlice[CertificationBonus] `gorm:"type:jsonb" json:"certification_bonuses"`
	Deductions           datatypes.JSONSlice[Deduction]          `gorm:"type:jsonb" json:"deductions"`
	AssessmentIDs        datatypes.JSONSlice[string]             `gorm:"type:jsonb" json:"assessment_ids"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	NetAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"net_amount"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	// NeedsReconciliation marks a processing payment whose rail outcome is
	// unknown. It must not be retried until an operator confirms the transfer.
	NeedsReconciliation bool `gorm:"not null;default:false;index" json:"needs_reconciliation"`

	ApprovalRequired bool       `gorm:"not null;default:false" json:"approval_required"`
	ApprovedBy       *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`

	ProcessorReference  string     `gorm:"type:varchar(255)" json:"processor_reference,omitempty"`
	WalletTransactionID *uuid.UUID `gorm:"type:uuid" json:"wallet_transaction_id,omitempty"`
	Notes               string     `gorm:"type:text" json:"notes,omitempty"`

	InitiatedAt time.Time  `gorm:"not null" json:"initiated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// TotalDeductions sums all deductions.
func (p *PaymentTransaction) TotalDeductions() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range p.Deductions {
		sum = sum.Add(d.Amount)
	}
	return sum
}

// TotalBonuses sums all certification bonuses.
func (p *PaymentTransaction) TotalBonuses() decimal.Decimal {
	sum := decimal.Zero
	for _, b := range p.CertificationBonuses {
		sum = sum.Add(b.Amount)
	}
	return sum
}

// AppendNote adds a line to the free-text notes.
func (p *PaymentTransaction) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if p.Notes == "" {
		p.Notes = note
		return
	}
	p.Notes += "\n" + note
}
