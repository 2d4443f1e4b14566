package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DealKind string

const (
	DealVehicleFinance DealKind = "vehicle_finance"
	DealLandFinance    DealKind = "land_finance"
	DealLease          DealKind = "lease"
	DealCashLoan       DealKind = "cash_loan"
	DealRepairFinance  DealKind = "repair_finance"
)

type DealStatus string

const (
	DealActive     DealStatus = "active"
	DealPaidOff    DealStatus = "paid_off"
	DealCompleted  DealStatus = "completed"
	DealTerminated DealStatus = "terminated"
	DealDefaulted  DealStatus = "defaulted"
)

// FinanceDeal is a loan, finance or lease record. InterestRate is an annual
// decimal fraction; convert to percent only for display.
type FinanceDeal struct {
	DealID            uuid.UUID  `gorm:"column:deal_id;type:uuid;primaryKey" json:"deal_id"`
	FarmID            int        `gorm:"column:farm_id;not null;index" json:"farm_id"`
	Kind              DealKind   `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
	StoreKey          string     `gorm:"column:store_key" json:"store_key"`
	AssetInstanceID   *uuid.UUID `gorm:"column:asset_instance_id;type:uuid;index" json:"asset_instance_id"`
	ItemName          string     `gorm:"column:item_name" json:"item_name"`
	Price             float64    `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	DownPayment       float64    `gorm:"column:down_payment;type:decimal(18,2);not null;default:0" json:"down_payment"`
	Principal         float64    `gorm:"column:principal;type:decimal(18,2);not null" json:"principal"`
	TermMonths        int        `gorm:"column:term_months;not null" json:"term_months"`
	InterestRate      float64    `gorm:"column:interest_rate;not null" json:"interest_rate"`
	MonthlyPayment    float64    `gorm:"column:monthly_payment;type:decimal(18,2);not null" json:"monthly_payment"`
	CurrentBalance    float64    `gorm:"column:current_balance;type:decimal(18,2);not null" json:"current_balance"`
	ResidualValue     float64    `gorm:"column:residual_value;type:decimal(18,2);not null;default:0" json:"residual_value"`
	SecurityDeposit   float64    `gorm:"column:security_deposit;type:decimal(18,2);not null;default:0" json:"security_deposit"`
	MonthsPaid        int        `gorm:"column:months_paid;not null;default:0" json:"months_paid"`
	TotalPaid         float64    `gorm:"column:total_paid;type:decimal(18,2);not null;default:0" json:"total_paid"`
	TotalInterestPaid float64    `gorm:"column:total_interest_paid;type:decimal(18,2);not null;default:0" json:"total_interest_paid"`
	MissedPayments    int        `gorm:"column:missed_payments;not null;default:0" json:"missed_payments"`
	ConsecutiveMissed int        `gorm:"column:consecutive_missed;not null;default:0" json:"consecutive_missed"`
	Status            DealStatus `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CreatedDay        int        `gorm:"column:created_day;not null;default:0" json:"created_day"`
	CreatedAt         time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (FinanceDeal) TableName() string {
	return "FinanceDeals"
}

func (d *FinanceDeal) BeforeCreate(tx *gorm.DB) error {
	if d.DealID == uuid.Nil {
		d.DealID = uuid.New()
	}
	return nil
}

// RemainingMonths is the number of scheduled payments still owed.
func (d *FinanceDeal) RemainingMonths() int {
	if r := d.TermMonths - d.MonthsPaid; r > 0 {
		return r
	}
	return 0
}

func (d *FinanceDeal) IsActive() bool { return d.Status == DealActive }

// DealEvent is the audit trail of a deal; the credit service reads it back as
// payment history.
type DealEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	DealID    uuid.UUID      `gorm:"column:deal_id;type:uuid;not null;index" json:"deal_id"`
	FarmID    int            `gorm:"column:farm_id;not null;index" json:"farm_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	Amount    float64        `gorm:"column:amount;type:decimal(18,2);not null;default:0" json:"amount"`
	EventData datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data"`
	Day       int            `gorm:"column:day;not null;default:0" json:"day"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (DealEvent) TableName() string {
	return "DealEvents"
}

func (e *DealEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

const (
	DealEventCreated    = "CREATED"
	DealEventPayment    = "PAYMENT"
	DealEventMissed     = "MISSED"
	DealEventDefaulted  = "DEFAULTED"
	DealEventPaidOff    = "PAID_OFF"
	DealEventCompleted  = "COMPLETED"
	DealEventTerminated = "TERMINATED"
)
