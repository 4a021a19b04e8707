// Package domain defines the persistence models for grouped lens
// requirements, fulfilment records, users, and history. These types are
// mapped with GORM and form the core data layer of the service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lensworks/go-lens-backend/internal/lens"
)

// User roles. Admins receive push notifications for requirement events.
const (
	RoleAdmin    = "Admin"
	RoleEmployee = "Employee"
)

// LensSpec is the embedded column set shared by requirements and fulfilment
// records. Numeric attributes are stored as the normalized text produced by
// lens.Validate so that detail strings and grouping keys reproduce exactly.
type LensSpec struct {
	Type        string `json:"type"             gorm:"type:varchar(32);not null"`
	Coating     string `json:"coating"          gorm:"type:varchar(64);not null"`
	CoatingType string `json:"coatingType"      gorm:"type:varchar(64);not null"`
	Material    string `json:"material"         gorm:"type:varchar(64)"`
	Sphere      string `json:"sphere"           gorm:"type:varchar(16);not null"`
	Cylinder    string `json:"cylinder"         gorm:"type:varchar(16);not null"`
	Axis        string `json:"axis,omitempty"   gorm:"type:varchar(8)"`
	Add         string `json:"add,omitempty"    gorm:"type:varchar(16);column:add_power"`
	EyeSide     string `json:"lensSpecificType,omitempty" gorm:"type:varchar(16)"`
}

// Spec converts the stored columns back to the pure lens representation.
func (s LensSpec) Spec() lens.Spec {
	return lens.Spec{
		Type: s.Type, Coating: s.Coating, CoatingType: s.CoatingType,
		Material: s.Material, Sphere: s.Sphere, Cylinder: s.Cylinder,
		Axis: s.Axis, Add: s.Add, EyeSide: s.EyeSide,
	}
}

// SpecColumns builds the embedded column set from a validated lens spec.
func SpecColumns(s lens.Spec) LensSpec {
	return LensSpec{
		Type: s.Type, Coating: s.Coating, CoatingType: s.CoatingType,
		Material: s.Material, Sphere: s.Sphere, Cylinder: s.Cylinder,
		Axis: s.Axis, Add: s.Add, EyeSide: s.EyeSide,
	}
}

// GroupedRequirement aggregates every open client order for one grouping key.
// Version is the optimistic-concurrency token: every mutation updates the row
// with WHERE grouping_key = ? AND version = ? and fails on a stale read.
type GroupedRequirement struct {
	GroupingKey       string          `json:"groupingKey"        gorm:"type:varchar(191);primaryKey"`
	LensSpec          `gorm:"embedded"`
	PartiallyAllotted decimal.Decimal `json:"partiallyAllottedQty" gorm:"type:numeric;not null;default:0"`
	Version           int64           `json:"-"                  gorm:"not null;default:0"`
	CommentText       string          `json:"commentText,omitempty" gorm:"type:text"`
	CommentBy         string          `json:"commentBy,omitempty"   gorm:"type:varchar(128)"`
	CommentAt         *time.Time      `json:"commentAt,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Orders []RequirementOrder `json:"orders" gorm:"foreignKey:GroupingKey;references:GroupingKey;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for GroupedRequirement.
func (GroupedRequirement) TableName() string { return "grouped_requirements" }

// TotalRequired sums the per-client quantities of a requirement.
func (g GroupedRequirement) TotalRequired() decimal.Decimal {
	total := decimal.Zero
	for _, o := range g.Orders {
		total = total.Add(o.Quantity)
	}
	return total
}

// Remaining is the unfulfilled quantity still open on the requirement.
func (g GroupedRequirement) Remaining() decimal.Decimal {
	return g.TotalRequired().Sub(g.PartiallyAllotted)
}

// RequirementOrder is one client's share of a grouped requirement. A client
// appears at most once per key; repeat submissions accumulate Quantity.
type RequirementOrder struct {
	ID          string          `json:"-"          gorm:"type:char(36);primaryKey"`
	GroupingKey string          `json:"-"          gorm:"type:varchar(191);not null;index;uniqueIndex:ux_req_client"`
	ClientName  string          `json:"clientName" gorm:"type:varchar(128);not null;uniqueIndex:ux_req_client"`
	Quantity    decimal.Decimal `json:"quantity"   gorm:"type:numeric;not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName returns the database table name for RequirementOrder.
func (RequirementOrder) TableName() string { return "requirement_orders" }

// CompletedRecord is a fully fulfilled requirement: a snapshot of the spec
// plus the vendor purchase and the per-client cost allocations. FulfilledQty
// is immutable once written; edits may only change vendor and price.
type CompletedRecord struct {
	ID           string          `json:"id"           gorm:"type:varchar(64);primaryKey"`
	LensSpec     `gorm:"embedded"`
	Price        decimal.Decimal `json:"price"        gorm:"type:numeric;not null"`
	FulfilledQty decimal.Decimal `json:"fulfilledQty" gorm:"type:numeric;not null"`
	Vendor       string          `json:"vendor"       gorm:"type:varchar(128);not null"`
	UpdatedBy    string          `json:"updatedBy"    gorm:"type:varchar(128)"`
	Timestamp    time.Time       `json:"timestamp"    gorm:"index"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Allocations []CompletedAllocation `json:"allocations" gorm:"foreignKey:RecordID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CompletedRecord.
func (CompletedRecord) TableName() string { return "completed_records" }

// CompletedAllocation is one client's slice of a completed record: the
// quantity attributed to the client and their share of the purchase price.
type CompletedAllocation struct {
	ID         string          `json:"-"          gorm:"type:char(36);primaryKey"`
	RecordID   string          `json:"-"          gorm:"type:varchar(64);not null;index"`
	ClientName string          `json:"clientName" gorm:"type:varchar(128);not null"`
	Quantity   decimal.Decimal `json:"quantity"   gorm:"type:numeric;not null"`
	TotalShare decimal.Decimal `json:"totalShare" gorm:"type:numeric;not null"`
}

// TableName returns the database table name for CompletedAllocation.
func (CompletedAllocation) TableName() string { return "completed_allocations" }

// PartialRecord is a sub-total fulfilment of a requirement that is still
// open. Orders snapshots the original per-client requested quantities, and
// GroupedKey points back at the live requirement so edits can reconcile the
// partially-allotted counter.
type PartialRecord struct {
	ID           string          `json:"id"           gorm:"type:varchar(64);primaryKey"`
	GroupedKey   string          `json:"groupedKey"   gorm:"type:varchar(191);not null;index"`
	LensSpec     `gorm:"embedded"`
	Price        decimal.Decimal `json:"price"        gorm:"type:numeric;not null"`
	FulfilledQty decimal.Decimal `json:"fulfilledQty" gorm:"type:numeric;not null"`
	Vendor       string          `json:"vendor"       gorm:"type:varchar(128);not null"`
	UpdatedBy    string          `json:"updatedBy"    gorm:"type:varchar(128)"`
	Timestamp    time.Time       `json:"timestamp"    gorm:"index"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Orders []PartialOrder `json:"orders" gorm:"foreignKey:RecordID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PartialRecord.
func (PartialRecord) TableName() string { return "partial_records" }

// PartialOrder is one client's original requested quantity, carried on the
// partial record for later explicit allocation.
type PartialOrder struct {
	ID         string          `json:"-"          gorm:"type:char(36);primaryKey"`
	RecordID   string          `json:"-"          gorm:"type:varchar(64);not null;index"`
	ClientName string          `json:"clientName" gorm:"type:varchar(128);not null"`
	Quantity   decimal.Decimal `json:"quantity"   gorm:"type:numeric;not null"`
}

// TableName returns the database table name for PartialOrder.
func (PartialOrder) TableName() string { return "partial_orders" }

// User is a staff account. FCMToken, when present on an Admin, makes the
// user a push-notification target.
type User struct {
	ID        string    `json:"id"        gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(128);not null"`
	Role      string    `json:"role"      gorm:"type:varchar(16);not null;check:role IN ('Admin','Employee')"`
	FCMToken  string    `json:"fcmToken,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// History kinds.
const (
	HistoryClient = "client"
	HistoryVendor = "vendor"
)

// HistoryRecord is an append-only audit row: client rows on order
// submission, vendor rows on fulfilment events.
type HistoryRecord struct {
	ID        string          `json:"id"        gorm:"type:char(36);primaryKey"`
	Kind      string          `json:"kind"      gorm:"type:varchar(16);not null;index;check:kind IN ('client','vendor')"`
	Details   string          `json:"details"   gorm:"type:text;not null"`
	PartyName string          `json:"partyName" gorm:"type:varchar(128);not null"`
	Price     decimal.Decimal `json:"price"     gorm:"type:numeric;not null;default:0"`
	Quantity  decimal.Decimal `json:"quantity"  gorm:"type:numeric;not null"`
	Time      time.Time       `json:"time"      gorm:"index"`
	UpdatedBy string          `json:"updatedBy" gorm:"type:varchar(128)"`
}

// TableName returns the database table name for HistoryRecord.
func (HistoryRecord) TableName() string { return "history_records" }
