package model

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected,
		OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusRejected || s == OrderStatusCompleted || s == OrderStatusCancelled
}

type OrderAction string

const (
	ActionAccept   OrderAction = "accept"
	ActionReject   OrderAction = "reject"
	ActionStart    OrderAction = "start"
	ActionComplete OrderAction = "complete"
	ActionCancel   OrderAction = "cancel"
)

func (a OrderAction) Valid() bool {
	switch a {
	case ActionAccept, ActionReject, ActionStart, ActionComplete, ActionCancel:
		return true
	}
	return false
}

type PackageType string

const (
	PackageStandard  PackageType = "standard"
	PackagePremium   PackageType = "premium"
	PackageExclusive PackageType = "exclusive"
)

func (p PackageType) Valid() bool {
	return p == PackageStandard || p == PackagePremium || p == PackageExclusive
}

// Order is a commission placed by a brand with a creator for one AI model.
// Prices are integer minor units.
type Order struct {
	ID                 string      `json:"id"`
	BrandID            string      `json:"brand_id"`
	CreatorID          string      `json:"creator_id"`
	ModelID            string      `json:"model_id"`
	OrderNumber        string      `json:"order_number"`
	ConceptDescription string      `json:"concept_description"`
	PackageType        PackageType `json:"package_type"`
	ImageCount         int         `json:"image_count"`
	IsExclusive        bool        `json:"is_exclusive"`
	ExclusiveMonths    *int        `json:"exclusive_months"`
	TotalPrice         int64       `json:"total_price"`
	Status             OrderStatus `json:"status"`
	AcceptedAt         *time.Time  `json:"accepted_at"`
	CompletedAt        *time.Time  `json:"completed_at"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// HasParty reports whether userID is the brand or the creator of the order.
func (o *Order) HasParty(userID string) bool {
	return userID != "" && (o.BrandID == userID || o.CreatorID == userID)
}
