package channel

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Menu Value Objects
// ---------------------------------------------------------------------------

// MenuPush represents a full menu to be pushed to a marketplace
type MenuPush struct {
	// MenuID is our internal menu identifier
	MenuID uuid.UUID
	// MenuName is the display name of the menu
	MenuName string
	// Categories contains the menu categories in display order
	Categories []MenuCategory
	// Currency is the price currency (ISO 4217)
	Currency string
}

// MenuCategory represents a category of menu items
type MenuCategory struct {
	// CategoryID is our internal category identifier
	CategoryID uuid.UUID
	// Name is the category display name
	Name string
	// Description is the optional category description
	Description string
	// SortOrder controls display ordering on the marketplace
	SortOrder int
	// Items contains the items in this category
	Items []MenuItem
}

// MenuItem represents a single sellable item
type MenuItem struct {
	// ItemID is our internal item identifier
	ItemID uuid.UUID
	// ChannelItemID is the existing item ID on the marketplace (empty for new)
	ChannelItemID string
	// SKU is our internal stock keeping unit
	SKU string
	// Name is the item display name
	Name string
	// Description is the item description
	Description string
	// Price is the selling price
	Price decimal.Decimal
	// CompareAtPrice is the pre-discount price (zero when not discounted)
	CompareAtPrice decimal.Decimal
	// ImageURLs contains item image URLs
	ImageURLs []string
	// IsAvailable indicates if the item can currently be ordered
	IsAvailable bool
	// Modifiers contains option groups (size, extras)
	Modifiers []MenuModifierGroup
}

// MenuModifierGroup represents a group of item options
type MenuModifierGroup struct {
	// GroupID is our internal modifier group identifier
	GroupID uuid.UUID
	// Name is the group display name
	Name string
	// MinSelections is the minimum number of selections required
	MinSelections int
	// MaxSelections is the maximum number of selections allowed
	MaxSelections int
	// Options contains the selectable options
	Options []MenuModifierOption
}

// MenuModifierOption represents a single selectable option
type MenuModifierOption struct {
	// OptionID is our internal option identifier
	OptionID uuid.UUID
	// Name is the option display name
	Name string
	// PriceDelta is the price adjustment when selected
	PriceDelta decimal.Decimal
	// IsAvailable indicates if the option can currently be selected
	IsAvailable bool
}

// MenuItemUpdate represents a partial update of one item (price and/or name)
type MenuItemUpdate struct {
	// ChannelItemID is the item ID on the marketplace
	ChannelItemID string
	// ItemID is our internal item identifier
	ItemID uuid.UUID
	// Name is the new display name (empty to leave unchanged)
	Name string
	// Price is the new price (nil to leave unchanged)
	Price *decimal.Decimal
	// Description is the new description (empty to leave unchanged)
	Description string
}

// AvailabilityUpdate represents an availability toggle for one item
type AvailabilityUpdate struct {
	// ChannelItemID is the item ID on the marketplace
	ChannelItemID string
	// ItemID is our internal item identifier
	ItemID uuid.UUID
	// IsAvailable is the new availability state
	IsAvailable bool
	// AvailableAt is when the item becomes available again (nil for indefinite)
	AvailableAt *time.Time
}

// ---------------------------------------------------------------------------
// Order Value Objects
// ---------------------------------------------------------------------------

// OrderStatus represents the status of an order on the marketplace
type OrderStatus string

const (
	// OrderStatusNew indicates a newly placed order
	OrderStatusNew OrderStatus = "NEW"
	// OrderStatusAccepted indicates the merchant accepted the order
	OrderStatusAccepted OrderStatus = "ACCEPTED"
	// OrderStatusPreparing indicates the order is being prepared
	OrderStatusPreparing OrderStatus = "PREPARING"
	// OrderStatusReady indicates the order is ready for pickup
	OrderStatusReady OrderStatus = "READY"
	// OrderStatusPickedUp indicates a courier collected the order
	OrderStatusPickedUp OrderStatus = "PICKED_UP"
	// OrderStatusDelivered indicates the order was delivered
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the order was cancelled
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRejected indicates the merchant rejected the order
	OrderStatusRejected OrderStatus = "REJECTED"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusAccepted, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true if the status is a final (terminal) state
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// ChannelOrder represents an order ingested from a marketplace
type ChannelOrder struct {
	// ChannelOrderID is the order ID on the marketplace
	ChannelOrderID string
	// ChannelCode identifies which marketplace this order is from
	ChannelCode Code
	// Status is the current order status on the marketplace
	Status OrderStatus
	// CustomerName is the customer's display name
	CustomerName string
	// CustomerPhone is the customer's contact number (may be masked)
	CustomerPhone string
	// DeliveryAddress is the delivery address as reported by the marketplace
	DeliveryAddress string
	// TotalAmount is the total order amount
	TotalAmount decimal.Decimal
	// DeliveryFee is the delivery fee charged to the customer
	DeliveryFee decimal.Decimal
	// Currency is the payment currency
	Currency string
	// Items contains the order line items
	Items []ChannelOrderItem
	// Notes contains customer instructions
	Notes string
	// PlacedAt is when the order was placed on the marketplace
	PlacedAt time.Time
	// RawData is the original marketplace response (JSON)
	RawData string
}

// ChannelOrderItem represents a line item in a marketplace order
type ChannelOrderItem struct {
	// ChannelItemID is the item ID on the marketplace
	ChannelItemID string
	// Name is the item name at order time
	Name string
	// Quantity is the ordered quantity
	Quantity int
	// UnitPrice is the unit price at order time
	UnitPrice decimal.Decimal
	// TotalPrice is the total price for this line
	TotalPrice decimal.Decimal
	// ModifierNames contains the names of selected modifiers
	ModifierNames []string
}

// OrderFetchRequest represents a request to pull orders from a marketplace
type OrderFetchRequest struct {
	// Since restricts results to orders placed after this time
	Since time.Time
	// Until restricts results to orders placed before this time
	Until time.Time
	// Status filters by order status (nil for all)
	Status *OrderStatus
	// Limit caps the number of orders returned
	Limit int
}

// OrderStatusUpdate represents a status change pushed back to the marketplace
type OrderStatusUpdate struct {
	// ChannelOrderID is the order ID on the marketplace
	ChannelOrderID string
	// Status is the new status to report
	Status OrderStatus
	// Reason is the optional reason (required for CANCELLED/REJECTED)
	Reason string
}

// Validate validates the order status update
func (u *OrderStatusUpdate) Validate() error {
	if u.ChannelOrderID == "" {
		return ErrWebhookInvalidEvent
	}
	if !u.Status.IsValid() {
		return ErrInvalidOrderStatus
	}
	if (u.Status == OrderStatusCancelled || u.Status == OrderStatusRejected) && u.Reason == "" {
		return ErrInvalidOrderStatus
	}
	return nil
}

// WebhookEvent represents a raw webhook delivery from a marketplace
type WebhookEvent struct {
	// DeliveryID is the marketplace-assigned delivery identifier, used for
	// de-duplication of redelivered events
	DeliveryID string
	// EventType is the marketplace's event type string
	EventType string
	// Payload is the raw event payload
	Payload []byte
	// ReceivedAt is when the event arrived
	ReceivedAt time.Time
}

// ---------------------------------------------------------------------------
// Sync Result
// ---------------------------------------------------------------------------

// PushResult represents the per-item outcome of a menu or availability push.
// Partial failure is not an error at the call level; only a wholesale API
// failure is reported through the error return.
type PushResult struct {
	// TotalItems is the total number of items in the push
	TotalItems int
	// SuccessItems is the number of successfully synced items
	SuccessItems int
	// FailedItems is the number of failed items
	FailedItems int
	// Failures contains details about failed items
	Failures []ItemFailure
	// CompletedAt is when the push completed
	CompletedAt time.Time
}

// ItemFailure represents a single failed item within a push
type ItemFailure struct {
	// ItemID is the identifier of the failed item
	ItemID string
	// ErrorCode is the marketplace error code
	ErrorCode string
	// ErrorMessage is the error description
	ErrorMessage string
}
