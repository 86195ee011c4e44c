package channel

import (
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/menusync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// DoorDash wire types
// ---------------------------------------------------------------------------

// ddResponse is the common response envelope of the DoorDash merchant API
type ddResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  ddResponseExtra `json:"result"`
}

type ddResponseExtra struct {
	FailedEntities []ddFailedEntity `json:"failed_entities"`
}

type ddFailedEntity struct {
	MerchantSuppliedID string `json:"merchant_supplied_id"`
	ErrorCode          string `json:"error_code"`
	ErrorMessage       string `json:"error_message"`
}

// IsSuccess returns true when the API call succeeded
func (r *ddResponse) IsSuccess() bool {
	return r.Code == 0 || r.Message == "success"
}

type ddMenuPayload struct {
	Reference string       `json:"reference"`
	Store     ddStoreRef   `json:"store"`
	Title     string       `json:"open_hours_title,omitempty"`
	Menu      ddMenuDetail `json:"menu"`
}

type ddStoreRef struct {
	MerchantSuppliedID string `json:"merchant_supplied_id"`
}

type ddMenuDetail struct {
	Name       string       `json:"name"`
	Categories []ddCategory `json:"categories"`
}

type ddCategory struct {
	MerchantSuppliedID string   `json:"merchant_supplied_id"`
	Name               string   `json:"name"`
	Subtitle           string   `json:"subtitle,omitempty"`
	SortID             int      `json:"sort_id"`
	Items              []ddItem `json:"items"`
}

type ddItem struct {
	MerchantSuppliedID string    `json:"merchant_supplied_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Price              int64     `json:"price"`
	OriginalPrice      int64     `json:"original_price,omitempty"`
	Active             bool      `json:"active"`
	ImageURL           string    `json:"image_url,omitempty"`
	Extras             []ddExtra `json:"extras,omitempty"`
}

type ddExtra struct {
	MerchantSuppliedID string     `json:"merchant_supplied_id"`
	Name               string     `json:"name"`
	MinNumOptions      int        `json:"min_num_options"`
	MaxNumOptions      int        `json:"max_num_options"`
	Options            []ddOption `json:"options"`
}

type ddOption struct {
	MerchantSuppliedID string `json:"merchant_supplied_id"`
	Name               string `json:"name"`
	Price              int64  `json:"price"`
	Active             bool   `json:"active"`
}

type ddItemUpdate struct {
	MerchantSuppliedID string `json:"merchant_supplied_id"`
	Name               string `json:"name,omitempty"`
	Description        string `json:"description,omitempty"`
	Price              *int64 `json:"price,omitempty"`
}

type ddActivationUpdate struct {
	MerchantSuppliedID string `json:"merchant_supplied_id"`
	Active             bool   `json:"is_active"`
	ReactivateAt       string `json:"reactivate_at,omitempty"`
}

type ddBatchUpdateRequest struct {
	Store ddStoreRef `json:"store"`
	Items []any      `json:"items"`
}

type ddOrdersResult struct {
	ddResponse
	Orders []ddOrder `json:"orders"`
}

type ddOrder struct {
	OrderID             string        `json:"id"`
	Status              string        `json:"order_status"`
	Consumer            ddConsumer    `json:"consumer"`
	Items               []ddOrderItem `json:"items"`
	SubtotalCents       int64         `json:"subtotal"`
	DeliveryFeeCents    int64         `json:"delivery_fee"`
	TotalCents          int64         `json:"order_total"`
	Currency            string        `json:"currency"`
	DeliveryAddress     string        `json:"delivery_address"`
	SpecialInstructions string        `json:"special_instructions"`
	CreatedAt           string        `json:"created_at"`
}

type ddConsumer struct {
	FirstName string `json:"first_name"`
	Phone     string `json:"phone_number"`
}

type ddOrderItem struct {
	MerchantSuppliedID string   `json:"merchant_supplied_id"`
	Name               string   `json:"name"`
	Quantity           int      `json:"quantity"`
	PriceCents         int64    `json:"price"`
	Options            []string `json:"option_names"`
}

type ddWebhookEnvelope struct {
	EventCategory string  `json:"event_category"`
	Order         ddOrder `json:"order"`
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func buildDoorDashMenu(storeID string, menu *domain.MenuPush) ddMenuPayload {
	payload := ddMenuPayload{
		Reference: menu.MenuID.String(),
		Store:     ddStoreRef{MerchantSuppliedID: storeID},
		Menu: ddMenuDetail{
			Name:       menu.MenuName,
			Categories: make([]ddCategory, 0, len(menu.Categories)),
		},
	}
	for _, category := range menu.Categories {
		wireCategory := ddCategory{
			MerchantSuppliedID: category.CategoryID.String(),
			Name:               category.Name,
			Subtitle:           category.Description,
			SortID:             category.SortOrder,
			Items:              make([]ddItem, 0, len(category.Items)),
		}
		for _, item := range category.Items {
			wireItem := ddItem{
				MerchantSuppliedID: item.ItemID.String(),
				Name:               item.Name,
				Description:        item.Description,
				Price:              toCents(item.Price),
				Active:             item.IsAvailable,
			}
			if !item.CompareAtPrice.IsZero() {
				wireItem.OriginalPrice = toCents(item.CompareAtPrice)
			}
			if len(item.ImageURLs) > 0 {
				wireItem.ImageURL = item.ImageURLs[0]
			}
			for _, group := range item.Modifiers {
				wireExtra := ddExtra{
					MerchantSuppliedID: group.GroupID.String(),
					Name:               group.Name,
					MinNumOptions:      group.MinSelections,
					MaxNumOptions:      group.MaxSelections,
					Options:            make([]ddOption, 0, len(group.Options)),
				}
				for _, option := range group.Options {
					wireExtra.Options = append(wireExtra.Options, ddOption{
						MerchantSuppliedID: option.OptionID.String(),
						Name:               option.Name,
						Price:              toCents(option.PriceDelta),
						Active:             option.IsAvailable,
					})
				}
				wireItem.Extras = append(wireItem.Extras, wireExtra)
			}
			wireCategory.Items = append(wireCategory.Items, wireItem)
		}
		payload.Menu.Categories = append(payload.Menu.Categories, wireCategory)
	}
	return payload
}

// mapDoorDashOrderStatus maps DoorDash order statuses to domain statuses
func mapDoorDashOrderStatus(status string) domain.OrderStatus {
	switch status {
	case "NEW", "SCHEDULED":
		return domain.OrderStatusNew
	case "CONFIRMED":
		return domain.OrderStatusAccepted
	case "IN_KITCHEN":
		return domain.OrderStatusPreparing
	case "READY_FOR_PICKUP":
		return domain.OrderStatusReady
	case "PICKED_UP":
		return domain.OrderStatusPickedUp
	case "DELIVERED":
		return domain.OrderStatusDelivered
	case "CANCELLED":
		return domain.OrderStatusCancelled
	case "MERCHANT_DENIED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusNew
	}
}

// mapToDoorDashStatus maps a domain status to the value DoorDash accepts
// on the order confirmation endpoint. Empty means no call is needed.
func mapToDoorDashStatus(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusAccepted:
		return "confirmed"
	case domain.OrderStatusRejected:
		return "denied"
	case domain.OrderStatusCancelled:
		return "cancelled"
	case domain.OrderStatusReady:
		return "ready_for_pickup"
	default:
		return ""
	}
}

func convertDoorDashOrder(order *ddOrder, rawData string) domain.ChannelOrder {
	channelOrder := domain.ChannelOrder{
		ChannelOrderID:  order.OrderID,
		ChannelCode:     domain.CodeDoorDash,
		Status:          mapDoorDashOrderStatus(order.Status),
		CustomerName:    order.Consumer.FirstName,
		CustomerPhone:   order.Consumer.Phone,
		DeliveryAddress: order.DeliveryAddress,
		TotalAmount:     fromCents(order.TotalCents),
		DeliveryFee:     fromCents(order.DeliveryFeeCents),
		Currency:        order.Currency,
		Items:           make([]domain.ChannelOrderItem, 0, len(order.Items)),
		Notes:           order.SpecialInstructions,
		RawData:         rawData,
	}
	if order.CreatedAt != "" {
		if placedAt, err := time.Parse(time.RFC3339, order.CreatedAt); err == nil {
			channelOrder.PlacedAt = placedAt
		}
	}
	for _, item := range order.Items {
		lineTotal := item.PriceCents * int64(item.Quantity)
		channelOrder.Items = append(channelOrder.Items, domain.ChannelOrderItem{
			ChannelItemID: item.MerchantSuppliedID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     fromCents(item.PriceCents),
			TotalPrice:    decimal.NewFromInt(lineTotal).Div(decimal.NewFromInt(centsPerUnit)),
			ModifierNames: item.Options,
		})
	}
	return channelOrder
}
