package channel

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/menusync/backend/internal/domain/channel"
)

// centsPerUnit converts between decimal prices and the integer cent amounts
// the Uber Eats API speaks
const centsPerUnit = 100

// ---------------------------------------------------------------------------
// Menu upload payloads
// ---------------------------------------------------------------------------

type uberMenuPayload struct {
	MenuID     string             `json:"menu_id"`
	Title      string             `json:"title"`
	Categories []uberMenuCategory `json:"categories"`
}

type uberMenuCategory struct {
	ExternalID string         `json:"external_id"`
	Title      string         `json:"title"`
	Subtitle   string         `json:"subtitle,omitempty"`
	Position   int            `json:"position"`
	Items      []uberMenuItem `json:"items"`
}

type uberMenuItem struct {
	ExternalID     string              `json:"external_id"`
	ItemID         string              `json:"item_id,omitempty"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	PriceAmount    int64               `json:"price_amount"`
	CurrencyCode   string              `json:"currency_code"`
	ImageURLs      []string            `json:"image_urls,omitempty"`
	SuspensionInfo *uberSuspensionInfo `json:"suspension_info,omitempty"`
	ModifierGroups []uberModifierGroup `json:"modifier_groups,omitempty"`
}

type uberSuspensionInfo struct {
	Suspended   bool   `json:"suspended"`
	SuspendedAt string `json:"suspended_until,omitempty"`
}

type uberModifierGroup struct {
	ExternalID   string       `json:"external_id"`
	Title        string       `json:"title"`
	MinPermitted int          `json:"min_permitted"`
	MaxPermitted int          `json:"max_permitted"`
	Options      []uberOption `json:"options"`
}

type uberOption struct {
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	PriceAmount int64  `json:"price_amount"`
	Suspended   bool   `json:"suspended,omitempty"`
}

type uberItemUpdate struct {
	ItemID      string `json:"item_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PriceAmount *int64 `json:"price_amount,omitempty"`
}

type uberAvailabilityUpdate struct {
	ItemID         string              `json:"item_id"`
	SuspensionInfo *uberSuspensionInfo `json:"suspension_info"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type uberErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type uberMenuUploadResponse struct {
	RejectedItems []uberRejectedItem `json:"rejected_items"`
}

type uberRejectedItem struct {
	ExternalID string `json:"external_id"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

type uberOrdersResponse struct {
	Orders []uberOrder `json:"orders"`
}

type uberOrder struct {
	OrderID      string          `json:"id"`
	State        string          `json:"state"`
	Eater        uberEater       `json:"eater"`
	Cart         uberCart        `json:"cart"`
	Payment      uberPayment     `json:"payment"`
	PlacedAtUnix int64           `json:"placed_at"`
	Delivery     uberDeliveryLoc `json:"delivery"`
	SpecialNotes string          `json:"special_instructions"`
}

type uberEater struct {
	FirstName string `json:"first_name"`
	Phone     string `json:"phone"`
}

type uberDeliveryLoc struct {
	Address string `json:"formatted_address"`
}

type uberCart struct {
	Items []uberCartItem `json:"items"`
}

type uberCartItem struct {
	ItemID       string   `json:"id"`
	Title        string   `json:"title"`
	Quantity     int      `json:"quantity"`
	PriceAmount  int64    `json:"price"`
	TotalAmount  int64    `json:"total_price"`
	SelectedMods []string `json:"selected_modifier_titles"`
}

type uberPayment struct {
	TotalAmount  int64  `json:"total"`
	DeliveryFee  int64  `json:"delivery_fee"`
	CurrencyCode string `json:"currency_code"`
}

type uberWebhookEnvelope struct {
	EventType  string    `json:"event_type"`
	ResourceID string    `json:"resource_id"`
	Order      uberOrder `json:"order"`
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func toCents(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(centsPerUnit)).IntPart()
}

func fromCents(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(centsPerUnit))
}

func buildUberMenu(menu *domain.MenuPush) uberMenuPayload {
	payload := uberMenuPayload{
		MenuID:     menu.MenuID.String(),
		Title:      menu.MenuName,
		Categories: make([]uberMenuCategory, 0, len(menu.Categories)),
	}
	for _, category := range menu.Categories {
		wireCategory := uberMenuCategory{
			ExternalID: category.CategoryID.String(),
			Title:      category.Name,
			Subtitle:   category.Description,
			Position:   category.SortOrder,
			Items:      make([]uberMenuItem, 0, len(category.Items)),
		}
		for _, item := range category.Items {
			wireItem := uberMenuItem{
				ExternalID:   item.ItemID.String(),
				ItemID:       item.ChannelItemID,
				Title:        item.Name,
				Description:  item.Description,
				PriceAmount:  toCents(item.Price),
				CurrencyCode: menu.Currency,
				ImageURLs:    item.ImageURLs,
			}
			if !item.IsAvailable {
				wireItem.SuspensionInfo = &uberSuspensionInfo{Suspended: true}
			}
			for _, group := range item.Modifiers {
				wireGroup := uberModifierGroup{
					ExternalID:   group.GroupID.String(),
					Title:        group.Name,
					MinPermitted: group.MinSelections,
					MaxPermitted: group.MaxSelections,
					Options:      make([]uberOption, 0, len(group.Options)),
				}
				for _, option := range group.Options {
					wireGroup.Options = append(wireGroup.Options, uberOption{
						ExternalID:  option.OptionID.String(),
						Title:       option.Name,
						PriceAmount: toCents(option.PriceDelta),
						Suspended:   !option.IsAvailable,
					})
				}
				wireItem.ModifierGroups = append(wireItem.ModifierGroups, wireGroup)
			}
			wireCategory.Items = append(wireCategory.Items, wireItem)
		}
		payload.Categories = append(payload.Categories, wireCategory)
	}
	return payload
}

func countMenuItems(menu *domain.MenuPush) int {
	n := 0
	for _, category := range menu.Categories {
		n += len(category.Items)
	}
	return n
}

// mapUberOrderState maps Uber Eats order states to domain statuses
func mapUberOrderState(state string) domain.OrderStatus {
	switch state {
	case "CREATED", "OFFERED":
		return domain.OrderStatusNew
	case "ACCEPTED":
		return domain.OrderStatusAccepted
	case "IN_PROGRESS":
		return domain.OrderStatusPreparing
	case "READY_FOR_PICKUP":
		return domain.OrderStatusReady
	case "PICKED_UP", "EN_ROUTE":
		return domain.OrderStatusPickedUp
	case "DELIVERED", "COMPLETED":
		return domain.OrderStatusDelivered
	case "CANCELLED":
		return domain.OrderStatusCancelled
	case "DENIED", "FAILED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusNew
	}
}

// mapToUberAction maps a domain status update to the Uber Eats order action
// endpoint suffix. Empty means the transition happens platform-side and
// needs no call.
func mapToUberAction(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusAccepted:
		return "accept_pos_order"
	case domain.OrderStatusRejected:
		return "deny_pos_order"
	case domain.OrderStatusCancelled:
		return "cancel_order"
	case domain.OrderStatusReady:
		return "ready_for_pickup"
	default:
		return ""
	}
}

func convertUberOrder(order *uberOrder, rawData string) domain.ChannelOrder {
	channelOrder := domain.ChannelOrder{
		ChannelOrderID:  order.OrderID,
		ChannelCode:     domain.CodeUberEats,
		Status:          mapUberOrderState(order.State),
		CustomerName:    order.Eater.FirstName,
		CustomerPhone:   order.Eater.Phone,
		DeliveryAddress: order.Delivery.Address,
		TotalAmount:     fromCents(order.Payment.TotalAmount),
		DeliveryFee:     fromCents(order.Payment.DeliveryFee),
		Currency:        order.Payment.CurrencyCode,
		Items:           make([]domain.ChannelOrderItem, 0, len(order.Cart.Items)),
		Notes:           order.SpecialNotes,
		RawData:         rawData,
	}
	if order.PlacedAtUnix > 0 {
		channelOrder.PlacedAt = time.Unix(order.PlacedAtUnix, 0)
	}
	for _, item := range order.Cart.Items {
		unitPrice := fromCents(item.PriceAmount)
		if item.Quantity > 1 && item.PriceAmount == 0 && item.TotalAmount > 0 {
			unitPrice = fromCents(item.TotalAmount).Div(decimal.NewFromInt(int64(item.Quantity)))
		}
		channelOrder.Items = append(channelOrder.Items, domain.ChannelOrderItem{
			ChannelItemID: item.ItemID,
			Name:          item.Title,
			Quantity:      item.Quantity,
			UnitPrice:     unitPrice,
			TotalPrice:    fromCents(item.TotalAmount),
			ModifierNames: item.SelectedMods,
		})
	}
	return channelOrder
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
