package channel

// ---------------------------------------------------------------------------
// ChannelCode represents a delivery marketplace integration
// ---------------------------------------------------------------------------

// Code represents a delivery marketplace integration
type Code string

const (
	// CodeUberEats represents the Uber Eats marketplace
	CodeUberEats Code = "UBEREATS"
	// CodeDoorDash represents the DoorDash marketplace
	CodeDoorDash Code = "DOORDASH"
	// CodeGrubhub represents the Grubhub marketplace
	CodeGrubhub Code = "GRUBHUB"
	// CodeDeliveroo represents the Deliveroo marketplace
	CodeDeliveroo Code = "DELIVEROO"
	// CodeJustEat represents the Just Eat marketplace
	CodeJustEat Code = "JUSTEAT"
	// CodeTalabat represents the Talabat marketplace
	CodeTalabat Code = "TALABAT"
)

// IsValid returns true if the channel code is valid
func (c Code) IsValid() bool {
	switch c {
	case CodeUberEats, CodeDoorDash, CodeGrubhub,
		CodeDeliveroo, CodeJustEat, CodeTalabat:
		return true
	default:
		return false
	}
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the marketplace
func (c Code) DisplayName() string {
	switch c {
	case CodeUberEats:
		return "Uber Eats"
	case CodeDoorDash:
		return "DoorDash"
	case CodeGrubhub:
		return "Grubhub"
	case CodeDeliveroo:
		return "Deliveroo"
	case CodeJustEat:
		return "Just Eat"
	case CodeTalabat:
		return "Talabat"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Feature represents an optional adapter capability
// ---------------------------------------------------------------------------

// Feature represents an optional adapter capability advertised per channel
type Feature string

const (
	// FeatureMenuPush indicates the channel accepts full menu pushes
	FeatureMenuPush Feature = "menu_push"
	// FeatureItemUpdate indicates the channel accepts partial item updates
	FeatureItemUpdate Feature = "item_update"
	// FeatureAvailability indicates the channel accepts availability toggles
	FeatureAvailability Feature = "availability"
	// FeatureOrderPull indicates orders can be fetched by polling
	FeatureOrderPull Feature = "order_pull"
	// FeatureOrderStatus indicates order status can be pushed back
	FeatureOrderStatus Feature = "order_status"
	// FeatureWebhooks indicates the channel delivers events via webhooks
	FeatureWebhooks Feature = "webhooks"
)

// FeatureSet is the set of capabilities a channel supports
type FeatureSet map[Feature]bool

// Has returns true if the feature is supported
func (s FeatureSet) Has(f Feature) bool {
	return s[f]
}

// NewFeatureSet builds a feature set from the given features
func NewFeatureSet(features ...Feature) FeatureSet {
	set := make(FeatureSet, len(features))
	for _, f := range features {
		set[f] = true
	}
	return set
}
