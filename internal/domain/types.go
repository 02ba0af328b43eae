package domain

import (
	"encoding/json"
	"time"
)

// LineIdentity is the identity triple for a cart line. VariantID and SizeID are
// zero when the product (or variant) itself is the purchasable unit.
type LineIdentity struct {
	ProductID int64
	VariantID int64
	SizeID    int64
}

// CartLineItem stores a single purchasable unit within a cart. Display fields are
// denormalised for rendering and are not authoritative.
type CartLineItem struct {
	ID           string
	ProductID    int64
	VariantID    int64
	SizeID       int64
	UnitPrice    int64
	Quantity     int
	Stock        int
	DisplayImage string
	DisplayName  string
	VariantLabel string
	SizeLabel    string
	AddedAt      time.Time
	UpdatedAt    *time.Time
}

// Identity returns the line's identity triple.
func (i CartLineItem) Identity() LineIdentity {
	return LineIdentity{ProductID: i.ProductID, VariantID: i.VariantID, SizeID: i.SizeID}
}

// Cart aggregates the mutable shopping cart state for a storefront session.
type Cart struct {
	SessionKey string
	Items      []CartLineItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ItemCount sums quantities across all lines.
func (c Cart) ItemCount() int {
	var total int
	for _, item := range c.Items {
		if item.Quantity > 0 {
			total += item.Quantity
		}
	}
	return total
}

// TotalPrice sums line subtotals in the smallest currency unit. Derived on every
// call; no aggregate is ever persisted.
func (c Cart) TotalPrice() int64 {
	var total int64
	for _, item := range c.Items {
		if item.Quantity <= 0 || item.UnitPrice <= 0 {
			continue
		}
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Product is the catalog projection consumed by the resolver.
type Product struct {
	ID     int64
	ShopID int64
	Name   string
	Image  string
	Price  int64
	Stock  int
	Weight int
}

// ProductVariant is a purchasable sub-type of a product; it may carry sizes.
type ProductVariant struct {
	ID              int64
	ProductID       int64
	Name            string
	SKU             string
	Image           string
	AdditionalPrice int64
	Stock           int
}

// VariantSize carries size-level price delta and stock for a variant.
type VariantSize struct {
	ID              int64
	VariantID       int64
	Name            string
	AdditionalPrice int64
	Stock           int
}

// ResolvedUnit is the outcome of variant/size resolution: the effective unit
// identity, price, and stock a cart line is created from.
type ResolvedUnit struct {
	ProductID    int64
	VariantID    int64
	SizeID       int64
	ShopID       int64
	SKU          string
	UnitPrice    int64
	Stock        int
	WeightGrams  int
	DisplayName  string
	DisplayImage string
	VariantLabel string
	SizeLabel    string
	// Immediate marks the zero-variant short-circuit: the product itself is the
	// unit and may be added without further selection.
	Immediate bool
}

// VoucherType discriminates fixed-amount and percentage discounts.
type VoucherType string

const (
	// VoucherTypeFixed subtracts a fixed amount from the order total.
	VoucherTypeFixed VoucherType = "fixed"
	// VoucherTypePercentage subtracts a percentage of the order total.
	VoucherTypePercentage VoucherType = "percentage"
)

// Voucher mirrors the upstream voucher record used for display and selection.
type Voucher struct {
	ID               int64
	Code             string
	Name             string
	Description      string
	Type             VoucherType
	FixedAmount      int64
	PercentageAmount int64
	StartDate        time.Time
	EndDate          time.Time
	UsageLimit       int
	Status           string
}

// VoucherSelection is the opaque "intent to apply" value handed to checkout.
// Validity and usage limits remain the upstream API's responsibility.
type VoucherSelection struct {
	ID               int64
	Code             string
	Type             VoucherType
	FixedAmount      int64
	PercentageAmount int64
}

// SelectionFromVoucher collapses a chosen voucher into a VoucherSelection.
// A nil voucher collapses to nil ("no voucher").
func SelectionFromVoucher(v *Voucher) *VoucherSelection {
	if v == nil {
		return nil
	}
	return &VoucherSelection{
		ID:               v.ID,
		Code:             v.Code,
		Type:             v.Type,
		FixedAmount:      v.FixedAmount,
		PercentageAmount: v.PercentageAmount,
	}
}

// ShippingRate is one courier rate option returned by the shipping-rate lookup.
type ShippingRate struct {
	Name        string
	Code        string
	Service     string
	Description string
	Cost        int64
	ETD         string
}

// ShippingSelection is the chosen rate treated as a value object: checkout
// serialises Raw verbatim into the submission and interprets only the courier
// code and cost.
type ShippingSelection struct {
	CourierCode string
	Cost        int64
	Raw         json.RawMessage
}

// CheckoutIdentity is a discriminated identity state: exactly one of
// AuthenticatedIdentity or GuestIdentity. The two branches produce structurally
// different submission payloads and post-submission destinations.
type CheckoutIdentity interface {
	checkoutIdentity()
}

// AuthenticatedIdentity carries the session email of a signed-in shopper.
type AuthenticatedIdentity struct {
	Email string
}

func (AuthenticatedIdentity) checkoutIdentity() {}

// GuestIdentity carries the explicit contact fields a guest must supply before
// submission is attempted.
type GuestIdentity struct {
	FullName string
	Phone    string
	Email    string
}

func (GuestIdentity) checkoutIdentity() {}

// GuestContact is the prefill snapshot persisted after a successful guest
// checkout.
type GuestContact struct {
	FullName string
	Email    string
	Phone    string
	SavedAt  time.Time
}

// CustomerInfo groups the delivery fields shared by both submission shapes.
type CustomerInfo struct {
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	PostalCode   string
	ProvinceID   int64
	CityID       int64
	DistrictID   int64
}

// CheckoutOutcome tags the disambiguated submission acknowledgment. The decision
// is made once at the submission boundary and never re-checked downstream.
type CheckoutOutcome string

const (
	// OutcomeAutomaticPayment indicates an automatic payment with a usable
	// gateway link.
	OutcomeAutomaticPayment CheckoutOutcome = "automatic_payment"
	// OutcomeReference indicates a transaction reference without a usable link
	// (manual follow-up).
	OutcomeReference CheckoutOutcome = "reference"
	// OutcomeGeneric indicates the order was created but the response carried
	// neither a recognisable link nor a reference.
	OutcomeGeneric CheckoutOutcome = "generic"
)

// CheckoutResult reports an accepted submission. Rejections surface as errors,
// never as a result value.
type CheckoutResult struct {
	Outcome      CheckoutOutcome
	Reference    string
	PaymentLink  string
	RedirectPath string
}

// Pagination carries upstream list paging inputs.
type Pagination struct {
	Page    int
	PerPage int
}

// PageMeta mirrors the pagination metadata attached to upstream list responses.
type PageMeta struct {
	Page     int
	PerPage  int
	Total    int
	LastPage int
}
