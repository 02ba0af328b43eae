package services

import (
	"context"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

// CartService manages the per-session cart while enforcing line identity and
// stock-cap rules. Every mutation persists the full snapshot before returning.
type CartService interface {
	GetCart(ctx context.Context, sessionKey string) (domain.Cart, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (CartMutation, error)
	IncreaseQuantity(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error)
	DecreaseQuantity(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error)
	RemoveItem(ctx context.Context, sessionKey string, identity domain.LineIdentity) (CartMutation, error)
	Clear(ctx context.Context, sessionKey string) error
}

// AddItemCommand adds one unit of a resolved purchasable unit to the cart.
type AddItemCommand struct {
	SessionKey string
	Unit       domain.ResolvedUnit
}

// CartMutation reports the cart after a mutation. Capped marks an add that was
// silently held at resolved stock instead of applied.
type CartMutation struct {
	Cart   domain.Cart
	Capped bool
}

// CartNotifier holds the single "item added" alert with an expiry window.
type CartNotifier interface {
	Notify(item domain.CartLineItem)
	Current() (domain.CartLineItem, bool)
}

// ResolverService resolves the purchasable unit for a product before it can be
// added to the cart.
type ResolverService interface {
	ResolveProduct(ctx context.Context, productID int64) (ProductResolution, error)
	ResolveUnit(ctx context.Context, cmd ResolveUnitCommand) (domain.ResolvedUnit, error)
}

// ProductResolution is the selectable tree for a product: its variants and, per
// variant, its sizes. An empty Variants slice means the product short-circuits
// to an immediately addable unit.
type ProductResolution struct {
	Product  domain.Product
	Variants []VariantResolution
	// Unit is populated only on the zero-variant short-circuit.
	Unit *domain.ResolvedUnit
}

// VariantResolution pairs a variant with its sizes.
type VariantResolution struct {
	Variant domain.ProductVariant
	Sizes   []domain.VariantSize
}

// ResolveUnitCommand picks a concrete unit out of a product's selectable tree.
// VariantID and SizeID are 0 when not selected.
type ResolveUnitCommand struct {
	ProductID int64
	VariantID int64
	SizeID    int64
}

// VoucherService searches and validates selectable vouchers.
type VoucherService interface {
	Search(ctx context.Context, cmd VoucherSearchCommand) ([]domain.Voucher, error)
	Select(ctx context.Context, voucher *domain.Voucher) *domain.VoucherSelection
}

// VoucherSearchCommand carries one voucher search intent.
type VoucherSearchCommand struct {
	SessionKey string
	Query      string
	Page       domain.Pagination
}

// ShippingService prices candidate shipments for the cart's shop.
type ShippingService interface {
	Rates(ctx context.Context, cmd ShippingRatesCommand) ([]domain.ShippingRate, error)
}

// ShippingRatesCommand describes the shipment to price.
type ShippingRatesCommand struct {
	OriginShopID          int64
	DestinationProvinceID int64
	DestinationCityID     int64
	DestinationDistrictID int64
	WeightGrams           int
	CourierCode           string
}

// CheckoutService validates readiness, builds the submission, dispatches it, and
// branches on the acknowledgment shape and identity mode.
type CheckoutService interface {
	Submit(ctx context.Context, cmd CheckoutCommand) (domain.CheckoutResult, error)
}

// PaymentChoice carries the shopper's payment type/method/channel selection.
type PaymentChoice struct {
	Type    string
	Method  string
	Channel string
}

// CheckoutCommand is one checkout attempt for a session's cart.
type CheckoutCommand struct {
	SessionKey string
	Identity   domain.CheckoutIdentity
	Customer   domain.CustomerInfo
	Shipping   *domain.ShippingSelection
	ShopID     int64
	Payment    PaymentChoice
	Voucher    *domain.VoucherSelection
	// Package dimensions and weight feed the shipment rate-lookup parameter.
	PackageLengthCm    int
	PackageWidthCm     int
	PackageHeightCm    int
	PackageWeightGrams int
}

// Clock is the injected time source used across services.
type Clock func() time.Time
