package gateways

import (
	"context"
	"encoding/json"
	"strings"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

// PaymentTypeAutomatic marks gateway-redirect payments that produce a hosted link.
const PaymentTypeAutomatic = "automatic"

// TransactionGateway submits checkout payloads to the transaction API.
type TransactionGateway struct {
	client *Client
}

// NewTransactionGateway constructs a TransactionGateway on the shared transport.
func NewTransactionGateway(client *Client) *TransactionGateway {
	return &TransactionGateway{client: client}
}

// TransactionLine is one authenticated submission detail. The variant id is
// mandatory on this path; callers fall back to the product id when no variant
// was resolved.
type TransactionLine struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"product_variant_id"`
	Quantity  int   `json:"qty"`
}

// GuestTransactionLine is one guest submission detail. The variant id is
// optional and omitted entirely unless strictly positive.
type GuestTransactionLine struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"product_variant_id,omitempty"`
	Quantity  int    `json:"qty"`
}

// CustomerInfoPayload carries the delivery block of an authenticated submission.
type CustomerInfoPayload struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	AddressDetail string `json:"address_detail,omitempty"`
	PostalCode    string `json:"postal_code"`
	ProvinceID    int64  `json:"province_id"`
	CityID        int64  `json:"city_id"`
	DistrictID    int64  `json:"district_id"`
}

// ShipmentPayload is the shared shipment descriptor serialised on both paths.
// Param holds the JSON-encoded rate lookup; Shipping holds the verbatim copy of
// the chosen selection for audit and display.
type ShipmentPayload struct {
	Param    string `json:"param"`
	Shipping string `json:"shipping"`
	Courier  string `json:"courier"`
	Cost     int64  `json:"cost"`
}

// CustomerSubmission is the authenticated transaction payload.
type CustomerSubmission struct {
	ShopID         int64               `json:"shop_id"`
	Details        []TransactionLine   `json:"transaction_details"`
	CustomerInfo   CustomerInfoPayload `json:"customer_info"`
	PaymentType    string              `json:"payment_type"`
	PaymentMethod  string              `json:"payment_method,omitempty"`
	PaymentChannel string              `json:"payment_channel,omitempty"`
	VoucherID      *int64              `json:"voucher_id,omitempty"`
	VoucherCode    string              `json:"voucher_code,omitempty"`
	Shipment       ShipmentPayload     `json:"shipment"`
}

// GuestSubmission is the guest transaction payload: contact fields replace the
// session-derived identity.
type GuestSubmission struct {
	ShopID         int64                  `json:"shop_id"`
	Details        []GuestTransactionLine `json:"transaction_details"`
	FullName       string                 `json:"full_name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone"`
	CustomerInfo   CustomerInfoPayload    `json:"customer_info"`
	PaymentType    string                 `json:"payment_type"`
	PaymentMethod  string                 `json:"payment_method,omitempty"`
	PaymentChannel string                 `json:"payment_channel,omitempty"`
	VoucherID      *int64                 `json:"voucher_id,omitempty"`
	VoucherCode    string                 `json:"voucher_code,omitempty"`
	Shipment       ShipmentPayload        `json:"shipment"`
}

// Acknowledgment is the disambiguated result of an accepted submission.
type Acknowledgment struct {
	Outcome     domain.CheckoutOutcome
	Reference   string
	PaymentLink string
}

// SubmitCustomer posts an authenticated submission and disambiguates the response.
func (g *TransactionGateway) SubmitCustomer(ctx context.Context, submission CustomerSubmission) (Acknowledgment, error) {
	var data json.RawMessage
	if err := g.client.postJSON(ctx, "/transactions", submission, &data); err != nil {
		return Acknowledgment{}, err
	}
	return disambiguate(data, submission.PaymentType), nil
}

// SubmitGuest posts a guest submission and disambiguates the response.
func (g *TransactionGateway) SubmitGuest(ctx context.Context, submission GuestSubmission) (Acknowledgment, error) {
	var data json.RawMessage
	if err := g.client.postJSON(ctx, "/transactions/guest", submission, &data); err != nil {
		return Acknowledgment{}, err
	}
	return disambiguate(data, submission.PaymentType), nil
}

type transactionRecord struct {
	Reference string `json:"reference"`
	Payment   *struct {
		AccountNumber string `json:"account_number"`
	} `json:"payment"`
}

// disambiguate decides the acknowledgment outcome once, at the submission
// boundary. A response whose data is not a single object degrades to the
// generic outcome rather than failing the flow.
func disambiguate(data json.RawMessage, paymentType string) Acknowledgment {
	var record transactionRecord
	if len(data) == 0 || json.Unmarshal(data, &record) != nil {
		return Acknowledgment{Outcome: domain.OutcomeGeneric}
	}

	ack := Acknowledgment{
		Outcome:   domain.OutcomeGeneric,
		Reference: strings.TrimSpace(record.Reference),
	}
	if record.Payment != nil {
		ack.PaymentLink = strings.TrimSpace(record.Payment.AccountNumber)
	}

	switch {
	case strings.EqualFold(strings.TrimSpace(paymentType), PaymentTypeAutomatic) && ack.PaymentLink != "":
		ack.Outcome = domain.OutcomeAutomaticPayment
	case ack.Reference != "":
		ack.Outcome = domain.OutcomeReference
	}
	return ack
}
