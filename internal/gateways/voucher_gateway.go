package gateways

import (
	"context"
	"strings"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

// VoucherGateway searches voucher records on the voucher API.
type VoucherGateway struct {
	client *Client
}

// NewVoucherGateway constructs a VoucherGateway on the shared transport.
func NewVoucherGateway(client *Client) *VoucherGateway {
	return &VoucherGateway{client: client}
}

type voucherDTO struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	FixedAmount      int64  `json:"fixed_amount"`
	PercentageAmount int64  `json:"percentage_amount"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	UsageLimit       int    `json:"usage_limit"`
	Status           string `json:"status"`
}

// Search queries vouchers matching the term with pagination metadata. The result
// is the raw upstream set; validity filtering is the caller's concern.
func (g *VoucherGateway) Search(ctx context.Context, term string, page domain.Pagination) ([]domain.Voucher, domain.PageMeta, error) {
	query := paginationQuery(page)
	query.Set("search", strings.TrimSpace(term))

	var dtos []voucherDTO
	meta, err := g.client.getJSON(ctx, "/vouchers", query, &dtos)
	if err != nil {
		return nil, domain.PageMeta{}, err
	}

	vouchers := make([]domain.Voucher, 0, len(dtos))
	for _, dto := range dtos {
		vouchers = append(vouchers, domain.Voucher{
			ID:               dto.ID,
			Code:             dto.Code,
			Name:             dto.Name,
			Description:      dto.Description,
			Type:             domain.VoucherType(strings.ToLower(strings.TrimSpace(dto.Type))),
			FixedAmount:      dto.FixedAmount,
			PercentageAmount: dto.PercentageAmount,
			StartDate:        parseUpstreamDate(dto.StartDate),
			EndDate:          parseUpstreamDate(dto.EndDate),
			UsageLimit:       dto.UsageLimit,
			Status:           strings.ToLower(strings.TrimSpace(dto.Status)),
		})
	}
	return vouchers, meta, nil
}

// parseUpstreamDate accepts the date formats the voucher API is known to emit.
// Unparseable values yield the zero time, which downstream validity checks reject.
func parseUpstreamDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
