package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
)

var (
	errVoucherGatewayRequired = errors.New("voucher service: gateway is required")
	errVoucherClockRequired   = errors.New("voucher service: clock is required")
)

// ErrVoucherInvalidInput indicates the caller supplied invalid input.
var ErrVoucherInvalidInput = errors.New("voucher service: invalid input")

// ErrVoucherUnavailable indicates the voucher API could not be consulted.
var ErrVoucherUnavailable = errors.New("voucher service: unavailable")

// ErrVoucherThrottled indicates the session searched again inside the debounce window.
var ErrVoucherThrottled = errors.New("voucher service: throttled")

const (
	defaultMinQueryLength = 3
	defaultSearchWindow   = 350 * time.Millisecond
	voucherStatusActive   = "active"
)

// VoucherSearcher is the gateway surface the voucher picker consumes.
type VoucherSearcher interface {
	Search(ctx context.Context, term string, page domain.Pagination) ([]domain.Voucher, domain.PageMeta, error)
}

// VoucherServiceDeps wires the voucher gateway and search tuning.
type VoucherServiceDeps struct {
	Gateway        VoucherSearcher
	Clock          Clock
	MinQueryLength int
	SearchWindow   time.Duration
	Logger         func(context.Context, string, map[string]any)
}

type voucherService struct {
	gateway   VoucherSearcher
	now       func() time.Time
	minLength int
	window    time.Duration
	logger    func(context.Context, string, map[string]any)

	mu         sync.Mutex
	lastSearch map[string]time.Time
}

// NewVoucherService constructs a VoucherService enforcing dependency validation.
func NewVoucherService(deps VoucherServiceDeps) (VoucherService, error) {
	if deps.Gateway == nil {
		return nil, errVoucherGatewayRequired
	}
	if deps.Clock == nil {
		return nil, errVoucherClockRequired
	}

	minLength := deps.MinQueryLength
	if minLength <= 0 {
		minLength = defaultMinQueryLength
	}
	window := deps.SearchWindow
	if window <= 0 {
		window = defaultSearchWindow
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &voucherService{
		gateway:    deps.Gateway,
		now:        func() time.Time { return deps.Clock() },
		minLength:  minLength,
		window:     window,
		logger:     logger,
		lastSearch: make(map[string]time.Time),
	}, nil
}

// Search queries the voucher API and filters the result to currently-valid
// vouchers. Queries under the minimum length return no results without a
// network call; searches inside the per-session debounce window are rejected.
func (s *voucherService) Search(ctx context.Context, cmd VoucherSearchCommand) ([]domain.Voucher, error) {
	sessionKey := strings.TrimSpace(cmd.SessionKey)
	if sessionKey == "" {
		return nil, ErrVoucherInvalidInput
	}

	query := strings.TrimSpace(cmd.Query)
	if len([]rune(query)) < s.minLength {
		return []domain.Voucher{}, nil
	}

	if !s.admit(sessionKey) {
		return nil, ErrVoucherThrottled
	}

	page := cmd.Page
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PerPage <= 0 {
		page.PerPage = 20
	}

	vouchers, _, err := s.gateway.Search(ctx, query, page)
	if err != nil {
		return nil, ErrVoucherUnavailable
	}

	now := s.now()
	selectable := make([]domain.Voucher, 0, len(vouchers))
	for _, voucher := range vouchers {
		if !voucherSelectable(voucher, now) {
			continue
		}
		selectable = append(selectable, voucher)
	}

	s.logger(ctx, "voucher.searched", map[string]any{
		"session_key": sessionKey,
		"query_len":   len(query),
		"returned":    len(vouchers),
		"selectable":  len(selectable),
	})
	return selectable, nil
}

// Select collapses a chosen voucher (or nil for "no voucher") into the opaque
// selection handed to checkout. The selection is not re-validated downstream.
func (s *voucherService) Select(ctx context.Context, voucher *domain.Voucher) *domain.VoucherSelection {
	return domain.SelectionFromVoucher(voucher)
}

// admit records the search instant and reports whether the debounce window had
// elapsed since the session's previous search.
func (s *voucherService) admit(sessionKey string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastSearch[sessionKey]; ok && now.Sub(last) < s.window {
		return false
	}
	s.lastSearch[sessionKey] = now

	if len(s.lastSearch) > 10000 {
		for key, last := range s.lastSearch {
			if now.Sub(last) >= s.window {
				delete(s.lastSearch, key)
			}
		}
	}
	return true
}

func voucherSelectable(voucher domain.Voucher, now time.Time) bool {
	if !strings.EqualFold(voucher.Status, voucherStatusActive) {
		return false
	}
	if voucher.StartDate.IsZero() || voucher.EndDate.IsZero() {
		return false
	}
	if now.Before(voucher.StartDate) || now.After(voucher.EndDate) {
		return false
	}
	return true
}
