package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/waduh12345/hrbalife-sub001/internal/domain"
	"github.com/waduh12345/hrbalife-sub001/internal/services"
)

type stubProductResolver struct {
	resolution services.ProductResolution
	err        error
	productID  int64
}

func (s *stubProductResolver) ResolveProduct(ctx context.Context, productID int64) (services.ProductResolution, error) {
	s.productID = productID
	if s.err != nil {
		return services.ProductResolution{}, s.err
	}
	return s.resolution, nil
}

func (s *stubProductResolver) ResolveUnit(ctx context.Context, cmd services.ResolveUnitCommand) (domain.ResolvedUnit, error) {
	return domain.ResolvedUnit{}, nil
}

func newProductTestRouter(resolver services.ResolverService) chi.Router {
	r := chi.NewRouter()
	r.Route("/products", NewProductHandlers(resolver).Routes)
	return r
}

func TestProductResolveReturnsSelectableTree(t *testing.T) {
	resolver := &stubProductResolver{resolution: services.ProductResolution{
		Product: domain.Product{ID: 5, ShopID: 2, Name: "Sepatu Lari", Price: 90000, Stock: 12, Weight: 450},
		Variants: []services.VariantResolution{
			{
				Variant: domain.ProductVariant{ID: 7, Name: "Merah", AdditionalPrice: 10000, Stock: 6},
				Sizes: []domain.VariantSize{
					{ID: 3, Name: "42", AdditionalPrice: 5000, Stock: 4},
				},
			},
		},
	}}
	router := newProductTestRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/products/5/resolve", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if resolver.productID != 5 {
		t.Fatalf("resolver received product %d, want 5", resolver.productID)
	}

	var body struct {
		Product struct {
			ID    int64 `json:"id"`
			Price int64 `json:"price"`
		} `json:"product"`
		Variants []struct {
			ID    int64 `json:"id"`
			Sizes []struct {
				ID              int64 `json:"id"`
				AdditionalPrice int64 `json:"additional_price"`
			} `json:"sizes"`
		} `json:"variants"`
		Unit *resolvedUnitPayload `json:"unit"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Product.ID != 5 || body.Product.Price != 90000 {
		t.Fatalf("unexpected product payload: %+v", body.Product)
	}
	if len(body.Variants) != 1 || body.Variants[0].ID != 7 {
		t.Fatalf("unexpected variants payload: %+v", body.Variants)
	}
	if len(body.Variants[0].Sizes) != 1 || body.Variants[0].Sizes[0].AdditionalPrice != 5000 {
		t.Fatalf("unexpected sizes payload: %+v", body.Variants[0].Sizes)
	}
	if body.Unit != nil {
		t.Fatalf("expected no unit for a product with variants, got %+v", body.Unit)
	}
}

func TestProductResolveShortCircuitsWithoutVariants(t *testing.T) {
	resolver := &stubProductResolver{resolution: services.ProductResolution{
		Product: domain.Product{ID: 5, Name: "Sepatu Lari", Price: 90000, Stock: 12},
		Unit: &domain.ResolvedUnit{
			ProductID: 5,
			UnitPrice: 90000,
			Stock:     12,
			Immediate: true,
		},
	}}
	router := newProductTestRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/products/5/resolve", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Variants []json.RawMessage    `json:"variants"`
		Unit     *resolvedUnitPayload `json:"unit"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Variants) != 0 {
		t.Fatalf("expected empty variants, got %d", len(body.Variants))
	}
	if body.Unit == nil || !body.Unit.Immediate || body.Unit.UnitPrice != 90000 {
		t.Fatalf("unexpected unit payload: %+v", body.Unit)
	}
}

func TestProductResolveRejectsInvalidID(t *testing.T) {
	router := newProductTestRouter(&stubProductResolver{})

	for _, path := range []string{"/products/abc/resolve", "/products/0/resolve", "/products/-3/resolve"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", path, rr.Code)
		}
	}
}

func TestProductResolveNotFound(t *testing.T) {
	router := newProductTestRouter(&stubProductResolver{err: services.ErrResolverNotFound})

	req := httptest.NewRequest(http.MethodGet, "/products/99/resolve", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "product_not_found" {
		t.Fatalf("expected product_not_found, got %v", body["error"])
	}
}

func TestProductResolveUpstreamUnavailable(t *testing.T) {
	router := newProductTestRouter(&stubProductResolver{err: services.ErrResolutionUnavailable})

	req := httptest.NewRequest(http.MethodGet, "/products/5/resolve", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
