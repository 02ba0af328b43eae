package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/waduh12345/hrbalife-sub001/internal/gateways"
	"github.com/waduh12345/hrbalife-sub001/internal/platform/config"
	"github.com/waduh12345/hrbalife-sub001/internal/repositories"
	"github.com/waduh12345/hrbalife-sub001/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Cart     services.CartService
	Notifier services.CartNotifier
	Resolver services.ResolverService
	Vouchers services.VoucherService
	Shipping services.ShippingService
	Checkout services.CheckoutService
}

// Gateways bundles the upstream REST clients for callers that need them directly.
type Gateways struct {
	Catalog      *gateways.CatalogGateway
	Vouchers     *gateways.VoucherGateway
	Shipping     *gateways.ShippingGateway
	Transactions *gateways.TransactionGateway
}

// Container wires repositories, gateways, and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Gateways     Gateways
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// the Redis-backed registry; tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, logger func(context.Context, string, map[string]any)) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	gw, err := buildGateways(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := buildServices(cfg, reg, gw, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Gateways:     gw,
		Services:     svc,
	}, nil
}

// Close releases resources such as the repository client.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildGateways(cfg config.Config) (Gateways, error) {
	options := []gateways.ClientOption{
		gateways.WithAPIKey(cfg.Upstream.APIKey),
		gateways.WithTimeout(cfg.Upstream.Timeout),
		gateways.WithMaxRetries(cfg.Upstream.MaxRetries),
	}

	catalogClient, err := gateways.NewClient(cfg.Upstream.CatalogBaseURL, options...)
	if err != nil {
		return Gateways{}, fmt.Errorf("build catalog client: %w", err)
	}
	voucherClient, err := gateways.NewClient(cfg.Upstream.VoucherBaseURL, options...)
	if err != nil {
		return Gateways{}, fmt.Errorf("build voucher client: %w", err)
	}
	shippingClient, err := gateways.NewClient(cfg.Upstream.ShippingBaseURL, options...)
	if err != nil {
		return Gateways{}, fmt.Errorf("build shipping client: %w", err)
	}
	transactionClient, err := gateways.NewClient(cfg.Upstream.TransactionBaseURL, options...)
	if err != nil {
		return Gateways{}, fmt.Errorf("build transaction client: %w", err)
	}

	return Gateways{
		Catalog:      gateways.NewCatalogGateway(catalogClient),
		Vouchers:     gateways.NewVoucherGateway(voucherClient),
		Shipping:     gateways.NewShippingGateway(shippingClient),
		Transactions: gateways.NewTransactionGateway(transactionClient),
	}, nil
}

func buildServices(cfg config.Config, reg repositories.Registry, gw Gateways, logger func(context.Context, string, map[string]any)) (Services, error) {
	var svc Services

	svc.Notifier = services.NewCartNotifier(0, time.Now)

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository:  reg.Carts(),
		Notifier:    svc.Notifier,
		Clock:       time.Now,
		IDGenerator: func() string { return ulid.Make().String() },
		Logger:      logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	resolverSvc, err := services.NewResolverService(services.ResolverServiceDeps{
		Catalog: gw.Catalog,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build resolver service: %w", err)
	}
	svc.Resolver = resolverSvc

	voucherSvc, err := services.NewVoucherService(services.VoucherServiceDeps{
		Gateway:        gw.Vouchers,
		Clock:          time.Now,
		MinQueryLength: cfg.Voucher.MinQueryLength,
		SearchWindow:   cfg.Voucher.SearchWindow,
		Logger:         logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build voucher service: %w", err)
	}
	svc.Vouchers = voucherSvc

	shippingSvc, err := services.NewShippingService(services.ShippingServiceDeps{
		Gateway: gw.Shipping,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipping service: %w", err)
	}
	svc.Shipping = shippingSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:         svc.Cart,
		Transactions:  gw.Transactions,
		GuestContacts: reg.GuestContacts(),
		Clock:         time.Now,
		Logger:        logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	return svc, nil
}
