package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/anvo-dev/markethub-backend/api/routes"
	checkoutsvc "github.com/anvo-dev/markethub-backend/internal/checkout"
	disputesvc "github.com/anvo-dev/markethub-backend/internal/disputes"
	"github.com/anvo-dev/markethub-backend/internal/gateway"
	"github.com/anvo-dev/markethub-backend/internal/inventory"
	"github.com/anvo-dev/markethub-backend/internal/merchants"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	ordersvc "github.com/anvo-dev/markethub-backend/internal/orders"
	promosvc "github.com/anvo-dev/markethub-backend/internal/promotions"
	reconcilesvc "github.com/anvo-dev/markethub-backend/internal/reconcile"
	refundsvc "github.com/anvo-dev/markethub-backend/internal/refunds"
	returnsvc "github.com/anvo-dev/markethub-backend/internal/returns"
	"github.com/anvo-dev/markethub-backend/internal/shipping"
	walletsvc "github.com/anvo-dev/markethub-backend/internal/wallet"
	"github.com/anvo-dev/markethub-backend/pkg/config"
	"github.com/anvo-dev/markethub-backend/pkg/db"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	ordersRepo := ordersvc.NewRepository(conn)
	walletRepo := walletsvc.NewRepository(conn)
	refundsRepo := refundsvc.NewRepository(conn)
	reconcileRepo := reconcilesvc.NewRepository(conn)
	returnsRepo := returnsvc.NewRepository(conn)
	disputesRepo := disputesvc.NewRepository(conn)
	promosRepo := promosvc.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)

	directory, err := merchants.NewDirectory(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create merchant directory", err)
		os.Exit(1)
	}

	notifier := notifications.NewNotifier(notificationsRepo, logg)
	allocator := inventory.NewAllocator()
	shippingCalc := shipping.NewCalculator(shipping.DefaultZones())
	paymentGateway := gateway.WithTimeout(gateway.NewSandbox(logg), cfg.Gateway)

	walletService, err := walletsvc.NewService(walletRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	refundsService, err := refundsvc.NewService(refundsRepo, paymentGateway, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcilesvc.NewService(reconcileRepo, walletService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	ordersService, err := ordersvc.NewService(ordersRepo, allocator, paymentGateway, walletService, refundsService, reconcileService, notifier, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	promosService, err := promosvc.NewService(promosRepo, ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		checkoutsvc.NewCatalog(conn),
		checkoutsvc.NewCartStore(conn),
		directory,
		shippingCalc,
		promosService,
		allocator,
		ordersRepo,
		notifier,
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	returnsService, err := returnsvc.NewService(returnsRepo, ordersService, directory, refundsService, walletService, notifier, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create return service", err)
		os.Exit(1)
	}

	disputesService, err := disputesvc.NewService(disputesRepo, returnsService, ordersService, walletService, refundsService, reconcileService, notifier, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispute service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			logg,
			dbClient,
			checkoutService,
			ordersService,
			returnsService,
			disputesService,
			refundsService,
			walletService,
			reconcileService,
			notificationsRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
