package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/address"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/config"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/coupon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/events"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/order"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer: ekspor order selesai ke boundary ERP
	prod := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCompleted, 1024, logger)
	prod.Start(ctx)

	// Repos
	carts := &cart.PgStore{DB: db}
	coupons := &coupon.PgStore{DB: db}
	ledger := &stock.PgLedger{DB: db}
	orders := &order.PgStore{DB: db}
	evaluator := &coupon.Evaluator{Store: coupons}

	svc := &checkout.Service{
		Carts:       carts,
		Addresses:   &address.PgStore{DB: db},
		Products:    &catalog.PgStore{DB: db},
		Orders:      orders,
		Coupons:     evaluator,
		CouponTx:    coupons,
		Ledger:      ledger,
		Producer:    prod,
		ServiceName: cfg.ServiceName,
		Log:         logger,
	}

	// Router & handler
	router := httpx.NewRouter()
	h := &httpx.CheckoutHandler{
		Svc:    svc,
		Reader: &cart.Reader{Carts: carts, Coupons: evaluator},
		Orders: orders,
		Ledger: ledger,
		Redis:  rdb,
	}
	h.Register(router)

	// Sweep cart idle di background
	sweeper := &cart.Sweeper{
		Store:    carts,
		IdleTTL:  cfg.CartIdleTTL,
		Interval: cfg.CartSweepInterval,
		Log:      logger,
	}
	go sweeper.Run(ctx)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop & sweeper
	prod.WaitClosed() // drain
}
