package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haber021/coop-kiosk-backend/api/controllers"
	"github.com/haber021/coop-kiosk-backend/api/middleware"
	"github.com/haber021/coop-kiosk-backend/internal/auth"
	"github.com/haber021/coop-kiosk-backend/internal/catalog"
	"github.com/haber021/coop-kiosk-backend/internal/members"
	"github.com/haber021/coop-kiosk-backend/internal/refunds"
	"github.com/haber021/coop-kiosk-backend/internal/scan"
	"github.com/haber021/coop-kiosk-backend/internal/settlement"
	"github.com/haber021/coop-kiosk-backend/internal/stock"
	"github.com/haber021/coop-kiosk-backend/internal/transactions"
	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
	"github.com/haber021/coop-kiosk-backend/pkg/redis"
)

type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    db.Pinger
	Redis       *redis.Client
	Registry    *prometheus.Registry
	MemberRepo  members.Repository
	AuthSvc     auth.Service
	MemberSvc   members.Service
	CatalogSvc  catalog.Service
	StockSvc    stock.Service
	ScanSvc     scan.Service
	SettleSvc   settlement.Service
	RefundSvc   refunds.Service
	TxnSvc      transactions.Service
}

// NewRouter assembles the HTTP surface for the kiosk backend.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewLoginRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	var redisPinger redis.Pinger
	if p.Redis != nil {
		redisPinger = p.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, redisPinger))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		login := controllers.AuthLogin(p.AuthSvc, logg)
		if p.Redis != nil {
			r.With(middleware.LoginRateLimit(loginPolicy, p.Redis, logg)).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
	})

	// Kiosk terminal endpoints. The terminal itself is trusted hardware
	// on the store LAN; members identify per action via RFID and PIN.
	r.Route("/api/v1/kiosk", func(r chi.Router) {
		r.Post("/scan", controllers.ScanRFID(p.MemberSvc, p.ScanSvc, logg))
		r.Get("/scan", controllers.ScanStatus(p.MemberSvc, p.ScanSvc, logg))
		r.Delete("/scan", controllers.ClearScan(p.ScanSvc, logg))
		r.Get("/products/search", controllers.ProductSearch(p.CatalogSvc, logg))
		r.Get("/products/{barcode}", controllers.ProductByBarcode(p.CatalogSvc, logg))
		r.Post("/checkout", controllers.Checkout(p.SettleSvc, p.ScanSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.MemberRepo, logg))

		r.Get("/me", controllers.MemberMe(p.MemberSvc, logg))
		r.Get("/me/movements", controllers.MemberMovements(p.MemberSvc, logg))
		r.Put("/me/pin", controllers.MemberSetPIN(p.MemberSvc, logg))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(p.TxnSvc, logg))
			r.Get("/number/{number}", controllers.TransactionByNumber(p.TxnSvc, logg))
			r.Get("/{transactionId}", controllers.TransactionDetail(p.TxnSvc, logg))
			// staff-or-owner is enforced by the refund service itself
			r.Post("/{transactionId}/refund", controllers.Refund(p.RefundSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			r.Route("/members/{memberId}", func(r chi.Router) {
				r.Post("/refill", controllers.AdminMemberRefill(p.MemberSvc, logg))
				r.Post("/utang-payment", controllers.AdminMemberUtangPayment(p.MemberSvc, logg))
				r.Get("/movements", controllers.AdminMemberMovements(p.MemberSvc, logg))
			})

			r.Get("/products/low-stock", controllers.AdminLowStock(p.CatalogSvc, logg))
			r.Route("/products/{productId}", func(r chi.Router) {
				r.Post("/stock/refill", controllers.AdminStockRefill(p.StockSvc, logg))
				r.Post("/stock/adjust", controllers.AdminStockAdjust(p.StockSvc, logg))
				r.Get("/stock/movements", controllers.AdminStockMovements(p.StockSvc, logg))
			})
		})
	})

	return r
}
