package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/internal/auth"
	"github.com/haber021/coop-kiosk-backend/internal/catalog"
	"github.com/haber021/coop-kiosk-backend/internal/members"
	"github.com/haber021/coop-kiosk-backend/internal/money"
	"github.com/haber021/coop-kiosk-backend/internal/refunds"
	"github.com/haber021/coop-kiosk-backend/internal/scan"
	"github.com/haber021/coop-kiosk-backend/internal/settlement"
	"github.com/haber021/coop-kiosk-backend/internal/stock"
	"github.com/haber021/coop-kiosk-backend/internal/transactions"
	pkgauth "github.com/haber021/coop-kiosk-backend/pkg/auth"
	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
	"github.com/haber021/coop-kiosk-backend/pkg/redis"
	"github.com/haber021/coop-kiosk-backend/pkg/security"
)

type fakeScanStore struct {
	data map[string]string
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{data: make(map[string]string)}
}

func (f *fakeScanStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeScanStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeScanStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeScanStore) ScanSessionKey(terminalID string) string {
	return "kiosk:scan_session:" + terminalID
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        5 * time.Minute,
			LoginIPLimit:       20,
			LoginUsernameLimit: 8,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.StockMovement{},
		&models.MemberType{},
		&models.Member{},
		&models.BalanceMovement{},
		&models.Transaction{},
		&models.TransactionItem{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("error"), Output: io.Discard})
	tx := db.FromGorm(conn)
	memberRepo := members.NewRepository(conn)
	txnRepo := transactions.NewRepository(conn)

	memberSvc, err := members.NewService(tx, memberRepo, config.PINConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("member service: %v", err)
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	stockSvc, err := stock.NewService(tx, conn)
	if err != nil {
		t.Fatalf("stock service: %v", err)
	}
	scanSvc, err := scan.NewService(newFakeScanStore(), 2*time.Minute)
	if err != nil {
		t.Fatalf("scan service: %v", err)
	}
	authSvc, err := auth.NewService(memberRepo, cfg.JWT)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	calc, err := money.NewCalculator(decimal.RequireFromString("0.12"), 1000)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	settleSvc, err := settlement.NewService(settlement.ServiceParams{
		Tx:          tx,
		TxnRepo:     txnRepo,
		MemberRepo:  memberRepo,
		Authorizer:  authSvc,
		Calculator:  calc,
		DefaultRate: decimal.RequireFromString("0.05"),
	})
	if err != nil {
		t.Fatalf("settlement service: %v", err)
	}
	refundSvc, err := refunds.NewService(refunds.ServiceParams{Tx: tx, TxnRepo: txnRepo})
	if err != nil {
		t.Fatalf("refund service: %v", err)
	}
	txnSvc, err := transactions.NewService(txnRepo)
	if err != nil {
		t.Fatalf("transactions service: %v", err)
	}

	router := NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logg,
		DBPinger:   stubPinger{},
		MemberRepo: memberRepo,
		AuthSvc:    authSvc,
		MemberSvc:  memberSvc,
		CatalogSvc: catalogSvc,
		StockSvc:   stockSvc,
		ScanSvc:    scanSvc,
		SettleSvc:  settleSvc,
		RefundSvc:  refundSvc,
		TxnSvc:     txnSvc,
	})
	return router, conn
}

func seedRouteMember(t *testing.T, conn *gorm.DB, role enums.MemberRole) *models.Member {
	t.Helper()
	member := &models.Member{
		ID:             uuid.New(),
		RFIDCardNumber: uuid.NewString(),
		Username:       "member_" + uuid.NewString()[:8],
		FirstName:      "Liza",
		LastName:       "Santos",
		Role:           role,
		Balance:        decimal.Zero,
		UtangBalance:   decimal.Zero,
		IsActive:       true,
	}
	if err := conn.Create(member).Error; err != nil {
		t.Fatalf("seeding member: %v", err)
	}
	return member
}

func buildToken(t *testing.T, cfg *config.Config, member *models.Member) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		MemberID: member.ID,
		Role:     member.Role,
	})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestMeReturnsAuthenticatedMember(t *testing.T) {
	cfg := testConfig()
	router, conn := newTestRouter(t, cfg)
	member := seedRouteMember(t, conn, enums.MemberRoleMember)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, member))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Data.ID != member.ID.String() {
		t.Fatalf("expected member %s got %s", member.ID, body.Data.ID)
	}
}

func TestRefundRejectsNonOwner(t *testing.T) {
	cfg := testConfig()
	router, conn := newTestRouter(t, cfg)
	owner := seedRouteMember(t, conn, enums.MemberRoleMember)
	outsider := seedRouteMember(t, conn, enums.MemberRoleMember)

	ownerID := owner.ID
	sale := &models.Transaction{
		ID:                uuid.New(),
		TransactionNumber: "TXN20260831000001",
		MemberID:          &ownerID,
		Status:            enums.TransactionStatusCompleted,
		PaymentMethod:     enums.PaymentMethodDebit,
		TotalAmount:       decimal.RequireFromString("55.00"),
		VATAmount:         decimal.RequireFromString("6.60"),
		VatableSale:       decimal.RequireFromString("48.40"),
		Subtotal:          decimal.RequireFromString("55.00"),
	}
	if err := conn.Create(sale).Error; err != nil {
		t.Fatalf("seeding sale: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+sale.ID.String()+"/refund", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, outsider))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router, conn := newTestRouter(t, cfg)
	cashier := seedRouteMember(t, conn, enums.MemberRoleCashier)
	admin := seedRouteMember(t, conn, enums.MemberRoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products/low-stock", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, cashier))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/products/low-stock", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, admin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeactivatedMemberRejected(t *testing.T) {
	cfg := testConfig()
	router, conn := newTestRouter(t, cfg)
	member := seedRouteMember(t, conn, enums.MemberRoleMember)
	if err := conn.Model(&models.Member{}).Where("id = ?", member.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivating member: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, member))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated member got %d", resp.Code)
	}
}

func TestKioskBarcodeLookupIsPublic(t *testing.T) {
	router, conn := newTestRouter(t, testConfig())
	product := &models.Product{
		ID:            uuid.New(),
		Name:          "Canned Tuna",
		Barcode:       "4800016641503",
		Price:         decimal.RequireFromString("55.00"),
		StockQuantity: 10,
		IsActive:      true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seeding product: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kiosk/products/4800016641503", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
func TestCheckoutDebitRequiresMatchingScan(t *testing.T) {
	cfg := testConfig()
	router, conn := newTestRouter(t, cfg)

	member := seedRouteMember(t, conn, enums.MemberRoleMember)
	pinHash, err := security.HashPIN("1234", config.PINConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("hashing pin: %v", err)
	}
	updates := map[string]any{"pin_hash": pinHash, "balance": decimal.RequireFromString("100.00")}
	if err := conn.Model(member).Updates(updates).Error; err != nil {
		t.Fatalf("funding member: %v", err)
	}

	product := &models.Product{
		ID:            uuid.New(),
		Name:          "Cooking Oil",
		Barcode:       "4800016641510",
		Price:         decimal.RequireFromString("40.00"),
		StockQuantity: 5,
		IsActive:      true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seeding product: %v", err)
	}

	checkout := func() *httptest.ResponseRecorder {
		payload := map[string]any{
			"terminal_id":    "till-1",
			"member_id":      member.ID,
			"payment_method": "debit",
			"pin":            "1234",
			"items":          []map[string]any{{"product_id": product.ID, "quantity": 1}},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encoding checkout body: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/kiosk/checkout", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	// A body-supplied member id is not enough on its own; the card has
	// to be on the terminal.
	if resp := checkout(); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a scan got %d: %s", resp.Code, resp.Body.String())
	}

	scanBody := `{"card_number":"` + member.RFIDCardNumber + `","terminal_id":"till-1"}`
	scanReq := httptest.NewRequest(http.MethodPost, "/api/v1/kiosk/scan", strings.NewReader(scanBody))
	scanReq.Header.Set("Content-Type", "application/json")
	scanResp := httptest.NewRecorder()
	router.ServeHTTP(scanResp, scanReq)
	if scanResp.Code != http.StatusOK {
		t.Fatalf("expected 200 scanning card got %d: %s", scanResp.Code, scanResp.Body.String())
	}

	if resp := checkout(); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 after scan got %d: %s", resp.Code, resp.Body.String())
	}
}
