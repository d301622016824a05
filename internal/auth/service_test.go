package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/internal/members"
	pkgauth "github.com/haber021/coop-kiosk-backend/pkg/auth"
	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "coop-kiosk", ExpirationMinutes: 60}
}

func testPINConfig() config.PINConfig {
	return config.PINConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.MemberType{}, &models.Member{}))
	return conn
}

func seedMemberWithPIN(t *testing.T, conn *gorm.DB, username, pin string, role enums.MemberRole) *models.Member {
	t.Helper()
	hash, err := security.HashPIN(pin, testPINConfig())
	require.NoError(t, err)
	member := &models.Member{
		ID:             uuid.New(),
		RFIDCardNumber: uuid.NewString(),
		Username:       username,
		PINHash:        &hash,
		FirstName:      "Jose",
		LastName:       "Cruz",
		Role:           role,
		Balance:        decimal.Zero,
		UtangBalance:   decimal.Zero,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(member).Error)
	return member
}

func TestLogin(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	svc, err := NewService(members.NewRepository(conn), testJWTConfig())
	require.NoError(t, err)
	ctx := context.Background()

	member := seedMemberWithPIN(t, conn, "jcruz", "1234", enums.MemberRoleCashier)

	resp, err := svc.Login(ctx, LoginRequest{Username: "jcruz", PIN: "1234"})
	require.NoError(t, err)
	assert.Equal(t, member.ID, resp.Member.ID)
	require.NotEmpty(t, resp.AccessToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, member.ID, claims.MemberID)
	assert.Equal(t, enums.MemberRoleCashier, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	svc, err := NewService(members.NewRepository(conn), testJWTConfig())
	require.NoError(t, err)
	ctx := context.Background()

	seedMemberWithPIN(t, conn, "jcruz", "1234", enums.MemberRoleMember)

	for _, req := range []LoginRequest{
		{Username: "jcruz", PIN: "9999"},
		{Username: "ghost", PIN: "1234"},
		{Username: "", PIN: "1234"},
	} {
		_, err := svc.Login(ctx, req)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	}
}

func TestAuthorizeMemberSpend(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	svc, err := NewService(members.NewRepository(conn), testJWTConfig())
	require.NoError(t, err)
	ctx := context.Background()

	target := seedMemberWithPIN(t, conn, "msantos", "4321", enums.MemberRoleMember)
	cashier := seedMemberWithPIN(t, conn, "cashier1", "1111", enums.MemberRoleCashier)

	// member with own correct pin
	require.NoError(t, svc.AuthorizeMemberSpend(ctx, target, target, "4321"))

	// wrong pin
	err = svc.AuthorizeMemberSpend(ctx, target, target, "0000")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	// staff bypasses the pin entirely
	require.NoError(t, svc.AuthorizeMemberSpend(ctx, cashier, target, ""))

	// member without a pin on file
	noPin := seedMemberWithPIN(t, conn, "nopin", "2222", enums.MemberRoleMember)
	require.NoError(t, conn.Model(&models.Member{}).Where("id = ?", noPin.ID).Update("pin_hash", nil).Error)
	reloaded := &models.Member{}
	require.NoError(t, conn.First(reloaded, "id = ?", noPin.ID).Error)
	err = svc.AuthorizeMemberSpend(ctx, reloaded, reloaded, "2222")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
