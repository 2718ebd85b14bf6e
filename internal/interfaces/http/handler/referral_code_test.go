package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appreferral "github.com/partnerly/backend/internal/application/referral"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/infrastructure/persistence"
	"github.com/partnerly/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type codeTestEnv struct {
	engine *gin.Engine
	db     *gorm.DB
}

func setupCodeTestEnv(t *testing.T) *codeTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ReferralCodeModel{},
		&models.PartnerModel{},
	))

	directory := appreferral.NewCodeDirectory(appreferral.CodeDirectoryConfig{
		CodeRepo:    persistence.NewGormReferralCodeRepository(db),
		PartnerRepo: persistence.NewGormPartnerRepository(db),
		Logger:      zap.NewNop(),
	})

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewReferralCodeHandler(directory).RegisterRoutes(api)

	return &codeTestEnv{engine: engine, db: db}
}

func (env *codeTestEnv) validate(t *testing.T, code string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/referral-codes/"+code+"/validate", nil)
	recorder := httptest.NewRecorder()
	env.engine.ServeHTTP(recorder, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder, body
}

func TestReferralCodeHandler_ValidCode(t *testing.T) {
	env := setupCodeTestEnv(t)
	ctx := context.Background()

	partner, err := referral.NewPartner("Acme Media", "partners@acme.test", decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	require.NoError(t, partner.Approve())
	require.NoError(t, persistence.NewGormPartnerRepository(env.db).Save(ctx, partner))

	code, err := referral.NewReferralCode("SAVE20", partner.ID)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormReferralCodeRepository(env.db).Save(ctx, code))

	recorder, body := env.validate(t, "save20")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "SAVE20", data["code"])
}

func TestReferralCodeHandler_UnknownCodeIsValidAnswer(t *testing.T) {
	env := setupCodeTestEnv(t)

	recorder, body := env.validate(t, "NOSUCH1")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, "CODE_NOT_FOUND", data["reason"])
}

func TestReferralCodeHandler_ExpiredCode(t *testing.T) {
	env := setupCodeTestEnv(t)
	ctx := context.Background()

	partner, err := referral.NewPartner("Acme Media", "partners@acme.test", decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	require.NoError(t, partner.Approve())
	require.NoError(t, persistence.NewGormPartnerRepository(env.db).Save(ctx, partner))

	code, err := referral.NewReferralCode("OLDCODE", partner.ID)
	require.NoError(t, err)
	code.SetExpiration(time.Now().Add(-time.Hour))
	require.NoError(t, persistence.NewGormReferralCodeRepository(env.db).Save(ctx, code))

	recorder, body := env.validate(t, "OLDCODE")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, "CODE_EXPIRED", data["reason"])
}
