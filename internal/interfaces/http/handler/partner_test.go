package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/partnerly/backend/internal/application/billing"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/partnerly/backend/internal/infrastructure/persistence"
	"github.com/partnerly/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type partnerTestEnv struct {
	engine *gin.Engine
	db     *gorm.DB
}

func setupPartnerTestEnv(t *testing.T) *partnerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ReferralCodeModel{},
		&models.PartnerModel{},
		&models.ReferralAttributionModel{},
		&models.CommissionEntryModel{},
	))

	ledgerService := appbilling.NewLedgerQueryService(appbilling.LedgerQueryServiceConfig{
		Scope:  persistence.NewGormTransactionScope(db),
		Logger: zap.NewNop(),
	})

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewPartnerHandler(ledgerService).RegisterRoutes(api)

	return &partnerTestEnv{engine: engine, db: db}
}

func (env *partnerTestEnv) getLedger(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	env.engine.ServeHTTP(recorder, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder, body
}

func (env *partnerTestEnv) seedEntries(t *testing.T, partnerID uuid.UUID, count int) {
	t.Helper()
	ctx := context.Background()
	repo := persistence.NewGormCommissionEntryRepository(env.db)
	for i := 0; i < count; i++ {
		entry, err := ledger.NewAccrual(
			fmt.Sprintf("in_%03d", i),
			partnerID,
			uuid.New(),
			nil,
			valueobject.MustMoney(1000, valueobject.USD),
			decimal.NewFromFloat(0.10),
			nil, nil,
		)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, entry))
	}
}

func TestPartnerHandler_GetLedger(t *testing.T) {
	env := setupPartnerTestEnv(t)
	partnerID := uuid.New()
	env.seedEntries(t, partnerID, 3)

	recorder, body := env.getLedger(t, "/api/v1/partners/"+partnerID.String()+"/ledger")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, partnerID.String(), data["partner_id"])
	assert.Equal(t, float64(300), data["total"])
	assert.Len(t, data["entries"], 3)
}

func TestPartnerHandler_GetLedgerPagination(t *testing.T) {
	env := setupPartnerTestEnv(t)
	partnerID := uuid.New()
	env.seedEntries(t, partnerID, 5)

	recorder, body := env.getLedger(t,
		"/api/v1/partners/"+partnerID.String()+"/ledger?limit=2&offset=2")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["entries"], 2)
	assert.Equal(t, float64(500), data["total"], "total spans all entries, not just the page")
	assert.Equal(t, float64(2), data["limit"])
	assert.Equal(t, float64(2), data["offset"])
}

func TestPartnerHandler_GetLedgerEmpty(t *testing.T) {
	env := setupPartnerTestEnv(t)

	recorder, body := env.getLedger(t, "/api/v1/partners/"+uuid.New().String()+"/ledger")

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(0), data["total"])
	assert.Empty(t, data["entries"])
}

func TestPartnerHandler_RecomputeStats(t *testing.T) {
	env := setupPartnerTestEnv(t)
	partnerRepo := persistence.NewGormPartnerRepository(env.db)
	ctx := context.Background()

	partner, err := referral.NewPartner("Acme Media", "partners@acme.test", decimal.RequireFromString("0.70"))
	require.NoError(t, err)
	require.NoError(t, partner.Approve())
	partner.Stats.TotalCommissionEarned = 999 // drifted away from the ledger
	require.NoError(t, partnerRepo.Save(ctx, partner))

	env.seedEntries(t, partner.ID, 3)

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/partners/"+partner.ID.String()+"/recompute-stats", nil)
	recorder := httptest.NewRecorder()
	env.engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(300), data["total_commission_earned"])

	found, err := partnerRepo.FindByID(ctx, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), found.Stats.TotalCommissionEarned,
		"stored stats match the ledger after recompute")
}

func TestPartnerHandler_RecomputeStatsUnknownPartner(t *testing.T) {
	env := setupPartnerTestEnv(t)

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/partners/"+uuid.New().String()+"/recompute-stats", nil)
	recorder := httptest.NewRecorder()
	env.engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestPartnerHandler_GetLedgerInvalidID(t *testing.T) {
	env := setupPartnerTestEnv(t)

	recorder, body := env.getLedger(t, "/api/v1/partners/not-a-uuid/ledger")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, false, body["success"])
}

func TestPartnerHandler_GetLedgerInvalidPagination(t *testing.T) {
	env := setupPartnerTestEnv(t)

	recorder, _ := env.getLedger(t,
		"/api/v1/partners/"+uuid.New().String()+"/ledger?limit=abc")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
