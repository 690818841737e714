package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"elms-backend/config"
	"elms-backend/controllers"
	"elms-backend/models"
	"elms-backend/services"
	"elms-backend/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	billing := services.NewBillingService(db, logger)
	tenancy := services.NewTenancyService(db, services.NopBlobStore{}, logger)
	controllers.Setup(controllers.Services{
		Users:       services.NewUserService(db),
		Portfolio:   services.NewPortfolioService(db, logger),
		Tenancy:     tenancy,
		Billing:     billing,
		Maintenance: services.NewMaintenanceService(db, tenancy, services.NopBlobStore{}, logger),
		Reminders:   services.NewReminderService(db, billing, nil, logger),
	})

	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	return &testServer{t: t, db: db, router: SetupRouter(cfg, db, logger)}
}

func token(t *testing.T, user *models.User) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(user *models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+token(s.t, user))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func firstField(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	fields, ok := body["fields"].([]interface{})
	require.True(t, ok, "no fields in %v", body)
	require.NotEmpty(t, fields)
	return fields[0].(map[string]interface{})["field"].(string)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	w := s.do(nil, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	inactive := testutil.CreateUser(t, s.db, models.RoleLandlord)
	require.NoError(t, s.db.Model(inactive).Update("is_active", false).Error)
	w = s.do(inactive, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	estate := testutil.CreateEstate(t, s.db, "10000")

	w := s.do(estate.Landlord, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "landlord", decode(t, w)["policy"])

	w = s.do(estate.Tenant, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "tenant", body["policy"])
	assert.Equal(t, estate.Tenancy.ID.String(), body["tenancyId"])
}

func TestInvoiceEndpoints(t *testing.T) {
	s := newTestServer(t)
	estate := testutil.CreateEstate(t, s.db, "10000")
	stranger := testutil.CreateUser(t, s.db, models.RoleLandlord)

	w := s.do(estate.Landlord, http.MethodPost, "/api/invoices", map[string]interface{}{
		"tenancyId":       estate.Tenancy.ID,
		"month":           "2024-06-01",
		"waterBill":       500,
		"electricityBill": 300,
		"dueDate":         "2099-06-20",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.True(t, strings.HasPrefix(created["invoiceNumber"].(string), "INV-"))
	assert.Equal(t, "PENDING", created["status"])
	invoiceID := created["id"].(string)

	t.Run("missing month", func(t *testing.T) {
		w := s.do(estate.Landlord, http.MethodPost, "/api/invoices", map[string]interface{}{
			"tenancyId": estate.Tenancy.ID,
			"dueDate":   "2099-06-20",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "month", firstField(t, decode(t, w)))
	})

	t.Run("invisible to another landlord", func(t *testing.T) {
		w := s.do(stranger, http.MethodGet, "/api/invoices/"+invoiceID, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Invoice not found", decode(t, w)["error"])
	})

	t.Run("visible to its tenant", func(t *testing.T) {
		w := s.do(estate.Tenant, http.MethodGet, "/api/invoices/"+invoiceID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := s.do(estate.Landlord, http.MethodGet, "/api/invoices/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("statistics route", func(t *testing.T) {
		w := s.do(estate.Landlord, http.MethodGet, "/api/invoices/statistics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decode(t, w)["pending_count"])
	})

	t.Run("pending list", func(t *testing.T) {
		w := s.do(estate.Landlord, http.MethodGet, "/api/invoices/pending", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var invoices []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoices))
		assert.Len(t, invoices, 1)
	})
}

func TestPaymentEndpoints(t *testing.T) {
	s := newTestServer(t)
	estate := testutil.CreateEstate(t, s.db, "10000")

	w := s.do(estate.Landlord, http.MethodGet, "/api/payments/by_tenant", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "tenant_id", firstField(t, decode(t, w)))

	w = s.do(estate.Landlord, http.MethodPost, "/api/payments", map[string]interface{}{
		"tenancyId":     estate.Tenancy.ID,
		"amount":        2500,
		"paymentMethod": "CASH",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(estate.Landlord, http.MethodPost, "/api/payments", map[string]interface{}{
		"tenancyId":     estate.Tenancy.ID,
		"amount":        2500,
		"paymentMethod": "BITCOIN",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "paymentMethod", firstField(t, decode(t, w)))

	w = s.do(estate.Tenant, http.MethodGet, "/api/payments/by_tenant?tenant_id="+estate.Tenancy.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	assert.Len(t, payments, 1)

	w = s.do(estate.Tenant, http.MethodGet, "/api/receipts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var receipts []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipts))
	assert.Len(t, receipts, 1)
}

func TestReminderEndpointsAreStaffOnly(t *testing.T) {
	s := newTestServer(t)
	estate := testutil.CreateEstate(t, s.db, "10000")

	w := s.do(estate.Landlord, http.MethodPost, "/api/reminders/sweep", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := testutil.CreateUser(t, s.db, models.RoleAdmin)
	w = s.do(staff, http.MethodGet, "/api/reminders/logs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(staff, http.MethodGet, "/api/reminders/logs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)
	estate := testutil.CreateEstate(t, s.db, "10000")

	w := s.do(estate.Landlord, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	properties := body["properties"].(map[string]interface{})
	assert.Equal(t, float64(1), properties["total_properties"])
	assert.Equal(t, float64(1), properties["occupied_units"])
	assert.Equal(t, []interface{}{}, body["recentPayments"])
}
