package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/infrastructure/persistence"
	"github.com/erp/fincalc/internal/infrastructure/persistence/models"
	"github.com/erp/fincalc/internal/infrastructure/statement"
	"github.com/erp/fincalc/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type testServer struct {
	engine   *gin.Engine
	tenantID uuid.UUID
}

// newTestServer wires the handlers to real services over an in-memory database
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.DB.AutoMigrate(models.AllModels()...))

	repos := db.Repositories()
	accounts := financeapp.DefaultPostingAccounts()
	catalog, err := finance.NewIncentivePlanCatalog(finance.DefaultIncentivePlan(), nil)
	require.NoError(t, err)

	tax := NewTaxHandler(financeapp.NewTaxService(finance.NewTaxBracketCalculator(finance.DefaultTaxSchedule())))
	incentive := NewIncentiveHandler(financeapp.NewIncentiveService(catalog))
	assets := NewAssetHandler(financeapp.NewAssetService(financeapp.AssetServiceConfig{
		Repo:     repos.Assets,
		Accounts: accounts,
	}))
	journals := NewJournalHandler(financeapp.NewJournalService(repos.Journals, nil, nil))
	invoices := NewInvoiceHandler(financeapp.NewInvoiceService(repos.Invoices))
	recon := NewReconciliationHandler(financeapp.NewBankReconciliationService(financeapp.BankReconciliationServiceConfig{
		TransactionRepo: repos.BankTransactions,
		InvoiceRepo:     repos.Invoices,
		Policy:          finance.DefaultMatchPolicy(),
		Parser:          statement.NewOFXParser(),
		Accounts:        accounts,
	}))
	health := NewHealthHandler(map[string]Pinger{
		"database": PingerFunc(func(ctx context.Context) error { return sqlDB.PingContext(ctx) }),
	})

	tenantID := uuid.New()
	tenantCfg := middleware.DefaultTenantConfig()

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/health", health.Check)

	v1 := r.Group("/api/v1", middleware.TenantMiddlewareWithConfig(tenantCfg))
	v1.POST("/tax/estimate", tax.Estimate)
	v1.POST("/incentives/simulate", incentive.Simulate)
	v1.POST("/assets", assets.CreateAsset)
	v1.GET("/assets", assets.ListAssets)
	v1.POST("/assets/depreciation/run", assets.RunDepreciation)
	v1.GET("/assets/:id", assets.GetAsset)
	v1.GET("/assets/:id/depreciation-history", assets.GetDepreciationHistory)
	v1.POST("/assets/:id/dispose", assets.DisposeAsset)
	v1.POST("/journal-entries", journals.CreateJournalEntry)
	v1.GET("/journal-entries/:id", journals.GetJournalEntry)
	v1.POST("/invoices", invoices.CreateInvoice)
	v1.GET("/invoices", invoices.ListInvoices)
	v1.GET("/invoices/:id", invoices.GetInvoice)
	v1.POST("/bank-reconciliation/import", recon.ImportTransactions)
	v1.GET("/bank-reconciliation", recon.ListTransactions)
	v1.POST("/bank-reconciliation/import/ofx", recon.ImportStatement)
	v1.POST("/bank-reconciliation/auto-match", recon.AutoMatch)
	v1.POST("/bank-reconciliation/:id/match", recon.ManualMatch)
	v1.POST("/bank-reconciliation/:id/approve", recon.Approve)

	return &testServer{engine: r, tenantID: tenantID}
}

// envelope is the decoded response with data kept raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	req.Header.Set(middleware.TenantHeaderKey, s.tenantID.String())
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestTaxHandler_Estimate(t *testing.T) {
	s := newTestServer(t)

	t.Run("TK/0 with NPWP", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/tax/estimate", map[string]any{
			"basic_salary": "10000000",
			"ptkp_code":    "TK/0",
			"has_npwp":     true,
		})
		require.Equal(t, http.StatusOK, code)

		var got financeapp.TaxEstimateResponse
		decodeData(t, env, &got)
		assert.True(t, got.MonthlyTax.Equal(dec(t, "325000")), got.MonthlyTax.String())
		assert.True(t, got.AnnualTaxableBase.Equal(dec(t, "66000000")))
		assert.Len(t, got.Brackets, 2)
	})

	t.Run("malformed ptkp code", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/tax/estimate", map[string]any{
			"basic_salary": "10000000",
			"ptkp_code":    "single",
		})
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Details, "ptkp_code")
	})

	t.Run("negative salary owes nothing", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/tax/estimate", map[string]any{
			"basic_salary": "-5000000",
			"has_npwp":     true,
		})
		require.Equal(t, http.StatusOK, code)
		var got financeapp.TaxEstimateResponse
		decodeData(t, env, &got)
		assert.True(t, got.MonthlyTax.IsZero())
	})
}

func TestIncentiveHandler_Simulate(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/incentives/simulate", map[string]any{
		"role":           "sales",
		"metric":         "revenue",
		"achieved_value": "120000000",
		"target_value":   "100000000",
	})
	require.Equal(t, http.StatusOK, code)
	var got financeapp.IncentiveResponse
	decodeData(t, env, &got)
	assert.Equal(t, ">=120%", got.Tier)
	assert.True(t, got.IncentiveAmount.Equal(dec(t, "18000000")))

	code, env = s.do(t, http.MethodPost, "/api/v1/incentives/simulate", map[string]any{
		"achieved_value": "10",
		"target_value":   "0",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NON_POSITIVE_TARGET", env.Error.Code)
}

func TestJournalHandler(t *testing.T) {
	s := newTestServer(t)

	t.Run("balanced entry is stored", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/journal-entries", map[string]any{
			"transaction_date": "2024-03-15T00:00:00Z",
			"description":      "Office rent",
			"entries": []map[string]any{
				{"account_id": "6-1100", "debit": "5000000"},
				{"account_id": "1-1100", "credit": "5000000"},
			},
		})
		require.Equal(t, http.StatusCreated, code)

		var created financeapp.JournalEntryResponse
		decodeData(t, env, &created)
		assert.True(t, created.TotalDebit.Equal(created.TotalCredit))

		code, env = s.do(t, http.MethodGet, "/api/v1/journal-entries/"+created.ID.String(), nil)
		require.Equal(t, http.StatusOK, code)
		var fetched financeapp.JournalEntryResponse
		decodeData(t, env, &fetched)
		assert.Len(t, fetched.Lines, 2)
	})

	t.Run("unbalanced entry reports the imbalance", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/journal-entries", map[string]any{
			"transaction_date": "2024-03-15T00:00:00Z",
			"entries": []map[string]any{
				{"account_id": "6-1100", "debit": "6000000"},
				{"account_id": "1-1100", "credit": "5000000"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "UNBALANCED", env.Error.Code)
		assert.Equal(t, "1000000", env.Error.Details["imbalance_amount"])
	})

	t.Run("line with both sides reports its index", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/journal-entries", map[string]any{
			"transaction_date": "2024-03-15T00:00:00Z",
			"entries": []map[string]any{
				{"account_id": "6-1100", "debit": "100"},
				{"account_id": "1-1100", "debit": "100", "credit": "100"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "LINE_HAS_BOTH_SIDES", env.Error.Code)
		assert.Equal(t, float64(1), env.Error.Details["line_index"])
	})

	t.Run("unknown entry", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/journal-entries/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestAssetHandler_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/assets", map[string]any{
		"code":              "FA-001",
		"name":              "Delivery van",
		"acquisition_cost":  "120000000",
		"residual_value":    "0",
		"useful_life_years": 5,
		"method":            "STRAIGHT_LINE",
	})
	require.Equal(t, http.StatusCreated, code)
	var asset financeapp.AssetResponse
	decodeData(t, env, &asset)
	assert.Equal(t, "ACTIVE", asset.Status)

	code, env = s.do(t, http.MethodPost, "/api/v1/assets", map[string]any{
		"code":              "FA-001",
		"name":              "Another van",
		"acquisition_cost":  "1000",
		"useful_life_years": 1,
		"method":            "STRAIGHT_LINE",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/assets/depreciation/run", map[string]any{"period": "2024-01"})
	require.Equal(t, http.StatusOK, code)
	var run financeapp.DepreciationRunResponse
	decodeData(t, env, &run)
	assert.Equal(t, 1, run.AssetsProcessed)
	assert.True(t, run.TotalExpense.Equal(dec(t, "2000000")))

	// a second run of the same period posts nothing
	code, env = s.do(t, http.MethodPost, "/api/v1/assets/depreciation/run", map[string]any{"period": "2024-01"})
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &run)
	assert.Equal(t, 0, run.AssetsProcessed)
	assert.True(t, run.TotalExpense.IsZero())

	code, env = s.do(t, http.MethodGet, "/api/v1/assets/"+asset.ID.String()+"/depreciation-history", nil)
	require.Equal(t, http.StatusOK, code)
	var history []financeapp.DepreciationHistoryResponse
	decodeData(t, env, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-01", history[0].Period)
	assert.True(t, history[0].BookValueAfter.Equal(dec(t, "118000000")))

	code, env = s.do(t, http.MethodPost, "/api/v1/assets/"+asset.ID.String()+"/dispose", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &asset)
	assert.Equal(t, "DISPOSED", asset.Status)

	code, env = s.do(t, http.MethodGet, "/api/v1/assets?status=DISPOSED", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)
	assert.Equal(t, 20, env.Meta.PageSize)
}

func TestAssetHandler_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"malformed period", http.MethodPost, "/api/v1/assets/depreciation/run", map[string]any{"period": "2024-13"}, http.StatusBadRequest, "ERR_VALIDATION"},
		{"unknown method", http.MethodPost, "/api/v1/assets", map[string]any{
			"code": "FA-9", "name": "x", "acquisition_cost": "1", "useful_life_years": 1, "method": "SUM_OF_YEARS",
		}, http.StatusBadRequest, "ERR_VALIDATION"},
		{"residual above cost", http.MethodPost, "/api/v1/assets", map[string]any{
			"code": "FA-9", "name": "x", "acquisition_cost": "100", "residual_value": "200", "useful_life_years": 1, "method": "STRAIGHT_LINE",
		}, http.StatusBadRequest, "ERR_INVALID_INPUT"},
		{"bad id", http.MethodGet, "/api/v1/assets/123", nil, http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"unknown asset", http.MethodGet, "/api/v1/assets/" + uuid.NewString(), nil, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"bad list filter", http.MethodGet, "/api/v1/assets?status=SOLD", nil, http.StatusBadRequest, "ERR_VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestReconciliationHandler_MatchAndApprove(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"number":            "INV-2024-001",
		"kind":              "RECEIVABLE",
		"counterparty_name": "PT Maju Jaya",
		"subtotal":          "5000000",
		"ppn_rate":          "0",
		"pph23_rate":        "0",
		"issue_date":        "2024-04-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, code)
	var invoice financeapp.InvoiceResponse
	decodeData(t, env, &invoice)

	importBody := map[string]any{
		"transactions": []map[string]any{
			{
				"amount":           "5000000",
				"sender_name":      "MAJU JAYA",
				"transaction_date": "2024-04-10T00:00:00Z",
				"direction":        "INCOMING",
				"reference":        "TRF-0001",
			},
		},
	}
	code, env = s.do(t, http.MethodPost, "/api/v1/bank-reconciliation/import", importBody)
	require.Equal(t, http.StatusCreated, code)
	var imported financeapp.ImportResponse
	decodeData(t, env, &imported)
	require.Equal(t, 1, imported.Imported)
	assert.Equal(t, 1, imported.Matched)
	tx := imported.Transactions[0]
	assert.Equal(t, "MATCHED", tx.Status)
	require.NotNil(t, tx.MatchedInvoiceID)
	assert.Equal(t, invoice.ID, *tx.MatchedInvoiceID)

	// replaying the same statement stores nothing
	code, env = s.do(t, http.MethodPost, "/api/v1/bank-reconciliation/import", importBody)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &imported)
	assert.Equal(t, 0, imported.Imported)
	assert.Equal(t, 1, imported.Duplicates)

	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bank-reconciliation/%s/approve", tx.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var approved financeapp.BankTransactionResponse
	decodeData(t, env, &approved)
	assert.Equal(t, "APPROVED", approved.Status)
	require.NotNil(t, approved.JournalEntryID)

	code, env = s.do(t, http.MethodGet, "/api/v1/invoices/"+invoice.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &invoice)
	assert.Equal(t, "PAID", invoice.Status)
	assert.True(t, invoice.RemainingAmount.IsZero())

	code, _ = s.do(t, http.MethodGet, "/api/v1/journal-entries/"+approved.JournalEntryID.String(), nil)
	assert.Equal(t, http.StatusOK, code)

	// approval is final
	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bank-reconciliation/%s/match", tx.ID),
		map[string]any{"invoice_id": invoice.ID})
	assert.GreaterOrEqual(t, code, http.StatusBadRequest)
	require.NotNil(t, env.Error)

	code, env = s.do(t, http.MethodGet, "/api/v1/bank-reconciliation?status=APPROVED", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Meta.Total)
}

func TestReconciliationHandler_ManualMatch(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"number":            "INV-2024-002",
		"kind":              "RECEIVABLE",
		"counterparty_name": "CV Sinar Abadi",
		"subtotal":          "1000000",
		"ppn_rate":          "0",
		"pph23_rate":        "0",
	})
	require.Equal(t, http.StatusCreated, code)
	var invoice financeapp.InvoiceResponse
	decodeData(t, env, &invoice)

	code, env = s.do(t, http.MethodPost, "/api/v1/bank-reconciliation/import", map[string]any{
		"transactions": []map[string]any{
			{"amount": "950000", "sender_name": "Budi", "transaction_date": "2024-04-10T00:00:00Z"},
			{"amount": "800000", "sender_name": "Budi", "transaction_date": "2024-04-11T00:00:00Z"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	var imported financeapp.ImportResponse
	decodeData(t, env, &imported)
	require.Len(t, imported.Transactions, 2)
	assert.Equal(t, 0, imported.Matched)

	within, outside := imported.Transactions[0], imported.Transactions[1]

	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bank-reconciliation/%s/match", outside.ID),
		map[string]any{"invoice_id": invoice.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "AMOUNT_OUT_OF_TOLERANCE", env.Error.Code)

	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/bank-reconciliation/%s/match", within.ID),
		map[string]any{"invoice_id": invoice.ID})
	require.Equal(t, http.StatusOK, code)
	var matched financeapp.BankTransactionResponse
	decodeData(t, env, &matched)
	assert.Equal(t, "MATCHED", matched.Status)
	assert.Equal(t, "MANUAL", matched.MatchMode)

	code, env = s.do(t, http.MethodPost, "/api/v1/bank-reconciliation/auto-match", nil)
	require.Equal(t, http.StatusOK, code)
	var auto financeapp.AutoMatchResponse
	decodeData(t, env, &auto)
	assert.Equal(t, 1, auto.Examined)
	assert.Equal(t, 0, auto.Matched)

	code, _ = s.do(t, http.MethodPost, "/api/v1/bank-reconciliation/not-a-uuid/approve", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReconciliationHandler_ImportStatement(t *testing.T) {
	s := newTestServer(t)

	t.Run("unreadable raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-reconciliation/import/ofx", strings.NewReader("not an ofx file"))
		req.Header.Set("Content-Type", "application/x-ofx")
		code, env := s.send(t, req)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_STATEMENT", env.Error.Code)
	})

	t.Run("multipart without file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("note", "april"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-reconciliation/import/ofx", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		code, env := s.send(t, req)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_BAD_REQUEST", env.Error.Code)
	})
}

func TestInvoiceHandler_List(t *testing.T) {
	s := newTestServer(t)
	for i, kind := range []string{"RECEIVABLE", "RECEIVABLE", "PAYABLE"} {
		code, _ := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
			"number":            fmt.Sprintf("INV-%03d", i),
			"kind":              kind,
			"counterparty_name": "PT Maju Jaya",
			"subtotal":          "1000",
		})
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := s.do(t, http.MethodGet, "/api/v1/invoices?kind=RECEIVABLE&page_size=1", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
	assert.Equal(t, 1, env.Meta.PageSize)

	var page []financeapp.InvoiceResponse
	decodeData(t, env, &page)
	assert.Len(t, page, 1)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}
