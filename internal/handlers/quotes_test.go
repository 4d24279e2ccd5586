package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/diamondsistem/offerpricing/internal/cache"
	"github.com/diamondsistem/offerpricing/internal/catalog"
	"github.com/diamondsistem/offerpricing/internal/config"
	"github.com/diamondsistem/offerpricing/internal/db"
	"github.com/diamondsistem/offerpricing/internal/financing"
	"github.com/diamondsistem/offerpricing/internal/logging"
	"github.com/diamondsistem/offerpricing/internal/pricing"
	"github.com/diamondsistem/offerpricing/internal/services"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func newTestHandlers(t *testing.T, health map[string]Pinger) *Handlers {
	t.Helper()

	snap, err := catalog.Load("../../catalog.yaml")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	drafts, err := cache.NewMemoryProvider(64)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	quotes, err := services.NewQuoteService(snap, drafts, db.NewMemoryQuoteStore(), services.QuoteServiceConfig{
		Pricing:  pricing.Options{Rates: pricing.RatesFromPercent(7, 10)},
		Terms:    financing.DefaultTerms(),
		DraftTTL: time.Hour,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("NewQuoteService: %v", err)
	}

	h, err := New(Dependencies{
		Config:       &config.Config{},
		QuoteService: quotes,
		HealthChecks: health,
		Logger:       logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func testRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/catalog", h.Catalog).Methods("GET")
	r.HandleFunc("/packages/{id}/timing", h.PackageTiming).Methods("GET")
	r.HandleFunc("/quotes", h.CreateQuote).Methods("POST")
	r.HandleFunc("/quotes/{id}", h.GetQuote).Methods("GET")
	r.HandleFunc("/quotes/{id}/accept", h.AcceptQuote).Methods("POST")
	r.HandleFunc("/quotes/{id}/payment-plan", h.PaymentPlan).Methods("GET")
	r.HandleFunc("/selections/check", h.CheckSelection).Methods("POST")
	return r
}

func serve(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

const basicQuoteBody = `{
	"package_id": "personalizado",
	"event_date": "2026-09-12",
	"guests": 40,
	"start_time": "19:00",
	"end_time": "23:00"
}`

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(Dependencies{}); err == nil {
		t.Fatalf("expected error without config")
	}
	if _, err := New(Dependencies{Config: &config.Config{}}); err == nil {
		t.Fatalf("expected error without quote service")
	}
}

func TestQuoteLifecycle(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	rec := serve(t, router, http.MethodPost, "/quotes", basicQuoteBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Breakdown struct {
			Total string `json:"total"`
		} `json:"breakdown"`
	}
	decodeBody(t, rec, &created)
	if created.Status != "draft" || created.Breakdown.Total != "2925" {
		t.Fatalf("created = %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/quotes/"+created.ID {
		t.Fatalf("Location = %q", loc)
	}

	rec = serve(t, router, http.MethodGet, "/quotes/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = serve(t, router, http.MethodGet, "/quotes/"+created.ID+"/payment-plan?months=6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("payment plan status = %d, body %s", rec.Code, rec.Body.String())
	}
	var options struct {
		Plan struct {
			Monthly string `json:"monthly"`
		} `json:"plan"`
	}
	decodeBody(t, rec, &options)
	if options.Plan.Monthly != "237.5" {
		t.Fatalf("monthly = %q", options.Plan.Monthly)
	}

	rec = serve(t, router, http.MethodPost, "/quotes/"+created.ID+"/accept", `{"financing_months": 3, "sales_agent": "Maria"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		Status     string `json:"status"`
		Acceptance struct {
			Commission string `json:"commission"`
		} `json:"acceptance"`
	}
	decodeBody(t, rec, &accepted)
	if accepted.Status != "accepted" || accepted.Acceptance.Commission != "292.5" {
		t.Fatalf("accepted = %+v", accepted)
	}

	rec = serve(t, router, http.MethodGet, "/quotes/"+created.ID+"/payment-plan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("accepted payment plan status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &options)
	if options.Plan.Monthly != "475" {
		t.Fatalf("accepted monthly = %q", options.Plan.Monthly)
	}

	rec = serve(t, router, http.MethodPost, "/quotes/"+created.ID+"/accept", `{"financing_months": 3}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second accept status = %d", rec.Code)
	}
}

func TestCreateQuoteErrors(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "malformed json",
			body:       `{"package_id":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_json",
		},
		{
			name:       "unknown field",
			body:       `{"package_id": "personalizado", "price": 1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_json",
		},
		{
			name:       "missing end time",
			body:       `{"package_id": "personalizado", "event_date": "2026-09-12", "guests": 40, "start_time": "19:00"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
			wantField:  "end_time",
		},
		{
			name:       "unknown package",
			body:       `{"package_id": "boda-real", "event_date": "2026-09-12", "guests": 40, "start_time": "19:00", "end_time": "23:00"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "unknown_package",
		},
		{
			name: "service bundled by package",
			body: `{"package_id": "especial", "event_date": "2026-09-12", "guests": 70, "start_time": "19:00", "end_time": "23:00",
				"services": [{"service_id": "licor-premium", "quantity": 1}]}`,
			wantStatus: http.StatusConflict,
			wantCode:   "rejected",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, router, http.MethodPost, "/quotes", tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			var resp errorResponse
			decodeBody(t, rec, &resp)
			if resp.Error.Code != tc.wantCode || resp.Error.Field != tc.wantField {
				t.Fatalf("error = %+v", resp.Error)
			}
			if tc.wantCode == "rejected" && (resp.Error.Decision == nil || resp.Error.Decision.Reason != pricing.ReasonSatisfiedByPackage) {
				t.Fatalf("decision = %+v", resp.Error.Decision)
			}
		})
	}
}

func TestQuoteNotFound(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	for _, target := range []string{"/quotes/not-a-uuid", "/quotes/6f1c6d1e-7c1a-4d7e-9d43-1a2b3c4d5e6f"} {
		rec := serve(t, router, http.MethodGet, target, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d", target, rec.Code)
		}
	}
}

func TestAcceptInvalidFinancing(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	rec := serve(t, router, http.MethodPost, "/quotes", basicQuoteBody)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)

	rec = serve(t, router, http.MethodPost, "/quotes/"+created.ID+"/accept", `{"financing_months": 0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error.Code != "invalid_financing" {
		t.Fatalf("error = %+v", resp.Error)
	}

	rec = serve(t, router, http.MethodGet, "/quotes/"+created.ID+"/payment-plan?months=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("payment plan status = %d", rec.Code)
	}
}

func TestCheckSelection(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantAllowed bool
		wantReason  pricing.Reason
	}{
		{
			name:        "free add-on",
			body:        `{"package_id": "personalizado", "service_id": "mesa-dulces"}`,
			wantStatus:  http.StatusOK,
			wantAllowed: true,
		},
		{
			name:       "conflicts with selection",
			body:       `{"package_id": "personalizado", "service_id": "champana", "current": [{"service_id": "sidra", "quantity": 1}]}`,
			wantStatus: http.StatusOK,
			wantReason: pricing.ReasonConflictsWithSelection,
		},
		{
			name:       "extra hour not needed",
			body:       `{"package_id": "personalizado", "service_id": "hora-extra", "start_time": "19:00", "end_time": "23:00"}`,
			wantStatus: http.StatusOK,
			wantReason: pricing.ReasonExceedsNeededHours,
		},
		{
			name:       "extra hour without times",
			body:       `{"package_id": "personalizado", "service_id": "hora-extra"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, router, http.MethodPost, "/selections/check", tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Allowed bool           `json:"allowed"`
				Reason  pricing.Reason `json:"reason"`
				Message string         `json:"message"`
			}
			decodeBody(t, rec, &resp)
			if resp.Allowed != tc.wantAllowed || resp.Reason != tc.wantReason || resp.Message == "" {
				t.Fatalf("response = %+v", resp)
			}
		})
	}
}

func TestPackageTiming(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	rec := serve(t, router, http.MethodGet, "/packages/personalizado/timing?start=20:00&end=01:00", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summary pricing.TimingSummary
	decodeBody(t, rec, &summary)
	if summary.NeededExtraHours != 1 || summary.MaxExtraHours != 1 || summary.Curfew != "02:00 (+1d)" {
		t.Fatalf("summary = %+v", summary)
	}

	rec = serve(t, router, http.MethodGet, "/packages/nope/timing?start=20:00&end=01:00", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown package status = %d", rec.Code)
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	router := testRouter(newTestHandlers(t, nil))

	rec := serve(t, router, http.MethodGet, "/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view catalogView
	decodeBody(t, rec, &view)
	if view.ExtraHourService != "hora-extra" || len(view.Salons) != 4 || len(view.Packages) != 4 {
		t.Fatalf("view = %+v", view)
	}
	if view.Packages[0].ID != "especial" || len(view.Packages[0].SalonPrices) != 2 {
		t.Fatalf("first package = %+v", view.Packages[0])
	}
	for _, s := range view.Services {
		if s.ID == "sidra" && (len(s.Excludes) != 1 || s.Excludes[0] != "champana") {
			t.Fatalf("sidra excludes = %v", s.Excludes)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := serve(t, testRouter(newTestHandlers(t, nil)), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	unhealthy := newTestHandlers(t, map[string]Pinger{"quote_store": failingPinger{}})
	rec = serve(t, testRouter(unhealthy), http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "quote_store") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
