package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/export"
	"github.com/ougirez/placealloc/internal/pkg/utils"
	"github.com/ougirez/placealloc/internal/service/allocation"
	"github.com/ougirez/placealloc/internal/service/auth"
	"github.com/ougirez/placealloc/internal/service/practices"
	"github.com/ougirez/placealloc/internal/service/session"
)

func testPractice(code, icb, lad string, pop, ga float64) domain.Practice {
	metrics := make(map[domain.Metric]float64, len(domain.SummedMetrics))
	for _, m := range domain.SummedMetrics {
		metrics[m] = pop
	}
	metrics[domain.MetricWeightedGA] = ga
	return domain.Practice{Code: code, Name: "Practice " + code, ICBName: icb, LADName: lad, Metrics: metrics}
}

func newTestAPI(t *testing.T) *APIService {
	t.Helper()

	ds, err := domain.NewDataset([]domain.Practice{
		testPractice("P1", "R1", "North", 100, 120),
		testPractice("P2", "R1", "South", 200, 180),
		testPractice("P3", "R2", "East", 50, 50),
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	practicesService := practices.NewStaticService(ds)
	sessionService := session.NewSessionService(session.NewMemoryStore(time.Hour), practicesService)
	allocationService := allocation.NewAllocationService(practicesService, allocation.NewDefaultCalculator(), 3, 2)

	svc, err := NewAPIService(practicesService, sessionService, allocationService, auth.NewAuthService("s3cret"))
	if err != nil {
		t.Fatalf("NewAPIService: %v", err)
	}
	return svc
}

func do(t *testing.T, svc *APIService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func createSession(t *testing.T, svc *APIService) string {
	t.Helper()
	rec := do(t, svc, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	var resp dto.SessionResponse
	decode(t, rec, &resp)
	return resp.SessionID
}

func TestSelectionEndpoints(t *testing.T) {
	svc := newTestAPI(t)

	rec := do(t, svc, http.MethodGet, "/api/v1/icbs", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `["R1","R2"]` {
		t.Errorf("icbs: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, svc, http.MethodGet, "/api/v1/icbs/R1/practices?district=South", "")
	var options []dto.PracticeOption
	decode(t, rec, &options)
	if len(options) != 1 || options[0].Code != "P2" || options[0].Display != "P2: Practice P2" {
		t.Errorf("practices = %+v", options)
	}

	rec = do(t, svc, http.MethodGet, "/api/v1/icbs/R9/districts", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown icb: %d", rec.Code)
	}
}

func TestPlaceWorkflow(t *testing.T) {
	svc := newTestAPI(t)
	id := createSession(t, svc)
	base := "/api/v1/sessions/" + id

	rec := do(t, svc, http.MethodPost, base+"/places", `{"label":"G1","icb":"R1","practices":["P1"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create place: %d %s", rec.Code, rec.Body.String())
	}
	var created dto.SessionResponse
	decode(t, rec, &created)
	if len(created.Places) != 1 || created.Places[0].Label != "G1" {
		t.Fatalf("places = %+v", created.Places)
	}

	rec = do(t, svc, http.MethodPost, base+"/places", `{"label":"G1","icb":"R1","practices":["P2"]}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate label: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, svc, http.MethodPost, base+"/places", `{"label":"All","icb":"R1","select_all":true}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("select all: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, svc, http.MethodPost, base+"/places", `{"label":"X","icb":"R1","practices":["P3"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cross region: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, svc, http.MethodGet, base+"/results", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("results: %d %s", rec.Code, rec.Body.String())
	}
	var table domain.Table
	decode(t, rec, &table)
	if len(table.Rows) != 3 || table.Rows[0].Kind != domain.RowKindICB {
		t.Fatalf("rows = %+v", table.Rows)
	}
	if got := table.Rows[1].Indices[domain.IndexGA]; got != 1.2 {
		t.Errorf("G1 G&A index = %v, want 1.2", got)
	}

	rec = do(t, svc, http.MethodGet, base+"/results/G1/summary", "")
	var summary dto.PlaceSummary
	decode(t, rec, &summary)
	if summary.SubIndex[0].Value != 1.2 || summary.SubIndex[0].Delta != 0.2 {
		t.Errorf("summary = %+v", summary.SubIndex[0])
	}

	rec = do(t, svc, http.MethodDelete, base+"/places/"+url.PathEscape("G1"), "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, svc, http.MethodDelete, base+"/places/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: %d", rec.Code)
	}

	rec = do(t, svc, http.MethodPost, base+"/places/reset", "")
	var reset dto.SessionResponse
	decode(t, rec, &reset)
	if len(reset.Places) != 1 || reset.Places[0].Label != domain.DefaultPlaceLabel {
		t.Errorf("reset places = %+v", reset.Places)
	}
}

func TestDocumentEndpoints(t *testing.T) {
	svc := newTestAPI(t)
	id := createSession(t, svc)
	base := "/api/v1/sessions/" + id

	rec := do(t, svc, http.MethodPut, base+"/document",
		`{"places":["B","A"],"A":{"gps":["P1"],"icb":"R1"},"B":{"gps":["P3"],"icb":"R2"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put document: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, svc, http.MethodGet, base+"/document", "")
	want := `{"B":{"gps":["P3"],"icb":"R2"},"A":{"gps":["P1"],"icb":"R1"},"places":["B","A"]}`
	if strings.TrimSpace(rec.Body.String()) != want {
		t.Errorf("document = %s", rec.Body.String())
	}

	rec = do(t, svc, http.MethodPut, base+"/document", `{"places":["A"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed document: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, svc, http.MethodPut, base+"/document", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid json: %d %s", rec.Code, rec.Body.String())
	}
}

func TestExportBundle(t *testing.T) {
	svc := newTestAPI(t)
	id := createSession(t, svc)

	rec := do(t, svc, http.MethodGet, "/api/v1/sessions/"+id+"/export.zip", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 3 || zr.File[2].Name != export.ConfigFileName {
		t.Errorf("bundle files = %d", len(zr.File))
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newTestAPI(t)
	rec := do(t, svc, http.MethodGet, "/api/v1/sessions/nope/places", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: %d", rec.Code)
	}
	var resp domain.ErrorResponse
	decode(t, rec, &resp)
	if resp.Code != http.StatusNotFound {
		t.Errorf("error body = %+v", resp)
	}
}

func TestAdminBackfillRequiresToken(t *testing.T) {
	viper.Set(constants.ViperSecretKey, "s3cret")
	t.Cleanup(func() { viper.Set(constants.ViperSecretKey, "") })
	svc := newTestAPI(t)

	rec := do(t, svc, http.MethodPost, "/api/v1/admin/practices/backfill", `{"path":"x.csv"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no cookie: %d", rec.Code)
	}

	rec = do(t, svc, http.MethodPost, "/api/v1/admin/login", `{"secret":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: %d", rec.Code)
	}

	rec = do(t, svc, http.MethodPost, "/api/v1/admin/login", `{"secret":"s3cret"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != constants.CookieKeySecretToken {
		t.Fatalf("cookies = %v", cookies)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/practices/backfill", strings.NewReader(`{"path":"x.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	// authorised, but the static service has no postgres store
	if rec.Code != http.StatusBadRequest {
		t.Errorf("backfill: %d %s", rec.Code, rec.Body.String())
	}

	other, err := utils.GenerateAuthToken(&utils.AuthTokenWrapper{StandardClaims: jwt.StandardClaims{Subject: "visitor"}})
	if err != nil {
		t.Fatalf("GenerateAuthToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/practices/backfill", strings.NewReader(`{"path":"x.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: constants.CookieKeySecretToken, Value: other})
	rec = httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("non-admin subject: %d", rec.Code)
	}
}
