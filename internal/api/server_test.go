package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/faactracker/internal/auth"
	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/export"
	"github.com/rpattn/faactracker/internal/ingestion"
	"github.com/rpattn/faactracker/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

var fixedNow = time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	server    *Server
	ingestion *ingestion.Handler
	lagos     domain.Region
	kano      domain.Region
	ikeja     domain.SubRegion
}

type noSource struct{}

func (noSource) Locate(context.Context, domain.Period) ingestion.Located { return ingestion.Located{} }
func (noSource) Templates() int { return 1 }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := t.Context()
	store := memory.NewStore()

	lagos, err := store.Regions().Upsert(ctx, domain.NewRegion("Lagos", "LA", domain.ZoneSouthWest))
	require.NoError(t, err)
	kano, err := store.Regions().Upsert(ctx, domain.NewRegion("Kano", "KN", domain.ZoneNorthWest))
	require.NoError(t, err)
	ikeja, err := store.SubRegions().Upsert(ctx, domain.NewSubRegion(lagos.ID, "Ikeja"))
	require.NoError(t, err)
	epe, err := store.SubRegions().Upsert(ctx, domain.NewSubRegion(lagos.ID, "Epe"))
	require.NoError(t, err)

	jan := domain.Period{Month: 1, Year: 2025}
	feb := domain.Period{Month: 2, Year: 2025}
	rows := []domain.Allocation{
		domain.NewIngestedAllocation(lagos.ID, jan, money("900"), money("100"), money("50"), money("950")),
		domain.NewIngestedAllocation(lagos.ID, feb, money("1000"), money("200"), money("0"), money("1200")),
		domain.NewIngestedAllocation(kano.ID, feb, money("800"), money("100"), money("0"), money("900")),
		domain.NewIngestedAllocation(kano.ID, domain.Period{Month: 12, Year: 2024}, money("700"), money("100"), money("0"), money("800")),
	}
	for _, sub := range []struct {
		sub domain.SubRegion
		net string
	}{{ikeja, "40"}, {epe, "60"}} {
		a := domain.NewIngestedAllocation(lagos.ID, feb, money(sub.net), money("0"), money("0"), money(sub.net))
		id := sub.sub.ID
		a.SubRegionID = &id
		rows = append(rows, a)
	}
	_, err = store.Allocations().InsertBatch(ctx, rows)
	require.NoError(t, err)

	store.AddRevenue(domain.RevenueRecord{RegionID: lagos.ID, Year: 2023, Quarter: 2, Amount: money("300")})
	store.AddRevenue(domain.RevenueRecord{RegionID: lagos.ID, Year: 2023, Quarter: 1, Amount: money("200")})

	service := ingestion.NewService(store.Regions(), store.Allocations(), store.IngestionLogs(), noSource{},
		ingestion.WithClock(func() time.Time { return fixedNow }))
	ingestHandler := ingestion.NewHTTPHandler(service, store.IngestionLogs(), zerolog.Nop())

	server := New(Config{
		Log:           zerolog.Nop(),
		Regions:       store.Regions(),
		SubRegions:    store.SubRegions(),
		Allocations:   store.Allocations(),
		Revenues:      store.Revenues(),
		Ingestion:     ingestHandler,
		Export:        export.NewHTTPHandler(export.NewService(store.Regions(), store.Allocations()), zerolog.Nop()),
		AdminPassword: testPassword,
		Sessions:      auth.NewSessionSigner("0123456789abcdef0123", time.Hour),
		Clock:         func() time.Time { return fixedNow },
	})

	return &fixture{store: store, server: server, ingestion: ingestHandler, lagos: lagos, kano: kano, ikeja: ikeja}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestSummary(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Latest *periodView `json:"latest"`
		Top    []struct {
			Region     domain.Region     `json:"region"`
			Allocation domain.Allocation `json:"allocation"`
		} `json:"top"`
		Zones []zoneGroup `json:"zones"`
	}
	decode(t, rec, &body)

	require.NotNil(t, body.Latest)
	assert.Equal(t, "Feb 2025", body.Latest.Label)
	require.Len(t, body.Top, 2)
	assert.Equal(t, "Lagos", body.Top[0].Region.Name)
	assert.Equal(t, "Kano", body.Top[1].Region.Name)
	assert.Len(t, body.Zones, len(domain.Zones))
}

func TestSummaryWithoutAllocations(t *testing.T) {
	store := memory.NewStore()
	server := New(Config{Log: zerolog.Nop(), Regions: store.Regions(), SubRegions: store.SubRegions(),
		Allocations: store.Allocations(), Revenues: store.Revenues()})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"latest":null`)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	var short []searchResult
	decode(t, f.get(t, "/api/search?q=l"), &short)
	assert.Empty(t, short)

	var results []searchResult
	decode(t, f.get(t, "/api/search?q=ike"), &results)
	require.Len(t, results, 1)
	assert.Equal(t, "sub_region", results[0].Type)
	assert.Equal(t, "Ikeja (Lagos)", results[0].Name)
	assert.Equal(t, "/api/regions/Lagos/subregions/Ikeja", results[0].Path)

	decode(t, f.get(t, "/api/search?q=KAN"), &results)
	require.Len(t, results, 1)
	assert.Equal(t, "region", results[0].Type)
}

func TestRegionDetail(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/regions/lagos")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Region               domain.Region          `json:"region"`
		Allocations          []domain.Allocation    `json:"allocations"`
		Chart                chartSeries            `json:"chart"`
		SubRegionPeriod      *periodView            `json:"sub_region_period"`
		SubRegionAllocations []subRegionAllocation  `json:"sub_region_allocations"`
		Revenues             []domain.RevenueRecord `json:"revenues"`
		AvailableYears       []int                  `json:"available_years"`
	}
	decode(t, rec, &body)

	assert.Equal(t, f.lagos.ID, body.Region.ID)
	require.Len(t, body.Allocations, 2)
	assert.Equal(t, 2, body.Allocations[0].Month)
	assert.Equal(t, []string{"Jan 2025", "Feb 2025"}, body.Chart.Labels)
	assert.True(t, body.Chart.Net[1].Equal(money("1200")))
	require.NotNil(t, body.SubRegionPeriod)
	require.Len(t, body.SubRegionAllocations, 2)
	assert.Equal(t, "Epe", body.SubRegionAllocations[0].SubRegion)
	require.Len(t, body.Revenues, 2)
	assert.Equal(t, 1, body.Revenues[0].Quarter)
	assert.Equal(t, []int{2025}, body.AvailableYears)
}

func TestRegionDetailFilters(t *testing.T) {
	f := newFixture(t)

	var body struct {
		Allocations []domain.Allocation `json:"allocations"`
	}
	decode(t, f.get(t, "/api/regions/Kano?year=2024"), &body)
	require.Len(t, body.Allocations, 1)
	assert.Equal(t, 12, body.Allocations[0].Month)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/regions/Kano?month=13").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/regions/Kano?year=soon").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/regions/Atlantis").Code)
}

func TestSubRegionRoutes(t *testing.T) {
	f := newFixture(t)

	var list []struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	decode(t, f.get(t, "/api/regions/"+f.lagos.ID.String()+"/subregions"), &list)
	require.Len(t, list, 2)
	assert.Equal(t, "Epe", list[0].Name)

	rec := f.get(t, "/api/regions/Lagos/subregions/ikeja")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		SubRegion   domain.SubRegion    `json:"sub_region"`
		Allocations []domain.Allocation `json:"allocations"`
		Chart       chartSeries         `json:"chart"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, f.ikeja.ID, detail.SubRegion.ID)
	require.Len(t, detail.Allocations, 1)
	assert.Nil(t, detail.Chart.Statutory)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/regions/Lagos/subregions/Nowhere").Code)
}

func TestCompare(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/compare?regions=Lagos&regions=Atlantis&regions=kano&regions=Lagos&regions=Kano")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Compared []comparison `json:"compared"`
	}
	decode(t, rec, &body)

	require.Len(t, body.Compared, 2)
	lagos := body.Compared[0]
	assert.Equal(t, "Lagos", lagos.Region.Name)
	assert.Equal(t, []string{"Jan 2025", "Feb 2025"}, lagos.Labels)
	assert.True(t, lagos.RevenueTotal.Equal(money("500")))
	assert.Equal(t, "Kano", body.Compared[1].Region.Name)
	assert.Equal(t, []string{"Dec 2024", "Feb 2025"}, body.Compared[1].Labels)
}

func TestExportRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/regions/Lagos/export?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))
}

func TestMetricsAndHealth(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.get(t, "/health").Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/metrics").Code)
}

func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)

	cookie := f.login(t)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnauthorized, f.do(t, req).Code)

	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	f := newFixture(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/admin/allocations"},
		{http.MethodPost, "/admin/ingestion/run"},
		{http.MethodGet, "/admin/ingestion/logs"},
	} {
		rec := f.do(t, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestSaveAllocation(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/allocations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		return f.do(t, req)
	}

	rec := post(`{"region_id":"` + f.kano.ID.String() + `","month":3,"year":2025,"statutory_allocation":"1000","vat_allocation":250.5,"deductions":"50"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Created    bool              `json:"created"`
		Allocation domain.Allocation `json:"allocation"`
		Message    string            `json:"message"`
	}
	decode(t, rec, &created)
	assert.True(t, created.Created)
	assert.True(t, created.Allocation.Gross.Equal(money("1250.5")))
	assert.True(t, created.Allocation.Net.Equal(money("1200.5")))
	assert.Equal(t, "Allocation added for Kano, Mar 2025", created.Message)

	rec = post(`{"region_id":"` + f.kano.ID.String() + `","month":"3","year":"2025","statutory_allocation":"2000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.store.Allocations().FindRegionLevel(t.Context(), f.kano.ID, domain.Period{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, created.Allocation.ID, stored.ID)
	assert.True(t, stored.Net.Equal(money("2000")))

	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"region_id":"`+f.kano.ID.String()+`","month":"13","year":"2025"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"region_id":"`+uuid.NewString()+`","month":"1","year":"2025"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{not json`).Code)
}

func TestSaveAllocationForm(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	form := url.Values{
		"region_id":            {f.lagos.ID.String()},
		"month":                {"2"},
		"year":                 {"2025"},
		"statutory_allocation": {"5"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/allocations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Allocation updated for Lagos, Feb 2025")
}

func TestAdminIngestionTrigger(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/ingestion/run", nil)
	req.AddCookie(cookie)
	rec := f.do(t, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.ingestion.Wait()

	req = httptest.NewRequest(http.MethodGet, "/admin/ingestion/logs", nil)
	req.AddCookie(cookie)
	rec = f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Logs []domain.IngestionLogEntry `json:"logs"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Logs, 1)
	assert.Equal(t, domain.OutcomeNoData, body.Logs[0].Outcome)
	assert.Equal(t, 3, body.Logs[0].Month)
}
