package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/flockboard/internal/charting"
	"github.com/mamadbah2/flockboard/internal/config"
	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/repository/memory"
	"github.com/mamadbah2/flockboard/internal/server/handlers"
	"github.com/mamadbah2/flockboard/internal/service/analysis"
	"github.com/mamadbah2/flockboard/internal/service/commands"
	"github.com/mamadbah2/flockboard/internal/service/flocks"
	"github.com/mamadbah2/flockboard/internal/service/health"
	"github.com/mamadbah2/flockboard/internal/service/inventory"
	"github.com/mamadbah2/flockboard/internal/service/logs"
	"github.com/mamadbah2/flockboard/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/flockboard/internal/service/whatsapp"
	client "github.com/mamadbah2/flockboard/pkg/clients/whatsapp"
)

type echoAnalyst struct{}

func (echoAnalyst) Analyze(_ context.Context, _, prompt string) (string, error) {
	return "analysed " + prompt[:5], nil
}

type nopWhatsApp struct{ sent []client.SendTextMessageRequest }

func (n *nopWhatsApp) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	n.sent = append(n.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

type testServer struct {
	engine *gin.Engine
	store  *memory.Repository
	wa     *nopWhatsApp
}

func newTestServer(t *testing.T, analyst analysis.Analyst) testServer {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.UpsertItem(context.Background(), models.InventoryItem{
		ID: "feed", Name: "Layer mash", Category: models.CategoryFeed, Quantity: 100, Unit: "kg", MinThreshold: 20,
	}))

	flockSvc := flocks.NewService(store, nil)
	invSvc := inventory.NewService(store, nil)
	logSvc := logs.NewService(store, store, invSvc, logs.StockItems{FeedItemID: "feed", EggItemID: "eggs"}, nil)
	healthSvc := health.NewService(store, store, nil)
	reportingSvc := reporting.NewService(flockSvc, store, store, invSvc, nil, nil)
	analysisSvc := analysis.NewService(analyst, logSvc, nil)

	wa := &nopWhatsApp{}
	dispatcher := commands.NewService(flockSvc, logSvc, invSvc, healthSvc, whatsappsvc.NewSessionManager(), nil)
	messaging := whatsappsvc.NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "tok"}, wa, dispatcher, nil)

	program := models.VaccinationProgram{Name: "basic", Steps: []models.ProgramStep{
		{AgeDay: 1, Vaccine: "Marek", Method: "injection"},
		{AgeDay: 7, Vaccine: "Newcastle", Method: "eye drop"},
	}}

	engine := New(Handlers{
		Webhook:   handlers.NewWebhookHandler(messaging, nil),
		Flocks:    handlers.NewFlockHandler(flockSvc, logSvc, analysisSvc, reportingSvc, charting.NewGenerator(), nil),
		Health:    handlers.NewHealthHandler(healthSvc, program, nil),
		Inventory: handlers.NewInventoryHandler(invSvc, nil),
	}, nil)
	return testServer{engine: engine, store: store, wa: wa}
}

func (s testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s testServer) createFlock(t *testing.T) models.Flock {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/flocks", flocks.CreateRequest{
		Name: "House A", BirdType: models.BirdLayer, InitialCount: 100, StartDate: "2026-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Flock](t, rec)
}

func TestHealthz(t *testing.T) {
	rec := newTestServer(t, nil).do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFlockLifecycle(t *testing.T) {
	srv := newTestServer(t, echoAnalyst{})
	flock := srv.createFlock(t)
	base := "/api/flocks/" + flock.ID

	for _, log := range []models.DailyLog{
		{Day: 1, Mortality: 5, FeedConsumedKg: 10},
		{Day: 2, EggProduction: 80, FeedConsumedKg: 10},
		{Day: 3, Mortality: 2, EggProduction: 85, FeedConsumedKg: 10},
	} {
		rec := srv.do(t, http.MethodPost, base+"/logs", log)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := srv.do(t, http.MethodGet, base+"/logs?order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enriched := decode[[]models.EnrichedLog](t, rec)
	require.Len(t, enriched, 3)
	assert.Equal(t, 3, enriched[0].Day)
	assert.Equal(t, 95, enriched[0].BirdsAlive)
	assert.Equal(t, "2026-03-03", enriched[0].Date)

	rec = srv.do(t, http.MethodGet, base+"/summary", nil)
	summary := decode[models.SummaryMetrics](t, rec)
	assert.Equal(t, 165, summary.TotalProduction)
	assert.InDelta(t, 86.84, summary.AvgHenDayPct, 0.01)

	rec = srv.do(t, http.MethodGet, base+"/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[struct {
		Flock    models.Flock         `json:"flock"`
		Overview models.FlockOverview `json:"overview"`
	}](t, rec)
	assert.Equal(t, 93, overview.Flock.CurrentCount)
	assert.Equal(t, 7, overview.Overview.TotalMortality)

	rec = srv.do(t, http.MethodGet, base+"/chart.png?series=mortality", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = srv.do(t, http.MethodPost, base+"/analysis", map[string]string{"kind": "mortality"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "analysed Flock", decode[analysis.Result](t, rec).Narrative)

	feed, err := srv.store.GetItem(context.Background(), "feed")
	require.NoError(t, err)
	assert.Equal(t, 70.0, feed.Quantity)

	rec = srv.do(t, http.MethodPost, base+"/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodPost, base+"/logs", models.DailyLog{Mortality: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, nil)
	flock := srv.createFlock(t)
	base := "/api/flocks/" + flock.ID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown flock", http.MethodGet, "/api/flocks/missing", nil, http.StatusNotFound},
		{"invalid flock", http.MethodPost, "/api/flocks", flocks.CreateRequest{Name: "x", BirdType: "DUCK", InitialCount: 1, StartDate: "2026-01-01"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/flocks", map[string]int{"name": 1}, http.StatusBadRequest},
		{"negative mortality", http.MethodPost, base + "/logs", models.DailyLog{Mortality: -1}, http.StatusBadRequest},
		{"bad order", http.MethodGet, base + "/logs?order=sideways", nil, http.StatusBadRequest},
		{"feed overdraft", http.MethodPost, base + "/logs", models.DailyLog{FeedConsumedKg: 500}, http.StatusUnprocessableEntity},
		{"no chart data", http.MethodGet, base + "/chart.png", nil, http.StatusNoContent},
		{"unknown series", http.MethodGet, base + "/chart.png?series=weight", nil, http.StatusBadRequest},
		{"analysis disabled", http.MethodPost, base + "/analysis", nil, http.StatusServiceUnavailable},
		{"export disabled", http.MethodPost, base + "/export", nil, http.StatusServiceUnavailable},
		{"bad calendar month", http.MethodGet, "/api/vaccinations/calendar?year=2026&month=13", nil, http.StatusBadRequest},
		{"adjust without delta", http.MethodPost, "/api/inventory/feed/adjust", map[string]string{}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	rec := srv.do(t, http.MethodPost, base+"/logs", models.DailyLog{Day: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(t, http.MethodPost, base+"/logs", models.DailyLog{Day: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVaccinationRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	flock := srv.createFlock(t)
	base := "/api/flocks/" + flock.ID

	rec := srv.do(t, http.MethodPost, base+"/vaccinations/program", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[[]models.Vaccination](t, rec)
	require.Len(t, created, 2)
	assert.True(t, created[1].ScheduledDate.Equal(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)))

	rec = srv.do(t, http.MethodPost, base+"/vaccinations", health.ScheduleRequest{Vaccine: "Gumboro", ScheduledDate: "2026-03-14"})
	require.Equal(t, http.StatusCreated, rec.Code)
	gumboro := decode[models.Vaccination](t, rec)

	rec = srv.do(t, http.MethodPost, "/api/vaccinations/"+gumboro.ID+"/administer", map[string]string{"date": "2026-03-14"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/vaccinations/"+gumboro.ID+"/administer", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, base+"/vaccinations", nil)
	views := decode[[]health.VaccinationView](t, rec)
	require.Len(t, views, 3)
	assert.Equal(t, models.VaccinationDone, views[2].Status)

	rec = srv.do(t, http.MethodGet, "/api/vaccinations/calendar?year=2026&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[health.MonthCalendar](t, rec)
	assert.Equal(t, time.March, cal.Month)
	for _, week := range cal.Weeks {
		assert.Len(t, week, 7)
	}
}

func TestInventoryRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPut, "/api/inventory/vit", models.InventoryItem{Name: "Vitamins", Category: models.CategoryMedication, Quantity: 5, Unit: "sachet", MinThreshold: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "vit", decode[models.InventoryItem](t, rec).ID)

	rec = srv.do(t, http.MethodGet, "/api/inventory/low", nil)
	low := decode[[]models.InventoryItem](t, rec)
	require.Len(t, low, 1)
	assert.Equal(t, "vit", low[0].ID)

	rec = srv.do(t, http.MethodPost, "/api/inventory/feed/adjust", map[string]float64{"delta": -30})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 70.0, decode[models.InventoryItem](t, rec).Quantity)

	rec = srv.do(t, http.MethodPost, "/api/inventory/feed/adjust", map[string]float64{"delta": -300})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/inventory", nil)
	assert.Len(t, decode[[]models.InventoryItem](t, rec), 2)
}

func TestWebhookRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=99", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "99", rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=99", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	payload := models.WebhookPayload{Entry: []models.WebhookEntry{{Changes: []models.WebhookChange{{
		Value: models.WebhookValue{Messages: []models.InboundMessage{{From: "2217", Type: "text", Text: &models.TextContent{Body: "/help"}}}},
	}}}}}
	rec = srv.do(t, http.MethodPost, "/webhook", payload)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.wa.sent, 1)
	assert.Equal(t, commands.Help(), srv.wa.sent[0].Body)

	rec = srv.do(t, http.MethodPost, "/send-message", models.OutboundMessageRequest{To: "2217", Message: "hi"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = srv.do(t, http.MethodPost, "/send-message", map[string]string{"to": "2217"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
