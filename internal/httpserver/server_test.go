package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/daylog/internal/auth"
	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/httpserver/deps"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/store/memory"
	"github.com/MrSnakeDoc/daylog/internal/tracker"
)

const testDate = "2026-10-17"

var testAuth = auth.Config{Secret: "test-secret", Issuer: "daylog-test"}

func newTestDeps(t *testing.T) deps.Deps {
	t.Helper()
	st := memory.New()
	log := logger.Nop()
	return deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Version:        "test",
		TimeNow:        func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local) },
		RequestTimeout: 5 * time.Second,
		RateBurst:      1000,
		RatePerMin:     1000,
		Auth:           testAuth,
		Store:          st,
		Tracker:        tracker.New(st, log, tracker.Options{}),
		Catalog:        catalog.New(),
	}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok, err := auth.Issue(auth.Claims{Subject: sub, Email: sub + "@example.com"}, time.Hour, testAuth)
	require.NoError(t, err)
	return tok
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type dayBody struct {
	Date       string `json:"date"`
	Activities []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
		Duration int    `json:"duration"`
	} `json:"activities"`
	TotalMinutes     int `json:"totalMinutes"`
	RemainingMinutes int `json:"remainingMinutes"`
	Count            int `json:"count"`
	Summary          struct {
		TopCategory     string `json:"topCategory"`
		AverageDuration int    `json:"averageDuration"`
	} `json:"summary"`
}

type errBody struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Remaining *int   `json:"remaining"`
}

func TestActivitiesLifecycle(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}
	base := "/api/days/" + testDate + "/activities"

	rec := c.do(http.MethodPost, base, `{"name":"Meeting","category":"Work","duration":90}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct{ ID string }
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, base+"/"+created.ID, rec.Header().Get("Location"))

	rec = c.do(http.MethodPost, base, `{"name":"Gym","category":"Exercise","duration":"45"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var day dayBody
	decode(t, rec, &day)
	assert.Equal(t, testDate, day.Date)
	assert.Equal(t, 2, day.Count)
	assert.Equal(t, 135, day.TotalMinutes)
	assert.Equal(t, 1305, day.RemainingMinutes)
	assert.Equal(t, "Work", day.Summary.TopCategory)
	assert.Equal(t, 68, day.Summary.AverageDuration)
	require.Len(t, day.Activities, 2)
	assert.Equal(t, "Gym", day.Activities[0].Name)
	assert.Equal(t, "Meeting", day.Activities[1].Name)

	rec = c.do(http.MethodPut, base+"/"+created.ID, `{"name":"Standup","category":"Work","duration":15}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, base, "")
	decode(t, rec, &day)
	assert.Equal(t, 60, day.TotalMinutes)
	assert.Equal(t, "Standup", day.Activities[1].Name)

	rec = c.do(http.MethodDelete, base+"/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = c.do(http.MethodDelete, base+"/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, base, "")
	decode(t, rec, &day)
	assert.Equal(t, 1, day.Count)
	assert.Equal(t, 45, day.TotalMinutes)
}

func TestCreateActivityValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReason string
	}{
		{"empty name", `{"name":"  ","category":"Work","duration":10}`, http.StatusUnprocessableEntity, "name_required"},
		{"long name", `{"name":"` + strings.Repeat("a", 101) + `","category":"Work","duration":10}`, http.StatusUnprocessableEntity, "name_too_long"},
		{"no category", `{"name":"Read","duration":10}`, http.StatusUnprocessableEntity, "category_required"},
		{"fractional duration", `{"name":"Read","category":"Study","duration":12.5}`, http.StatusUnprocessableEntity, "duration_too_small"},
		{"text duration", `{"name":"Read","category":"Study","duration":"90m"}`, http.StatusUnprocessableEntity, "duration_too_small"},
		{"zero duration", `{"name":"Read","category":"Study","duration":0}`, http.StatusUnprocessableEntity, "duration_too_small"},
		{"too large", `{"name":"Read","category":"Study","duration":1441}`, http.StatusUnprocessableEntity, "duration_too_large"},
		{"malformed", `{"name":`, http.StatusBadRequest, ""},
		{"unknown field", `{"name":"Read","category":"Study","duration":5,"extra":true}`, http.StatusBadRequest, ""},
	}

	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(http.MethodPost, "/api/days/"+testDate+"/activities", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			var body errBody
			decode(t, rec, &body)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantReason, body.Reason)
			assert.Nil(t, body.Remaining)
		})
	}
}

func TestCreateActivityExceedsBudget(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}
	base := "/api/days/" + testDate + "/activities"

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, base, `{"name":"Sleep","category":"Sleep","duration":1400}`).Code)

	rec := c.do(http.MethodPost, base, `{"name":"Read","category":"Study","duration":100}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errBody
	decode(t, rec, &body)
	assert.Equal(t, "exceeds_budget", body.Reason)
	require.NotNil(t, body.Remaining)
	assert.Equal(t, 40, *body.Remaining)
	assert.Contains(t, body.Error, "40")
}

func TestUpdateGivesBackEditedDuration(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}
	base := "/api/days/" + testDate + "/activities"

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, base, `{"name":"Sleep","category":"Sleep","duration":1240}`).Code)
	rec := c.do(http.MethodPost, base, `{"name":"Study","category":"Study","duration":200}`)
	var created struct{ ID string }
	decode(t, rec, &created)

	rec = c.do(http.MethodPut, base+"/"+created.ID, `{"name":"Study","category":"Study","duration":300}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errBody
	decode(t, rec, &body)
	require.NotNil(t, body.Remaining)
	assert.Equal(t, 200, *body.Remaining)

	rec = c.do(http.MethodPut, base+"/"+created.ID, `{"name":"Study","category":"Study","duration":200}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodPut, base+"/missing", `{"name":"Study","category":"Study","duration":10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousRequests(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t))}
	base := "/api/days/" + testDate + "/activities"

	rec := c.do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var day dayBody
	decode(t, rec, &day)
	assert.Equal(t, 0, day.Count)
	assert.Equal(t, 1440, day.RemainingMinutes)
	assert.NotNil(t, day.Activities)

	rec = c.do(http.MethodPost, base, `{"name":"Read","category":"Study","duration":10}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = c.do(http.MethodPut, base+"/x", `{"name":"Read","category":"Study","duration":10}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = c.do(http.MethodDelete, base+"/x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = c.do(http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidToken(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: "not-a-jwt"}

	rec := c.do(http.MethodGet, "/api/days/"+testDate+"/activities", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	other, err := auth.Issue(auth.Claims{Subject: "u1"}, time.Hour, auth.Config{Secret: "other", Issuer: testAuth.Issuer})
	require.NoError(t, err)
	c.token = other
	rec = c.do(http.MethodGet, "/api/days/"+testDate+"/activities", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidDate(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}

	for _, path := range []string{
		"/api/days/2026-02-30/activities",
		"/api/days/17-10-2026/activities",
		"/api/days/today/analytics",
		"/api/analytics?date=2026-13-01",
	} {
		rec := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	h := NewRouter(newTestDeps(t))
	alice := client{t: t, h: h, token: token(t, "alice")}
	bob := client{t: t, h: h, token: token(t, "bob")}
	base := "/api/days/" + testDate + "/activities"

	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, base, `{"name":"Work","category":"Work","duration":60}`).Code)

	var day dayBody
	decode(t, bob.do(http.MethodGet, base, ""), &day)
	assert.Equal(t, 0, day.Count)
}

func TestAnalytics(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}
	base := "/api/days/" + testDate + "/activities"
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, base, `{"name":"Meeting","category":"Work","duration":90}`).Code)
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, base, `{"name":"Gym","category":"Exercise","duration":45}`).Code)

	type report struct {
		Date    string `json:"date"`
		Empty   bool   `json:"empty"`
		Summary struct {
			TotalMinutes   int    `json:"totalMinutes"`
			TopCategory    string `json:"topCategory"`
			TotalFormatted string `json:"totalFormatted"`
		} `json:"summary"`
		Categories []struct {
			Category string `json:"category"`
			Percent  int    `json:"percent"`
		} `json:"categories"`
		Bars []struct {
			Label string `json:"label"`
		} `json:"bars"`
	}

	for _, path := range []string{"/api/days/" + testDate + "/analytics", "/api/analytics", "/api/analytics?date=" + testDate} {
		rec := c.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		var r report
		decode(t, rec, &r)
		assert.Equal(t, testDate, r.Date)
		assert.False(t, r.Empty)
		assert.Equal(t, 135, r.Summary.TotalMinutes)
		assert.Equal(t, "Work", r.Summary.TopCategory)
		assert.Equal(t, "2h 15m", r.Summary.TotalFormatted)
		require.Len(t, r.Categories, 2)
		assert.Equal(t, "Work", r.Categories[0].Category)
		assert.Equal(t, 67, r.Categories[0].Percent)
		require.Len(t, r.Bars, 2)
		assert.Equal(t, "Gym", r.Bars[0].Label)
	}

	var empty report
	decode(t, c.do(http.MethodGet, "/api/analytics?date=2026-10-16", ""), &empty)
	assert.True(t, empty.Empty)
}

func TestCategories(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t))}

	rec := c.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories []catalog.Entry `json:"categories"`
		Source     string          `json:"source"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "builtin", body.Source)
	require.Len(t, body.Categories, 6)
	assert.Equal(t, "Work", string(body.Categories[0].Name))
	assert.Equal(t, "Others", string(body.Categories[5].Name))
}

func TestProfile(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t)), token: token(t, "u1")}

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/profile", "").Code)

	rec := c.do(http.MethodPut, "/api/profile", `{"name":" A "}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var eb errBody
	decode(t, rec, &eb)
	assert.Equal(t, "name_too_short", eb.Reason)

	rec = c.do(http.MethodPut, "/api/profile", `{"name":"  Ada  ","photoURL":"https://example.com/a.png"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type profile struct {
		UserID   string `json:"userId"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		PhotoURL string `json:"photoURL"`
	}
	var p profile
	decode(t, rec, &p)
	assert.Equal(t, profile{UserID: "u1", Name: "Ada", Email: "u1@example.com", PhotoURL: "https://example.com/a.png"}, p)

	// Omitted fields keep their value
	rec = c.do(http.MethodPut, "/api/profile", `{"name":"Ada L."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &p)
	assert.Equal(t, "Ada L.", p.Name)
	assert.Equal(t, "https://example.com/a.png", p.PhotoURL)
}

func TestProbes(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t))}

	rec := c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = c.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true,"store":"memory"}`, rec.Body.String())

	rec = c.do(http.MethodGet, "/infra", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var infra struct {
		Status     string `json:"status"`
		Components map[string]struct {
			OK      bool   `json:"ok"`
			Backend string `json:"backend"`
			Mode    string `json:"mode"`
		} `json:"components"`
	}
	decode(t, rec, &infra)
	assert.Equal(t, "optimal", infra.Status)
	assert.Equal(t, "memory", infra.Components["store"].Backend)
	assert.Equal(t, "advisory", infra.Components["engine"].Mode)
}

func TestReload(t *testing.T) {
	d := newTestDeps(t)
	c := client{t: t, h: NewRouter(d)}
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/reload", "").Code)

	d.ReloadTrigger = make(chan struct{}, 1)
	c.h = NewRouter(d)
	assert.Equal(t, http.StatusAccepted, c.do(http.MethodPost, "/reload", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPost, "/reload", "").Code)

	<-d.ReloadTrigger
	assert.Equal(t, http.StatusAccepted, c.do(http.MethodPost, "/reload", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	c := client{t: t, h: NewRouter(newTestDeps(t))}

	// Produce at least one labelled series
	c.do(http.MethodGet, "/healthz", "")

	rec := c.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "daylog_http_request_duration_seconds")
}

func TestAllowedCIDRSGuardOperatorRoutes(t *testing.T) {
	d := newTestDeps(t)
	d.AllowedCIDRS = []string{"10.0.0.0/8"}
	c := client{t: t, h: NewRouter(d)}

	// httptest requests come from 192.0.2.1
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/infra", "").Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", "").Code)
}

func TestStreamDeliversCurrentStateThenChanges(t *testing.T) {
	d := newTestDeps(t)
	srv := httptest.NewServer(NewRouter(d))
	defer srv.Close()

	tok := token(t, "u1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// EventSource cannot set headers, the token travels in the query
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/days/"+testDate+"/activities/stream?access_token="+tok, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan dayBody, 4)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		event := ""
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: ") && event == "activities":
				var day dayBody
				if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &day) == nil {
					events <- day
				}
			}
		}
	}()

	next := func() dayBody {
		t.Helper()
		select {
		case day, ok := <-events:
			require.True(t, ok, "stream closed")
			return day
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for an event")
			return dayBody{}
		}
	}

	first := next()
	assert.Equal(t, 0, first.Count)
	assert.Equal(t, testDate, first.Date)

	c := client{t: t, h: NewRouter(d), token: tok}
	require.Equal(t, http.StatusCreated,
		c.do(http.MethodPost, "/api/days/"+testDate+"/activities", `{"name":"Read","category":"Study","duration":30}`).Code)

	second := next()
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, 1410, second.RemainingMinutes)
}
