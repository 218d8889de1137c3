package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/lfbdash-cli/internal/dashboard"
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `IncidentNumber,IncidentGroup,Borough,DateTimeOfCall,year,month,hour,dow,response_time_min,mobilisation_time_min,travel_time_min,Latitude,Longitude
1,Fire,CAMDEN,2023-01-03 10:00:00,2023,1,10,Monday,5,1,4,51.54,-0.14
2,False Alarm,CAMDEN,2023-02-07 11:00:00,2023,2,11,Tuesday,6,1.5,4.5,51.55,-0.15
3,Fire,HACKNEY,2024-02-08 12:00:00,2024,2,12,Wednesday,7,2,5,51.55,-0.05
`

type client struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) postJSON(path string, v any) *httptest.ResponseRecorder {
	b, err := json.Marshal(v)
	require.NoError(c.t, err)
	return c.do(http.MethodPost, path, "application/json", b)
}

func newTestServer(t *testing.T, withData bool) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	if withData {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "lfb_fact_incident_kpi.csv"), []byte(sampleCSV), 0o644))
	}
	s := New(Config{Address: "127.0.0.1:0", DataDir: dir, Settings: dashboard.DefaultSettings()})
	return s, dir
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, false)
	c := &client{t: t, h: s.Handler()}
	rec := c.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestNoDataAndMethodErrors(t *testing.T) {
	s, _ := newTestServer(t, false)
	c := &client{t: t, h: s.Handler()}

	rec := c.do(http.MethodGet, "/api/view", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), dataset.NoDataPrompt)
	require.NotNil(t, c.cookie)

	rec = c.do(http.MethodPost, "/api/view", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = c.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.postJSON("/api/source", map[string]string{"path": "/does/not/exist.csv"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "exist.csv")

	rec = c.postJSON("/api/source", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscoveredSessionFlow(t *testing.T) {
	s, _ := newTestServer(t, true)
	c := &client{t: t, h: s.Handler()}

	rec := c.do(http.MethodGet, "/api/view", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Contains(t, view["source"], "detected file")

	rec = c.postJSON("/api/filters", map[string]any{"boroughs": []string{"CAMDEN", "ATLANTIS"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var filtered struct {
		View struct {
			KPIs struct {
				Incidents int `json:"incidents"`
			} `json:"kpis"`
		} `json:"view"`
		Rejected map[string][]string `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Equal(t, 2, filtered.View.KPIs.Incidents)
	assert.Equal(t, []string{"ATLANTIS"}, filtered.Rejected["borough"])

	rec = c.do(http.MethodGet, "/export.csv", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "lfb_filtered.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)

	rec = c.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[BOROUGHS]")

	rec = c.postJSON("/api/filters", map[string]any{"facet": "Types", "values": []string{"Fire"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"types":["Fire"]`)
	rec = c.postJSON("/api/filters", map[string]any{"facet": "weather", "values": []string{"rain"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/?preview=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[DATA] first 1 of 1 filtered rows")

	rec = c.do(http.MethodPost, "/api/filters/reset", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.postJSON("/api/map", map[string]any{"enforce_bbox": false, "sample_size": 500})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, p := range []string{"/charts/monthly.png", "/charts/boroughs.png", "/map.png"} {
		rec = c.do(http.MethodGet, p, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	}
	rec = c.do(http.MethodGet, "/charts/unknown.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload(t *testing.T) {
	s, _ := newTestServer(t, false)
	c := &client{t: t, h: s.Handler()}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "mine.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := c.do(http.MethodPost, "/api/upload", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "uploaded: mine.csv")

	rec = c.do(http.MethodGet, "/api/sources", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uploaded: mine.csv")
}

func TestSessionsAreIsolated(t *testing.T) {
	s, _ := newTestServer(t, true)
	a := &client{t: t, h: s.Handler()}
	b := &client{t: t, h: s.Handler()}

	require.Equal(t, http.StatusOK, a.postJSON("/api/filters", map[string]any{"types": []string{"Fire"}}).Code)
	rec := b.do(http.MethodGet, "/api/view", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Selection struct {
			Types []string `json:"types"`
		} `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, []string{"False Alarm", "Fire"}, view.Selection.Types)
	assert.NotEqual(t, a.cookie.Value, b.cookie.Value)
}
