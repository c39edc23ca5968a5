package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emarknews/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.StatusResponse{Categories: []types.CategoryStatus{
			{Category: "world", Phase: types.PhaseFullReady, Sequence: 3},
			{Category: "tech", Phase: types.PhasePhase2Race, Sequence: 5},
		}})
	})
	mux.HandleFunc("/api/news/world", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.NewEntry("world", []types.Article{
			{ID: "w1", Title: "World headline", Domain: "bbc.co.uk", Rating: 4.5, Tags: []string{"hot"}},
			{ID: "w2", Title: "Second", Domain: "reuters.com", Rating: 3, TranslatedTitle: "두번째"},
		}, false, 3, now))
	})
	mux.HandleFunc("/api/news/tech/fast", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.NewEntry("tech", nil, true, 5, now))
	})
	mux.HandleFunc("/api/admin/refresh/world", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(types.NewEntry("world", nil, false, 9, now))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := testServer(t)
	c := NewNewsClient(srv.URL + "/")

	status, err := c.GetStatus()
	require.NoError(t, err)
	assert.Len(t, status.Categories, 2)

	entry, err := c.GetNews("world", false)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Total)

	entry, err = c.GetNews("tech", true)
	require.NoError(t, err)
	assert.True(t, entry.Partial)

	entry, err = c.Refresh("world")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), entry.Sequence)

	_, err = c.GetNews("sports", false)
	assert.ErrorContains(t, err, "404")
}

// step feeds msg to the model and runs the returned command once.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	model := next.(Model)
	if cmd == nil {
		return model, nil
	}
	return model, cmd()
}

func TestModelLoadsFirstCategory(t *testing.T) {
	srv := testServer(t)
	m := NewModel(srv.URL)

	status, err := m.Client.GetStatus()
	require.NoError(t, err)

	m, msg := step(t, m, StatusUpdateMsg{Status: status})
	assert.True(t, m.Connected)
	assert.Equal(t, []string{"world", "tech"}, m.Categories)
	assert.True(t, m.Loading)

	m, _ = step(t, m, msg)
	require.NotNil(t, m.Entry)
	assert.False(t, m.Loading)
	assert.Len(t, m.Entry.Data, 2)

	view := m.View()
	assert.Contains(t, view, "World headline")
	assert.Contains(t, view, "두번째")
	assert.Contains(t, view, "full_ready")
}

func TestModelNavigation(t *testing.T) {
	srv := testServer(t)
	m := NewModel(srv.URL)
	m.Connected = true
	m.Categories = []string{"world", "tech"}
	m.Fast = true

	m, msg := step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "tech", m.Category())
	m, _ = step(t, m, msg)
	require.NotNil(t, m.Entry)
	assert.True(t, m.Entry.Partial)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "world", m.Category(), "selection wraps")

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "tech", m.Category())
}

func TestModelIgnoresStaleCategoryResponse(t *testing.T) {
	m := NewModel("http://unused")
	m.Categories = []string{"world", "tech"}
	m.Selected = 1
	m.Loading = true

	next, _ := m.Update(NewsLoadedMsg{Category: "world", Entry: &types.CacheEntry{Success: true}})
	got := next.(Model)
	assert.Nil(t, got.Entry)
	assert.True(t, got.Loading)
}

func TestModelDisconnected(t *testing.T) {
	m := NewModel("http://unused")
	next, _ := m.Update(StatusUpdateMsg{Err: errors.New("connection refused")})
	got := next.(Model)

	assert.False(t, got.Connected)
	view := got.View()
	assert.Contains(t, view, TextDisconnected)
	assert.Contains(t, view, "connection refused")
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★★½", strings.TrimSpace(stars(4.5)))
	assert.Equal(t, "★", strings.TrimSpace(stars(1)))
}
