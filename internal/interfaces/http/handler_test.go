package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/infrastructure"
	"buyerwatch/internal/repository"
	"buyerwatch/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testAdmin    = "admin"
	testPassword = "s3cret-pass"
)

type testServer struct {
	engine   *gin.Engine
	store    *repository.SQLiteStore
	importer *usecases.ChatImporter
}

func newTestServer(t *testing.T, askBurst int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := infrastructure.OpenSQLite(ctx, filepath.Join(t.TempDir(), "buyerwatch.db"))
	require.NoError(t, err)
	store := repository.NewSQLiteStore(db)
	t.Cleanup(func() { store.Close() })

	dashboard, err := repository.NewDashboardRepository("", nil)
	require.NoError(t, err)

	auth := usecases.NewAuthUsecase(store, "test-secret")
	require.NoError(t, auth.EnsureAdmin(ctx, testAdmin, testPassword))

	importer := usecases.NewChatImporter(store, nil)
	svc := Services{
		Ask:       usecases.NewAskUsecase(store, usecases.NewResponder(nil, nil), entities.AnswerConfig{}, nil),
		Auth:      auth,
		Dashboard: usecases.NewDashboardUsecase(dashboard, store),
		Importer:  importer,
	}

	r := gin.New()
	SetupRoutes(r, svc, NewMiddleware(auth, usecases.RoleAdmin), rate.Limit(0.001), askBurst)
	return &testServer{engine: r, store: store, importer: importer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, token, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/chats/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": testAdmin, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestPublicDashboardRoutes(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = s.do(t, http.MethodGet, "/api/dashboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode[usecases.Overview](t, w)
	assert.Equal(t, "Green Valley Residency", overview.ProjectName)
	assert.Len(t, overview.Timeline, 5)
	assert.Zero(t, overview.Chats.MessageCount)

	w = s.do(t, http.MethodGet, "/api/timeline", "", nil)
	assert.Len(t, decode[[]entities.TimelineEntry](t, w), 5)

	w = s.do(t, http.MethodGet, "/api/progress", "", nil)
	progress := decode[entities.ProgressReport](t, w)
	assert.Equal(t, usecases.OverallProgress(progress.Items), progress.Overall)

	w = s.do(t, http.MethodGet, "/api/questions/suggested", "", nil)
	assert.Len(t, decode[[]string](t, w), 4)

	w = s.do(t, http.MethodGet, "/api/documents", "", nil)
	assert.Len(t, decode[[]entities.Document](t, w), 4)

	w = s.do(t, http.MethodGet, "/api/updates", "", nil)
	assert.Len(t, decode[[]entities.CommunityUpdate](t, w), 3)
}

func TestGetGallery(t *testing.T) {
	s := newTestServer(t, 5)

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"?year=All&type=All", 4},
		{"?type=Videos", 1},
		{"?year=2024", 1},
		{"?year=2024&type=video", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/gallery"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[struct {
				Items    []entities.GalleryItem `json:"items"`
				Featured []entities.GalleryItem `json:"featured"`
				Years    []string               `json:"years"`
			}](t, w)
			assert.Len(t, resp.Items, tt.want)
			assert.NotNil(t, resp.Items)
			assert.Len(t, resp.Featured, 1)
			assert.Equal(t, usecases.GalleryAllYears, resp.Years[0])
		})
	}
}

func TestAsk(t *testing.T) {
	s := newTestServer(t, 10)

	t.Run("empty question", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/ask", "", gin.H{"question": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{"))
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no data yet", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/ask", "", gin.H{"question": "What is the status?"})
		require.Equal(t, http.StatusOK, w.Code)
		ans := decode[entities.Answer](t, w)
		assert.Equal(t, usecases.NoDataAnswer, ans.Text)
	})

	t.Run("keyword answer after sample load", func(t *testing.T) {
		token := s.login(t)
		w := s.do(t, http.MethodPost, "/api/admin/chats/sample", token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = s.do(t, http.MethodPost, "/api/ask", "", gin.H{"question": "Any news on the RERA complaint?"})
		require.Equal(t, http.StatusOK, w.Code)
		ans := decode[entities.Answer](t, w)
		assert.Equal(t, string(usecases.StrategyKeyword), ans.Strategy)
		assert.Equal(t, string(usecases.CategoryRERA), ans.Category)
		assert.Contains(t, ans.Text, "RERA")
	})
}

func TestAsk_RateLimitedPerClient(t *testing.T) {
	s := newTestServer(t, 2)

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = s.do(t, http.MethodPost, "/api/ask", "", gin.H{"question": "status?"}).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, 5)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"ok", gin.H{"username": testAdmin, "password": testPassword}, http.StatusOK},
		{"wrong password", gin.H{"username": testAdmin, "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", gin.H{"username": "root", "password": testPassword}, http.StatusUnauthorized},
		{"missing fields", gin.H{"username": ""}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(t, http.MethodGet, "/api/admin/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/chats", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminChatImport(t *testing.T) {
	s := newTestServer(t, 5)
	token := s.login(t)

	export := "[15/04/2024, 10:30] Ramesh: Site work stopped again\n" +
		"[15/04/2024, 10:32] Asha: Builder says labour shortage\n" +
		"continued on next line\n"

	w := s.upload(t, token, "WhatsApp Chat.txt", []byte(export))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	batch := decode[entities.ChatImport](t, w)
	assert.Equal(t, 2, batch.MessageCount)
	assert.Equal(t, "WhatsApp Chat.txt", batch.FileName)

	w = s.do(t, http.MethodGet, "/api/admin/chats?limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Messages []entities.ChatMessage `json:"messages"`
		Count    int                    `json:"count"`
	}](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Ramesh", list.Messages[0].Sender)

	w = s.upload(t, token, "notes.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, token, "chat.zip", []byte("not a zip"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, token, "empty.txt", []byte("hello\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/api/admin/chats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	n, err := s.store.CountMessages(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdminChatImport_ArchiveTooLarge(t *testing.T) {
	s := newTestServer(t, 5)
	s.importer.MaxExtractedBytes = 64
	token := s.login(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("WhatsApp Chat.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("[15/04/2024, 10:30] Ramesh: site work stopped\n", 50)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	resp := s.upload(t, token, "export.zip", buf.Bytes())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code, resp.Body.String())

	n, err := s.store.CountMessages(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdminSettings(t *testing.T) {
	s := newTestServer(t, 5)
	token := s.login(t)

	type settings struct {
		CredentialSource string `json:"credential_source"`
		Strategy         string `json:"strategy"`
	}

	w := s.do(t, http.MethodGet, "/api/admin/settings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, settings{CredentialSource: "", Strategy: "keyword"}, decode[settings](t, w))

	w = s.do(t, http.MethodPut, "/api/admin/settings/api-key", token, gin.H{"api_key": "has spaces"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/admin/settings/api-key", token, gin.H{"api_key": "AIza-test_key"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/settings", token, nil)
	assert.Equal(t, settings{CredentialSource: "stored", Strategy: "remote"}, decode[settings](t, w))
	assert.NotContains(t, w.Body.String(), "AIza-test_key")

	w = s.do(t, http.MethodDelete, "/api/admin/settings/api-key", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/admin/settings", token, nil)
	assert.Equal(t, "keyword", decode[settings](t, w).Strategy)
}

func TestAdminStats(t *testing.T) {
	s := newTestServer(t, 5)
	token := s.login(t)

	s.do(t, http.MethodPost, "/api/ask", "", gin.H{"question": "when is possession?"})

	w := s.do(t, http.MethodGet, "/api/admin/stats?days=abc", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Days  int               `json:"days"`
		Total int               `json:"total"`
		Stats []entities.AskStat `json:"stats"`
	}](t, w)
	assert.Equal(t, defaultStatsDays, resp.Days)
	assert.Equal(t, 1, resp.Total)
}

func TestAdminWhatsAppDisabled(t *testing.T) {
	s := newTestServer(t, 5)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/api/admin/whatsapp/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[infrastructure.WhatsAppStatus](t, w).Enabled)

	w = s.do(t, http.MethodGet, "/api/admin/whatsapp/qr", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBoundedInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 30},
		{"x", 30},
		{"-4", 30},
		{"7", 7},
		{"9999", 365},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, boundedInt(tt.raw, defaultStatsDays, maxStatsDays), tt.raw)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 5)
	req := httptest.NewRequest(http.MethodOptions, "/api/ask", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
