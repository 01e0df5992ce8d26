package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"photoquest/internal/config"
	httpserver "photoquest/internal/http"
	"photoquest/internal/http/handlers"
	"photoquest/internal/http/middleware"
	"photoquest/internal/repository"
	"photoquest/internal/service"
	"photoquest/internal/storage"
	"photoquest/internal/testutil"
	"photoquest/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	*httptest.Server
	t   *testing.T
	db  *testutil.TestDatabase
	hub *ws.Hub
}

func newServer(t *testing.T) *server {
	td := testutil.SetupTestDatabase(t)
	pool := td.Pool

	cfg := &config.Config{
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
		APIRateLimit:   1000,
		APIRateWindow:  time.Minute,
		AuthRateLimit:  1000,
		AuthRateWindow: time.Minute,
	}

	blobs, err := storage.NewDiskStore(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes)
	require.NoError(t, err)
	auth, err := service.NewJWTAuthenticator("test-secret", time.Hour)
	require.NoError(t, err)

	hub := ws.NewHub()
	users := repository.NewUserRepository(pool)
	pkgs := repository.NewPackageRepository(pool)
	txs := repository.NewTransactionRepository(pool)
	quests := repository.NewQuestRepository(pool)
	audit := service.NewAuditService(repository.NewAuditRepository(pool))
	ledger := service.NewLedgerService(pool, users, repository.NewAdminWalletRepository(pool))

	h := &handlers.Handler{
		Auth:           service.NewAuthService(users, auth, audit),
		Admin:          service.NewAdminService(pool, ledger),
		Approvals:      service.NewApprovalService(pool, txs, pkgs, ledger, audit, hub),
		Topups:         service.NewTopupService(txs, pkgs, blobs, audit, hub),
		Packages:       service.NewPackageService(pool, pkgs, blobs, audit),
		Quests:         service.NewQuestService(pool, quests, ledger, audit, hub),
		Photos:         service.NewPhotoService(repository.NewPhotoRepository(pool), quests, blobs, audit),
		Audit:          audit,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	httpserver.RegisterRoutes(r, cfg, httpserver.Deps{
		Handler:     h,
		Health:      handlers.NewHealthHandler(pool, "test", handlers.LedgerDependency(ledger)),
		Auth:        auth,
		Hub:         hub,
		RateLimiter: middleware.NewRateLimiter(nil),
	})

	ts := httptest.NewServer(middleware.CORS(nil)(r))
	t.Cleanup(ts.Close)
	return &server{Server: ts, t: t, db: td, hub: hub}
}

func (s *server) do(method, path, token, contentType string, body io.Reader) (int, map[string]any) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(s.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer res.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func (s *server) json(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(s.t, err)
	return s.do(method, path, token, "application/json", bytes.NewReader(b))
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	code, body := s.json(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, code, body)
	return body["token"].(string)
}

func TestTopupApprovalFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	code, body := s.json(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "correct-horse", "display_name": "Alice",
	})
	require.Equal(t, http.StatusCreated, code, body)

	code, _ = s.json(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "correct-horse", "display_name": "Alice",
	})
	assert.Equal(t, http.StatusConflict, code)

	userToken := s.login("alice@example.com", "correct-horse")

	adminSvc := service.NewAuthService(repository.NewUserRepository(s.db.Pool), nil, nil)
	_, err := adminSvc.EnsureAdmin(ctx, "root@example.com", "admin-password", "Root")
	require.NoError(t, err)
	adminToken := s.login("root@example.com", "admin-password")

	// Users cannot open the admin feed.
	wsBase := strings.Replace(s.URL, "http", "ws", 1) + "/ws/admin?token="
	_, resp, err := websocket.DefaultDialer.Dial(wsBase+userToken, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	feed, _, err := websocket.DefaultDialer.Dial(wsBase+adminToken, nil)
	require.NoError(t, err)
	defer feed.Close()
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	pkgID := s.db.CreatePackage(t, 100, "9.99")

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("package_id", strconv.FormatInt(pkgID, 10)))
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="slip"; filename="slip.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write(testutil.PNG(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	code, body = s.do(http.MethodPost, "/api/transactions/topup", userToken, mw.FormDataContentType(), &form)
	require.Equal(t, http.StatusCreated, code, body)
	txID := int64(body["transaction_id"].(float64))

	require.NoError(t, feed.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, frame, err := feed.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"type":"topup.submitted"`)

	path := "/api/transactions/" + strconv.FormatInt(txID, 10)

	code, _ = s.do(http.MethodPatch, path+"/approve", userToken, "", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(http.MethodPatch, path+"/approve", adminToken, "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 100, body["user_balance"])

	code, body = s.do(http.MethodPatch, path+"/approve", adminToken, "", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_processed", body["kind"])

	code, body = s.do(http.MethodGet, "/dashboard/user", userToken, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 100, body["coins"])

	code, body = s.do(http.MethodGet, "/dashboard/admin", adminToken, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["pending_topups"])

	code, body = s.do(http.MethodGet, "/readyz", "", "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "wallet 9.99", body["checks"].(map[string]any)["ledger"])
}

func TestQuestJoinFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	auth := service.NewAuthService(repository.NewUserRepository(s.db.Pool), nil, nil)
	_, err := auth.EnsureAdmin(ctx, "root@example.com", "admin-password", "Root")
	require.NoError(t, err)
	adminToken := s.login("root@example.com", "admin-password")

	code, _ := s.json(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "bob@example.com", "password": "bob-password", "display_name": "Bob",
	})
	require.Equal(t, http.StatusCreated, code)
	userToken := s.login("bob@example.com", "bob-password")

	_, err = s.db.Pool.Exec(ctx, `UPDATE users SET coins = 50 WHERE email = 'bob@example.com'`)
	require.NoError(t, err)

	code, body := s.json(http.MethodPost, "/api/quests", adminToken, map[string]any{"title": "Night sky", "entry_fee": 40})
	require.Equal(t, http.StatusCreated, code, body)
	quest := body["quest"].(map[string]any)
	questPath := "/api/quests/" + strconv.FormatInt(int64(quest["id"].(float64)), 10)

	code, body = s.json(http.MethodPut, questPath, adminToken, map[string]any{"total_pool": 1000})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["kind"])

	code, body = s.do(http.MethodPost, questPath+"/join", userToken, "", nil)
	require.Equal(t, http.StatusCreated, code, body)
	assert.EqualValues(t, 40, body["charged"])
	assert.EqualValues(t, 10, body["balance"])

	code, body = s.do(http.MethodPost, questPath+"/join", userToken, "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["already_joined"])
	assert.EqualValues(t, 10, body["balance"])

	code, body = s.do(http.MethodGet, questPath, userToken, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["joined"])
	assert.EqualValues(t, 40, body["quest"].(map[string]any)["total_pool"])
}
