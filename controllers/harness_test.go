package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/config"
	"github.com/phillip/church-cms-go/controllers"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/routes"
	"github.com/phillip/church-cms-go/utils"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")

type harness struct {
	t       *testing.T
	router  *gin.Engine
	now     time.Time
	tokens  *utils.TokenManager
	events  *memEvents
	notices *memNotices
	users   *memUsers
	files   *memFiles
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	controllers.RegisterValidators()

	h := &harness{
		t:       t,
		now:     time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
		tokens:  utils.NewTokenManager("test-secret", time.Hour),
		events:  newMemEvents(),
		notices: newMemNotices(),
		users:   newMemUsers(),
		files:   &memFiles{},
	}
	env := &controllers.Env{
		Cfg:     &config.Config{Env: "test"},
		Events:  h.events,
		Notices: h.notices,
		Users:   h.users,
		Files:   h.files,
		Tokens:  h.tokens,
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return h.now },
	}
	h.router = routes.NewRouter(env, routes.Options{})
	return h
}

// user stores an active account with role and returns it with a bearer header.
func (h *harness) user(role models.Role) (*models.User, string) {
	h.t.Helper()
	u := h.users.put(&models.User{
		Name:        string(role) + " user",
		Email:       string(role) + "-" + primitive.NewObjectID().Hex() + "@church.test",
		Role:        role,
		IsActive:    true,
		Preferences: models.DefaultPreferences(),
	})
	tok, err := h.tokens.Generate(u.ID.Hex(), string(u.Role))
	require.NoError(h.t, err)
	return u, "Bearer " + tok
}

func (h *harness) do(method, path string, body any, auth string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.serve(req, auth)
}

// upload sends fields plus one file on fileField as multipart/form-data.
func (h *harness) upload(method, path string, fields map[string]string, fileField, filename string, content []byte, auth string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(h.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(h.t, err)
		_, err = fw.Write(content)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.serve(req, auth)
}

func (h *harness) serve(req *http.Request, auth string) *httptest.ResponseRecorder {
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     []apperr.FieldError `json:"errors"`
	Pagination *models.PageInfo    `json:"pagination"`
	Token      string              `json:"token"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out), w.Body.String())
	return out
}

func fieldMessages(errs []apperr.FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Message
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Equal(t, "Church CMS API is running", body["message"])
	require.Equal(t, "test", body["environment"])
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/sermons", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "API endpoint not found", decode(t, w).Message)
}
