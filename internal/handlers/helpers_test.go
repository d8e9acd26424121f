package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicconnect/internal/assistant"
	"civicconnect/internal/config"
	"civicconnect/internal/media"
	"civicconnect/internal/middleware"
	"civicconnect/internal/models"
	"civicconnect/internal/services"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAssistant struct {
	reply   string
	err     error
	prompt  string
	history []assistant.Turn
}

func (f *fakeAssistant) Chat(_ context.Context, prompt string, history []assistant.Turn) (string, error) {
	f.prompt = prompt
	f.history = history
	return f.reply, f.err
}

type testServer struct {
	router    *gin.Engine
	store     *store.Store
	jwt       *utils.JWTManager
	hub       *websocket.Hub
	assistant *fakeAssistant
}

// newTestServer wires real services over the in-memory store. No classifier is
// configured, so classification falls back to defaults.
func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()

	st := store.NewMemory()
	hub := websocket.NewHub()
	jwtCfg := config.JWTConfig{Secret: "handler-secret", Issuer: "civicconnect", AccessTTL: time.Hour, CookieName: "accessToken"}
	jwt := utils.NewJWTManager(jwtCfg)
	mediaStore := media.NewStore(config.StorageConfig{UploadDir: t.TempDir(), PublicPrefix: "/uploads"})

	notifications := services.NewNotificationService(st.Notifications, hub, 50)
	complaints := services.NewComplaintService(st.Complaints, nil, mediaStore, notifications, hub, services.ComplaintOptions{
		RejectDuplicateMedia: true,
		FakeThreshold:        0.8,
	})
	fa := &fakeAssistant{reply: "Hello from the assistant"}

	complaintHandler := NewComplaintHandler(complaints, maxUpload)
	authHandler := NewAuthHandler(services.NewAuthService(st.Users, jwt), jwtCfg)
	userHandler := NewUserHandler(services.NewUserService(st.Complaints, st.Users, 10), notifications)
	communityHandler := NewCommunityHandler(services.NewCommunityService(st.Posts, mediaStore, notifications, hub), maxUpload)
	noteHandler := NewNoteHandler(services.NewNoteService(st.Notes))
	assistantHandler := NewAssistantHandler(fa)
	healthHandler := NewHealthHandler(hub, "test", nil)
	wsHandler := NewWebSocketHandler(hub, jwt, jwtCfg.CookieName,
		config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: true, MaxMessageSize: 4096},
		config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}})

	r := gin.New()
	r.GET("/health", healthHandler.Health)
	r.GET("/ws", wsHandler.Connect)
	r.POST("/user/register", authHandler.Register)
	r.POST("/user/login", authHandler.Login)
	r.POST("/user/logout", authHandler.Logout)

	auth := r.Group("/", middleware.JWTAuth(jwt, jwtCfg.CookieName))
	auth.GET("/user/me", userHandler.Profile)
	auth.GET("/user/leaderboard", userHandler.Leaderboard)
	auth.GET("/user/stats", userHandler.Stats)
	auth.GET("/user/notifications", userHandler.Notifications)
	auth.PUT("/user/notifications/:id/read", userHandler.MarkRead)
	auth.POST("/complaint/create", complaintHandler.Create)
	auth.PUT("/complaint/edit/:id", complaintHandler.Edit)
	auth.PUT("/complaint/update-status/:id", complaintHandler.UpdateStatus)
	auth.POST("/complaint/feedback/:id", complaintHandler.Feedback)
	auth.POST("/complaint/predict", complaintHandler.Predict)
	auth.POST("/complaint/caption", complaintHandler.Caption)
	auth.POST("/complaint/analyze-video", complaintHandler.AnalyzeVideo)
	auth.GET("/complaint/my-contributions", complaintHandler.MyContributions)
	auth.GET("/complaint/authority-complaints", complaintHandler.AuthorityComplaints)
	auth.GET("/complaint/authority-stats", complaintHandler.AuthorityStats)
	auth.GET("/complaint/resolved", complaintHandler.Resolved)
	auth.GET("/complaint/:id", complaintHandler.Get)
	auth.GET("/community-post", communityHandler.List)
	auth.POST("/community-post/create", communityHandler.Create)
	auth.GET("/note", noteHandler.List)
	auth.POST("/note/add", noteHandler.Add)
	auth.DELETE("/note/:id", noteHandler.Delete)
	auth.POST("/ai/chat", assistantHandler.Chat)

	return &testServer{router: r, store: st, jwt: jwt, hub: hub, assistant: fa}
}

// login stores a user with the given role and returns a bearer token for it.
func (s *testServer) login(t *testing.T, name, role, department string) (string, *models.User) {
	t.Helper()

	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	u := &models.User{
		UserName:   name,
		UserEmail:  name + "@example.com",
		Password:   hash,
		Role:       role,
		Department: department,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.store.Users.Insert(context.Background(), u))

	token, err := s.jwt.GenerateUserJWT(u)
	require.NoError(t, err)
	return token, u
}

func (s *testServer) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	return s.do(method, path, token, "application/json", body)
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// createComplaint files a complaint through the HTTP layer and returns its public id.
func (s *testServer) createComplaint(t *testing.T, token, complaintType, priority string, image []byte) models.Complaint {
	t.Helper()

	body, ct := multipartBody(t, map[string]string{
		"complaintDescription": "Burst pipe flooding the road",
		"complaintLocation":    "5th Avenue",
		"complaintType":        complaintType,
		"complaintPriority":    priority,
		"complaintAIScore":     "87.5",
	}, formFile{field: "image", name: "pipe.jpg", data: image})

	w := s.do(http.MethodPost, "/complaint/create", token, ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var c models.Complaint
	decodeData(t, w, &c)
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
