package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"civicconnect/internal/config"
	"civicconnect/internal/domain"
	"civicconnect/internal/media"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(s *store.Store) (*AuthService, *utils.JWTManager) {
	jwt := utils.NewJWTManager(config.JWTConfig{Secret: "test-secret", Issuer: "civicconnect", AccessTTL: 15 * time.Minute})
	return NewAuthService(s.Users, jwt), jwt
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	s := store.NewMemory()
	auth, jwt := newAuthService(s)
	ctx := context.Background()

	u, err := auth.Register(ctx, RegisterInput{
		UserName:  " Alice ",
		UserEmail: "Alice@Example.com",
		Password:  "secret123",
		Address:   "1 Main Street",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.UserName)
	assert.Equal(t, "alice@example.com", u.UserEmail)
	assert.Equal(t, models.RoleCitizen, u.Role)
	assert.NotEqual(t, "secret123", u.Password)

	session, err := auth.Login(ctx, LoginInput{UserEmail: "ALICE@example.com", Password: "secret123"}, "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	require.NotNil(t, session.User.LastLogin)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), session.ExpiresAt, time.Minute)

	claims, err := jwt.ValidateUserJWT(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleCitizen, claims.Role)
}

func TestAuthService_RegisterRejects(t *testing.T) {
	s := store.NewMemory()
	auth, _ := newAuthService(s)
	ctx := context.Background()
	valid := RegisterInput{UserName: "Bob", UserEmail: "bob@example.com", Password: "secret123", Address: "2 High Street"}

	_, err := auth.Register(ctx, valid)
	require.NoError(t, err)

	dup := valid
	dup.UserEmail = "BOB@example.com"
	_, err = auth.Register(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrConflict)

	elevated := valid
	elevated.UserEmail = "boss@example.com"
	elevated.Role = models.RoleAuthority
	_, err = auth.Register(ctx, elevated)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = auth.Register(ctx, RegisterInput{UserName: "C", UserEmail: "nope", Password: "123"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := verr.Fields()
	assert.Contains(t, fields, "userName")
	assert.Contains(t, fields, "userEmail")
	assert.Contains(t, fields, "userPassword")
	assert.Contains(t, fields, "userAddress")
}

func TestAuthService_LoginFailures(t *testing.T) {
	s := store.NewMemory()
	auth, _ := newAuthService(s)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{UserName: "Dee", UserEmail: "dee@example.com", Password: "secret123", Address: "3 Low Road"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, LoginInput{UserEmail: "dee@example.com", Password: "wrong"}, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = auth.Login(ctx, LoginInput{UserEmail: "ghost@example.com", Password: "secret123"}, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = auth.Login(ctx, LoginInput{UserEmail: "dee@example.com"}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_LeaderboardAndStats(t *testing.T) {
	f := newFixture(t, ComplaintOptions{})
	ctx := context.Background()
	users := NewUserService(f.store.Complaints, f.store.Users, 0)

	alice := &models.User{UserName: "alice", UserEmail: "alice@example.com", Role: models.RoleCitizen}
	bob := &models.User{UserName: "bob", UserEmail: "bob@example.com", Role: models.RoleCitizen}
	require.NoError(t, f.store.Users.Insert(ctx, alice))
	require.NoError(t, f.store.Users.Insert(ctx, bob))

	water := authority("Water")
	resolvedComplaint(t, f, models.ActorFromUser(alice), water)
	f.mustCreate(t, models.ActorFromUser(alice), "Water", "Low", 0)
	f.mustCreate(t, models.ActorFromUser(bob), "Water", "Low", 0)

	board, err := users.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].UserName)
	assert.Equal(t, int64(70), board[0].ImpactPoints)
	assert.Equal(t, int64(10), board[1].ImpactPoints)

	stats, err := users.Stats(ctx, models.ActorFromUser(alice))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalComplaints)
	assert.Equal(t, int64(1), stats.Resolved)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(70), stats.ImpactPoints)

	profile, err := users.Profile(ctx, models.ActorFromUser(bob))
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", profile.UserEmail)
}

func TestCommunityService_Create(t *testing.T) {
	s := store.NewMemory()
	pub := &fakePublisher{}
	notifications := NewNotificationService(s.Notifications, pub, 0)
	mediaStore := media.NewStore(config.StorageConfig{UploadDir: t.TempDir(), PublicPrefix: "/uploads"})
	svc := NewCommunityService(s.Posts, mediaStore, notifications, pub)
	ctx := context.Background()
	officer := authority("Fire")

	_, err := svc.Create(ctx, citizen("eve"), CreatePostInput{Title: "Hi", Content: "Hello"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(ctx, officer, CreatePostInput{Title: "Hi", Content: "Hello", Tag: "Gossip"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	update, err := svc.Create(ctx, officer, CreatePostInput{Title: "Drill", Content: "Fire drill at noon"})
	require.NoError(t, err)
	assert.Equal(t, models.TagUpdate, update.Tag)
	assert.Equal(t, officer.ID, update.Author)
	assert.Empty(t, pub.Events())

	alert, err := svc.Create(ctx, officer, CreatePostInput{
		Title:   "Wildfire",
		Content: "Evacuate the north district",
		Tag:     models.TagAlert,
		Image:   &media.Upload{Filename: "map.png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(alert.Image, "/uploads/posts/"))

	alerts := pub.eventsTo("role:Citizen", websocket.EventNewAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert, alerts[0].Payload)

	page, err := notifications.List(ctx, citizen("frank"), 0)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, models.NotificationEmergency, page.Notifications[0].Type)
	assert.Equal(t, models.RoleCitizen, page.Notifications[0].RecipientRole)

	posts, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Wildfire", posts[0].Title)
}

func TestNoteService(t *testing.T) {
	svc := NewNoteService(store.NewMemory().Notes)
	ctx := context.Background()
	owner := citizen("gia")
	later := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	second, err := svc.Add(ctx, owner, AddNoteInput{Content: "Call council", Date: &later})
	require.NoError(t, err)
	_, err = svc.Add(ctx, owner, AddNoteInput{Content: "Check drain", Date: &earlier})
	require.NoError(t, err)

	_, err = svc.Add(ctx, owner, AddNoteInput{Content: " "})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "content")
	assert.Contains(t, verr.Fields(), "date")

	notes, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Check drain", notes[0].Content)

	assert.ErrorIs(t, svc.Delete(ctx, citizen("intruder"), second.ID.Hex()), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, owner, "bad"), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner, second.ID.Hex()))

	notes, err = svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}
