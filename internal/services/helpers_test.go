package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"civicconnect/internal/classifier"
	"civicconnect/internal/config"
	"civicconnect/internal/media"
	"civicconnect/internal/models"
	"civicconnect/internal/store"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (*classifier.Classification, error) {
	args := m.Called(ctx, text)
	c, _ := args.Get(0).(*classifier.Classification)
	return c, args.Error(1)
}

func (m *mockClassifier) Caption(ctx context.Context, filename string, image io.Reader) (string, error) {
	args := m.Called(ctx, filename, image)
	return args.String(0), args.Error(1)
}

func (m *mockClassifier) AnalyzeVideo(ctx context.Context, filename string, video io.Reader) (string, error) {
	args := m.Called(ctx, filename, video)
	return args.String(0), args.Error(1)
}

func (m *mockClassifier) DetectFakeImage(ctx context.Context, filename string, image io.Reader) (*classifier.FakeReport, error) {
	args := m.Called(ctx, filename, image)
	r, _ := args.Get(0).(*classifier.FakeReport)
	return r, args.Error(1)
}

func (m *mockClassifier) DetectFakeVideo(ctx context.Context, filename string, video io.Reader) (*classifier.FakeReport, error) {
	args := m.Called(ctx, filename, video)
	r, _ := args.Get(0).(*classifier.FakeReport)
	return r, args.Error(1)
}

func (m *mockClassifier) FakeDetectionEnabled() bool {
	return m.Called().Bool(0)
}

type pushed struct {
	Room    string
	Event   string
	Payload interface{}
}

// fakePublisher records every emitted event.
type fakePublisher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *fakePublisher) EmitToUser(userID, event string, payload interface{}) int {
	return p.record("user:"+userID, event, payload)
}

func (p *fakePublisher) EmitToRole(role, event string, payload interface{}) int {
	return p.record("role:"+role, event, payload)
}

func (p *fakePublisher) record(room, event string, payload interface{}) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{Room: room, Event: event, Payload: payload})
	return 1
}

func (p *fakePublisher) Events() []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushed(nil), p.events...)
}

// eventsTo filters recorded events by room and name.
func (p *fakePublisher) eventsTo(room, event string) []pushed {
	var out []pushed
	for _, e := range p.Events() {
		if e.Room == room && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store         *store.Store
	classifier    *mockClassifier
	publisher     *fakePublisher
	media         *media.Store
	notifications *NotificationService
	complaints    *ComplaintService
}

func newFixture(t *testing.T, opts ComplaintOptions) *fixture {
	t.Helper()

	s := store.NewMemory()
	cls := &mockClassifier{}
	pub := &fakePublisher{}
	mediaStore := media.NewStore(config.StorageConfig{UploadDir: t.TempDir(), PublicPrefix: "/uploads"})
	notifications := NewNotificationService(s.Notifications, pub, 50)

	return &fixture{
		store:         s,
		classifier:    cls,
		publisher:     pub,
		media:         mediaStore,
		notifications: notifications,
		complaints:    NewComplaintService(s.Complaints, cls, mediaStore, notifications, pub, opts),
	}
}

func citizen(name string) models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Name: name, Role: models.RoleCitizen}
}

func authority(department string) models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Name: department + " officer", Role: models.RoleAuthority, Department: department}
}

func image(data string) *media.Upload {
	return &media.Upload{Filename: "evidence.jpg", ContentType: "image/jpeg", Data: []byte(data)}
}

var mediaVideo = media.Upload{Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("video bytes")}

func typedInput(description, complaintType, priority string) CreateComplaintInput {
	return CreateComplaintInput{
		Description: description,
		Location:    "Main Street",
		Type:        complaintType,
		Priority:    priority,
		Image:       image(description),
	}
}

// mustCreate files a complaint with a client-supplied classification.
func (f *fixture) mustCreate(t *testing.T, actor models.Actor, complaintType, priority string, score float64) *models.Complaint {
	t.Helper()
	f.classifier.On("FakeDetectionEnabled").Return(false).Maybe()

	in := typedInput("complaint "+primitive.NewObjectID().Hex(), complaintType, priority)
	in.AIScore = &score
	c, err := f.complaints.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return c
}
