package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"civicconnect/internal/classifier"
	"civicconnect/internal/domain"
	"civicconnect/internal/media"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"
	"civicconnect/pkg/logger"

	"github.com/google/uuid"
)

const (
	opTimeout = 10 * time.Second

	complaintIDAttempts   = 5
	defaultAcceptFeedback = "Resolution accepted by citizen."
)

// Classifier is the subset of the ML gateway the complaint workflow uses.
type Classifier interface {
	Classify(ctx context.Context, text string) (*classifier.Classification, error)
	Caption(ctx context.Context, filename string, image io.Reader) (string, error)
	AnalyzeVideo(ctx context.Context, filename string, video io.Reader) (string, error)
	DetectFakeImage(ctx context.Context, filename string, image io.Reader) (*classifier.FakeReport, error)
	DetectFakeVideo(ctx context.Context, filename string, video io.Reader) (*classifier.FakeReport, error)
	FakeDetectionEnabled() bool
}

// MediaStore keeps complaint evidence.
type MediaStore interface {
	Save(kind string, u media.Upload) (*media.Saved, error)
	Remove(saved *media.Saved) error
}

// ComplaintOptions tune create-time checks.
type ComplaintOptions struct {
	RejectDuplicateMedia bool
	FakeThreshold        float64
}

type ComplaintService struct {
	complaints store.ComplaintStore
	classifier Classifier
	media      MediaStore
	notifier   *NotificationService
	publisher  Publisher
	opts       ComplaintOptions
}

func NewComplaintService(complaints store.ComplaintStore, cls Classifier, mediaStore MediaStore, notifier *NotificationService, publisher Publisher, opts ComplaintOptions) *ComplaintService {
	return &ComplaintService{
		complaints: complaints,
		classifier: cls,
		media:      mediaStore,
		notifier:   notifier,
		publisher:  publisher,
		opts:       opts,
	}
}

// Request types

type CreateComplaintInput struct {
	Description string        `json:"complaintDescription" validate:"required,max=5000"`
	Location    string        `json:"complaintLocation" validate:"required,max=500"`
	Type        string        `json:"complaintType"`
	Priority    string        `json:"complaintPriority"`
	AIScore     *float64      `json:"complaintAIScore" validate:"omitempty,gte=0,lte=100"`
	Image       *media.Upload `json:"complaintImage" validate:"required"`
	Video       *media.Upload `json:"complaintVideo"`
}

// EditComplaintInput is a partial update; nil fields are left untouched.
type EditComplaintInput struct {
	Description *string `json:"complaintDescription" validate:"omitempty,max=5000"`
	Location    *string `json:"complaintLocation" validate:"omitempty,max=500"`
	Type        *string `json:"complaintType"`
	Priority    *string `json:"complaintPriority" validate:"omitempty,priority"`
}

// normalize trims the text fields and rejects a patch that is empty or blanks a
// required field.
func (p *EditComplaintInput) normalize() error {
	if p.Description == nil && p.Location == nil && p.Type == nil && p.Priority == nil {
		return domain.NewValidationError("complaint", "At least one field must be provided")
	}

	fields := []struct {
		name  string
		value **string
	}{
		{"complaintDescription", &p.Description},
		{"complaintLocation", &p.Location},
		{"complaintType", &p.Type},
	}
	var errs []domain.FieldError
	for _, f := range fields {
		if *f.value == nil {
			continue
		}
		trimmed := strings.TrimSpace(**f.value)
		if trimmed == "" {
			errs = append(errs, domain.FieldError{Field: f.name, Message: "This field is required"})
			continue
		}
		*f.value = &trimmed
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

type ExpenseInput struct {
	Item string  `json:"item" validate:"required"`
	Cost float64 `json:"cost" validate:"gte=0"`
}

type TransitionInput struct {
	Status string `json:"status" validate:"required,complaint_status"`
	Note   string `json:"note" validate:"max=2000"`
	// Expenses is nil when the caller did not send the field.
	Expenses []ExpenseInput `json:"expenses" validate:"omitempty,dive"`
}

type FeedbackInput struct {
	Message string `json:"message" validate:"max=2000"`
	Action  string `json:"action" validate:"omitempty,feedback_action"`
}

// Create files a new complaint for actor.
func (s *ComplaintService) Create(ctx context.Context, actor models.Actor, in CreateComplaintInput) (*models.Complaint, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if in.Image != nil && len(in.Image.Data) == 0 {
		in.Image = nil
	}
	if in.Video != nil && len(in.Video.Data) == 0 {
		in.Video = nil
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	imageHash := media.Hash(in.Image.Data)
	var videoHash string
	if in.Video != nil {
		videoHash = media.Hash(in.Video.Data)
	}

	if s.opts.RejectDuplicateMedia {
		if err := s.checkDuplicate(ctx, "complaintImage", imageHash); err != nil {
			return nil, err
		}
		if videoHash != "" {
			if err := s.checkDuplicate(ctx, "complaintVideo", videoHash); err != nil {
				return nil, err
			}
		}
	}

	if err := s.checkFake(ctx, in); err != nil {
		return nil, err
	}

	category, priority, score := s.classify(ctx, in)

	now := time.Now()
	c := &models.Complaint{
		Description:     in.Description,
		Location:        in.Location,
		ImageHash:       imageHash,
		VideoHash:       videoHash,
		Type:            category,
		Priority:        priority,
		AIScore:         score,
		Authority:       models.DepartmentForCategory(category),
		Status:          models.StatusPending,
		User:            actor.ID,
		Expenses:        []models.Expense{},
		FeedbackHistory: []models.FeedbackEntry{},
		ActivityLog: []models.ActivityEntry{
			activity("Created", actor, models.RoleCitizen, "", now),
		},
		ComplaintDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	saved, err := s.saveMedia(in)
	if err != nil {
		return nil, err
	}
	for _, m := range saved {
		switch m.kind {
		case media.KindImage:
			c.Image = m.URL
		case media.KindVideo:
			c.Video = m.URL
		}
	}

	if err := s.insertWithID(ctx, c); err != nil {
		s.removeMedia(saved)
		return nil, err
	}

	logger.LogComplaintEvent("created", c.ComplaintID, actor.ID.Hex(), map[string]interface{}{
		"type":      c.Type,
		"priority":  c.Priority,
		"authority": c.Authority,
		"ai_score":  c.AIScore,
	})

	s.announce(ctx, c)
	return c, nil
}

func (s *ComplaintService) checkDuplicate(ctx context.Context, field, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	exists, err := s.complaints.ExistsByMediaHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("check duplicate media: %w", err)
	}
	if exists {
		return domain.NewValidationError(field, "This file has already been reported in another complaint")
	}
	return nil
}

// checkFake rejects media the detector flags above the threshold. The detector is
// fail-open: any error lets the complaint through.
func (s *ComplaintService) checkFake(ctx context.Context, in CreateComplaintInput) error {
	if s.classifier == nil || !s.classifier.FakeDetectionEnabled() {
		return nil
	}

	report, err := s.classifier.DetectFakeImage(ctx, in.Image.Filename, bytes.NewReader(in.Image.Data))
	if err != nil {
		logger.WithError(err).Warn("Fake image detection skipped")
	} else if s.isFake(report) {
		return domain.NewValidationError("complaintImage", fmt.Sprintf("The image appears to be manipulated (score %.2f)", report.Score))
	}

	if in.Video == nil {
		return nil
	}
	report, err = s.classifier.DetectFakeVideo(ctx, in.Video.Filename, bytes.NewReader(in.Video.Data))
	if err != nil {
		logger.WithError(err).Warn("Fake video detection skipped")
	} else if s.isFake(report) {
		return domain.NewValidationError("complaintVideo", fmt.Sprintf("The video appears to be manipulated (score %.2f)", report.Score))
	}
	return nil
}

func (s *ComplaintService) isFake(r *classifier.FakeReport) bool {
	return r != nil && r.IsFake && r.Score >= s.opts.FakeThreshold
}

// classify returns category, priority and score. A client-supplied type wins; otherwise
// the text classifier is asked and its absence degrades to Low / Others / 0.
func (s *ComplaintService) classify(ctx context.Context, in CreateComplaintInput) (string, string, float64) {
	if t := strings.TrimSpace(in.Type); t != "" {
		var score float64
		if in.AIScore != nil {
			score = *in.AIScore
		}
		return t, models.NormalizePriority(in.Priority), score
	}

	if s.classifier == nil {
		return models.CategoryOthers, models.PriorityLow, 0
	}
	result, err := s.classifier.Classify(ctx, in.Description)
	if err != nil {
		logger.WithError(err).Warn("Classification unavailable, using defaults")
		return models.CategoryOthers, models.PriorityLow, 0
	}

	category := strings.TrimSpace(result.Department)
	if category == "" {
		category = models.CategoryOthers
	}
	return category, models.NormalizePriority(result.Priority), result.Confidence
}

type savedMedia struct {
	kind string
	*media.Saved
}

func (s *ComplaintService) saveMedia(in CreateComplaintInput) ([]savedMedia, error) {
	uploads := []struct {
		kind   string
		upload *media.Upload
	}{
		{media.KindImage, in.Image},
		{media.KindVideo, in.Video},
	}

	var out []savedMedia
	for _, u := range uploads {
		if u.upload == nil {
			continue
		}
		saved, err := s.media.Save(u.kind, *u.upload)
		if err != nil {
			s.removeMedia(out)
			return nil, fmt.Errorf("store %s: %w", u.kind, err)
		}
		out = append(out, savedMedia{kind: u.kind, Saved: saved})
	}
	return out, nil
}

func (s *ComplaintService) removeMedia(saved []savedMedia) {
	for _, m := range saved {
		if err := s.media.Remove(m.Saved); err != nil {
			logger.WithError(err).WithField("path", m.Path).Warn("Failed to remove orphaned media")
		}
	}
}

// insertWithID assigns a public complaint id, retrying on collisions.
func (s *ComplaintService) insertWithID(ctx context.Context, c *models.Complaint) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	for attempt := 0; attempt < complaintIDAttempts; attempt++ {
		c.ComplaintID = newComplaintID()
		err := s.complaints.Insert(ctx, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("insert complaint: %w", err)
		}
		logger.WithField("complaint_id", c.ComplaintID).Warn("Complaint id collision, retrying")
	}
	return fmt.Errorf("insert complaint: no free id after %d attempts: %w", complaintIDAttempts, store.ErrDuplicateKey)
}

func newComplaintID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CMP-" + strings.ToUpper(raw[:8])
}

// announce notifies authorities about a new complaint. Failures are logged only.
func (s *ComplaintService) announce(ctx context.Context, c *models.Complaint) {
	notificationType := models.NotificationInfo
	if c.Priority == models.PriorityEmergency {
		notificationType = models.NotificationEmergency
	}

	message := fmt.Sprintf("New complaint %s (%s priority) in %s: %s", c.ComplaintID, c.Priority, c.Authority, complaintTitle(c.Description))
	s.notify(ctx, models.ToRole(models.RoleAuthority), message, notificationType, complaintLink(c))

	if c.Priority == models.PriorityEmergency && s.publisher != nil {
		s.publisher.EmitToRole(models.RoleAuthority, websocket.EventNewEmergencyComplaint, c)
	}
}

func (s *ComplaintService) notify(ctx context.Context, target models.NotificationTarget, message, notificationType, link string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, target, message, notificationType, link); err != nil {
		logger.LogError(err, "complaint notification", map[string]interface{}{"link": link})
	}
}

// complaintTitle extracts a short title. Descriptions composed by the web client start
// with a bold "**Title**" line.
func complaintTitle(description string) string {
	d := strings.TrimSpace(description)
	if strings.HasPrefix(d, "**") {
		if end := strings.Index(d[2:], "**"); end > 0 {
			return strings.TrimSpace(d[2 : 2+end])
		}
	}
	if line, _, ok := strings.Cut(d, "\n"); ok {
		d = line
	}
	runes := []rune(d)
	if len(runes) > 60 {
		return string(runes[:60]) + "..."
	}
	return d
}

func complaintLink(c *models.Complaint) string {
	return "/complaint/" + c.ComplaintID
}

func activity(action string, actor models.Actor, role, note string, at time.Time) models.ActivityEntry {
	entry := models.ActivityEntry{
		Action:          action,
		PerformedByName: actor.Name,
		PerformedByRole: role,
		Note:            note,
		Timestamp:       at,
	}
	if !actor.ID.IsZero() {
		id := actor.ID
		entry.PerformedBy = &id
	}
	return entry
}

// Edit applies a patch to a pending complaint owned by actor.
func (s *ComplaintService) Edit(ctx context.Context, actor models.Actor, id string, patch EditComplaintInput) (*models.Complaint, error) {
	if err := patch.normalize(); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.User != actor.ID {
		return nil, domain.Forbidden("only the owner can edit a complaint")
	}
	if c.Status != models.StatusPending {
		return nil, domain.Forbidden("only pending complaints can be edited")
	}

	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Location != nil {
		c.Location = *patch.Location
	}
	if patch.Type != nil {
		c.Type = *patch.Type
		c.Authority = models.DepartmentForCategory(c.Type)
	}
	if patch.Priority != nil {
		c.Priority = *patch.Priority
	}

	now := time.Now()
	c.IsEdited = true
	c.UpdatedAt = now
	c.ActivityLog = append(c.ActivityLog, activity("Edited", actor, models.RoleCitizen, "", now))

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	logger.LogComplaintEvent("edited", c.ComplaintID, actor.ID.Hex(), nil)
	return c, nil
}

// trimExpenses keeps a nil list nil so an absent field stays distinguishable from an
// empty one.
func trimExpenses(in []ExpenseInput) []ExpenseInput {
	if in == nil {
		return nil
	}
	out := make([]ExpenseInput, len(in))
	for i, e := range in {
		out[i] = ExpenseInput{Item: strings.TrimSpace(e.Item), Cost: e.Cost}
	}
	return out
}

// TransitionStatus moves a complaint to a new status on behalf of an authority.
func (s *ComplaintService) TransitionStatus(ctx context.Context, actor models.Actor, id string, in TransitionInput) (*models.Complaint, error) {
	if !actor.IsAuthority() {
		return nil, domain.Forbidden("only authorities can change complaint status")
	}
	in.Expenses = trimExpenses(in.Expenses)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Expenses) > 0 && in.Status != models.StatusResolved {
		return nil, domain.NewValidationError("expenses", "Expenses can only be recorded when resolving")
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Department != "" && c.Authority != actor.Department {
		return nil, domain.Forbidden("complaint belongs to another department")
	}

	now := time.Now()
	if in.Status == models.StatusResolved {
		if in.Expenses != nil {
			c.Expenses = make([]models.Expense, 0, len(in.Expenses))
			for _, e := range in.Expenses {
				c.Expenses = append(c.Expenses, models.Expense{Item: e.Item, Cost: e.Cost})
			}
		}
		if c.ResolvedDate == nil {
			c.ResolvedDate = &now
		}
		resolver := actor.ID
		c.ResolvedBy = &resolver
	}

	c.Status = in.Status
	c.Accepted = in.Status == models.StatusInProgress || in.Status == models.StatusResolved
	c.Notes = in.Note
	c.FeedbackUnread = false
	c.UpdatedAt = now
	c.ActivityLog = append(c.ActivityLog, activity("Status changed to "+in.Status, actor, models.RoleAuthority, in.Note, now))

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	logger.LogComplaintEvent("status_changed", c.ComplaintID, actor.ID.Hex(), map[string]interface{}{
		"status":   c.Status,
		"expenses": len(c.Expenses),
	})

	notificationType := models.NotificationInfo
	switch in.Status {
	case models.StatusResolved:
		notificationType = models.NotificationSuccess
	case models.StatusRejected:
		notificationType = models.NotificationWarning
	}
	message := fmt.Sprintf("Your complaint %s is now %s", c.ComplaintID, in.Status)
	if in.Note != "" {
		message += ": " + in.Note
	}
	s.notify(ctx, models.ToUser(c.User), message, notificationType, complaintLink(c))

	return c, nil
}

// AddFeedback records the owner's reaction to a resolution.
func (s *ComplaintService) AddFeedback(ctx context.Context, actor models.Actor, id string, in FeedbackInput) (*models.Complaint, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.User != actor.ID {
		return nil, domain.Forbidden("only the owner can give feedback")
	}
	if c.Status != models.StatusResolved {
		return nil, domain.NewValidationError("complaintStatus", "Feedback is only accepted on resolved complaints")
	}

	message := strings.TrimSpace(in.Message)
	action := in.Action
	if action == "" {
		action = models.FeedbackGeneral
		if message != "" {
			action = models.FeedbackReopen
		}
	}
	if action == models.FeedbackAccept && message == "" {
		message = defaultAcceptFeedback
	}

	now := time.Now()
	c.FeedbackHistory = append(c.FeedbackHistory, models.FeedbackEntry{Message: message, Action: action, Date: now})
	c.FeedbackUnread = true
	switch action {
	case models.FeedbackAccept:
		c.ResolutionAccepted = true
	case models.FeedbackReopen:
		c.ResolutionAccepted = false
	}
	c.UpdatedAt = now
	c.ActivityLog = append(c.ActivityLog, activity("Feedback: "+action, actor, models.RoleCitizen, message, now))

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	logger.LogComplaintEvent("feedback", c.ComplaintID, actor.ID.Hex(), map[string]interface{}{"action": action})

	target := models.ToRole(models.RoleAuthority)
	if c.ResolvedBy != nil {
		target = models.ToUser(*c.ResolvedBy)
	}
	var text string
	switch action {
	case models.FeedbackReopen:
		text = fmt.Sprintf("Citizen asked to reopen complaint %s: %s", c.ComplaintID, message)
	case models.FeedbackAccept:
		text = fmt.Sprintf("Citizen accepted the resolution of complaint %s", c.ComplaintID)
	default:
		text = fmt.Sprintf("New feedback on complaint %s", c.ComplaintID)
	}
	s.notify(ctx, target, text, models.NotificationWarning, complaintLink(c))

	return c, nil
}

// AuthorityComplaints lists the complaints of the actor's department.
func (s *ComplaintService) AuthorityComplaints(ctx context.Context, actor models.Actor, sortBy string) ([]models.Complaint, error) {
	if !actor.IsAuthority() {
		return nil, domain.Forbidden("authority role required")
	}

	f := store.ComplaintFilter{Department: actor.Department, SortBy: store.SortNewest}
	if sortBy == store.SortAIPriority {
		f.SortBy = store.SortAIPriority
	}
	return s.list(ctx, f)
}

// AuthorityStats returns the dashboard aggregate for the actor's department.
func (s *ComplaintService) AuthorityStats(ctx context.Context, actor models.Actor) (*models.AuthorityStats, error) {
	if !actor.IsAuthority() {
		return nil, domain.Forbidden("authority role required")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	start := time.Now()
	stats, err := s.complaints.Stats(ctx, store.ComplaintFilter{Department: actor.Department})
	if err != nil {
		return nil, fmt.Errorf("authority stats: %w", err)
	}
	logger.LogPerformance("authority_stats", time.Since(start), map[string]interface{}{"department": actor.Department})
	return stats, nil
}

// UserContributions lists the actor's own complaints, newest first.
func (s *ComplaintService) UserContributions(ctx context.Context, actor models.Actor) ([]models.Complaint, error) {
	uid := actor.ID
	return s.list(ctx, store.ComplaintFilter{UserID: &uid, SortBy: store.SortNewest})
}

// ResolvedGlobal lists every resolved complaint, newest resolution first.
func (s *ComplaintService) ResolvedGlobal(ctx context.Context) ([]models.Complaint, error) {
	return s.list(ctx, store.ComplaintFilter{Status: models.StatusResolved, SortBy: store.SortResolvedDate})
}

// Get returns one complaint to its owner or to any authority.
func (s *ComplaintService) Get(ctx context.Context, actor models.Actor, id string) (*models.Complaint, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.User != actor.ID && !actor.IsAuthority() {
		return nil, domain.Forbidden("complaint belongs to another user")
	}
	return c, nil
}

// Passthroughs have no fallback; unavailability reaches the caller.

func (s *ComplaintService) Predict(ctx context.Context, text string) (*classifier.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "This field is required")
	}
	if s.classifier == nil {
		return nil, domain.ErrClassificationUnavailable
	}
	return s.classifier.Classify(ctx, text)
}

func (s *ComplaintService) Caption(ctx context.Context, image *media.Upload) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", domain.NewValidationError("image", "This field is required")
	}
	if s.classifier == nil {
		return "", domain.ErrClassificationUnavailable
	}
	return s.classifier.Caption(ctx, image.Filename, bytes.NewReader(image.Data))
}

func (s *ComplaintService) AnalyzeVideo(ctx context.Context, video *media.Upload) (string, error) {
	if video == nil || len(video.Data) == 0 {
		return "", domain.NewValidationError("video", "This field is required")
	}
	if s.classifier == nil {
		return "", domain.ErrClassificationUnavailable
	}
	return s.classifier.AnalyzeVideo(ctx, video.Filename, bytes.NewReader(video.Data))
}

// Persistence helpers

func (s *ComplaintService) load(ctx context.Context, id string) (*models.Complaint, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	c, err := s.complaints.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load complaint %s: %w", id, err)
	}
	return c, nil
}

// save writes c guarded by its version; a concurrent writer yields domain.ErrConflict.
func (s *ComplaintService) save(ctx context.Context, c *models.Complaint) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.complaints.Update(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update complaint %s: %w", c.ComplaintID, err)
	}
	return nil
}

func (s *ComplaintService) list(ctx context.Context, f store.ComplaintFilter) ([]models.Complaint, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, err := s.complaints.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	if items == nil {
		items = []models.Complaint{}
	}
	return items, nil
}
