package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryDB keeps every collection in maps guarded by one lock.
// Intended for tests and demos; nothing survives a restart.
type memoryDB struct {
	mu            sync.RWMutex
	seq           int64
	complaints    map[primitive.ObjectID]*memoryRow[models.Complaint]
	notifications map[primitive.ObjectID]*memoryRow[models.Notification]
	users         map[primitive.ObjectID]*models.User
	posts         []models.CommunityPost
	notes         map[primitive.ObjectID]*models.Note
}

// memoryRow remembers insertion order so equal timestamps still sort deterministically.
type memoryRow[T any] struct {
	seq int64
	doc *T
}

// NewMemory returns a Store backed by process memory.
func NewMemory() *Store {
	db := &memoryDB{
		complaints:    make(map[primitive.ObjectID]*memoryRow[models.Complaint]),
		notifications: make(map[primitive.ObjectID]*memoryRow[models.Notification]),
		users:         make(map[primitive.ObjectID]*models.User),
		notes:         make(map[primitive.ObjectID]*models.Note),
	}
	return &Store{
		Complaints:    &memoryComplaints{db},
		Notifications: &memoryNotifications{db},
		Users:         &memoryUsers{db},
		Posts:         &memoryPosts{db},
		Notes:         &memoryNotes{db},
	}
}

func (db *memoryDB) next() int64 {
	db.seq++
	return db.seq
}

// ===== Complaints =====

type memoryComplaints struct{ db *memoryDB }

func (s *memoryComplaints) Insert(_ context.Context, c *models.Complaint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, row := range s.db.complaints {
		if row.doc.ComplaintID == c.ComplaintID {
			return ErrDuplicateKey
		}
	}

	c.ID = primitive.NewObjectID()
	c.Version = 1
	s.db.complaints[c.ID] = &memoryRow[models.Complaint]{seq: s.db.next(), doc: c.Clone()}
	return nil
}

func (s *memoryComplaints) find(id string) *memoryRow[models.Complaint] {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		if row, ok := s.db.complaints[oid]; ok {
			return row
		}
	}
	for _, row := range s.db.complaints {
		if row.doc.ComplaintID == id {
			return row
		}
	}
	return nil
}

func (s *memoryComplaints) Get(_ context.Context, id string) (*models.Complaint, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row := s.find(id)
	if row == nil {
		return nil, domain.NotFound("complaint")
	}
	return row.doc.Clone(), nil
}

func (s *memoryComplaints) Update(_ context.Context, c *models.Complaint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	row, ok := s.db.complaints[c.ID]
	if !ok {
		return domain.NotFound("complaint")
	}
	if row.doc.Version != c.Version {
		return domain.ErrConflict
	}

	c.Version++
	row.doc = c.Clone()
	return nil
}

func (s *memoryComplaints) matching(f ComplaintFilter) []*memoryRow[models.Complaint] {
	var rows []*memoryRow[models.Complaint]
	for _, row := range s.db.complaints {
		c := row.doc
		if f.UserID != nil && c.User != *f.UserID {
			continue
		}
		if f.Department != "" && c.Authority != f.Department {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func newerFirst[T any](rows []*memoryRow[T], created func(*T) time.Time) func(i, j int) bool {
	return func(i, j int) bool {
		ti, tj := created(rows[i].doc), created(rows[j].doc)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return rows[i].seq > rows[j].seq
	}
}

func (s *memoryComplaints) List(_ context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows := s.matching(f)
	byCreated := newerFirst(rows, func(c *models.Complaint) time.Time { return c.CreatedAt })

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].doc, rows[j].doc
		switch f.SortBy {
		case SortAIPriority:
			if a.AIScore != b.AIScore {
				return a.AIScore > b.AIScore
			}
		case SortResolvedDate:
			ra, rb := resolvedAt(a), resolvedAt(b)
			if !ra.Equal(rb) {
				return ra.After(rb)
			}
		}
		return byCreated(i, j)
	})

	if f.Limit > 0 && int64(len(rows)) > f.Limit {
		rows = rows[:f.Limit]
	}

	out := make([]models.Complaint, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.doc.Clone())
	}
	return out, nil
}

func resolvedAt(c *models.Complaint) time.Time {
	if c.ResolvedDate == nil {
		return time.Time{}
	}
	return *c.ResolvedDate
}

func (s *memoryComplaints) Stats(_ context.Context, f ComplaintFilter) (*models.AuthorityStats, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	acc := newStatsAccumulator()
	for _, row := range s.matching(f) {
		c := row.doc
		acc.addStatus(c.Status, 1)
		acc.addCategory(c.Type, 1)
		if c.AIScore > 0 {
			acc.addScores(models.ConfidenceBucket(c.AIScore), 1, c.AIScore)
		}
	}
	return acc.result(), nil
}

func (s *memoryComplaints) UserStats(_ context.Context, userID primitive.ObjectID) (*models.UserStats, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	stats := &models.UserStats{}
	for _, row := range s.matching(ComplaintFilter{UserID: &userID}) {
		stats.TotalComplaints++
		switch row.doc.Status {
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusRejected:
			stats.Rejected++
		}
	}
	stats.ImpactPoints = models.ImpactPoints(stats.TotalComplaints, stats.Resolved)
	return stats, nil
}

func (s *memoryComplaints) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	byUser := make(map[primitive.ObjectID]*models.LeaderboardEntry)
	for _, row := range s.db.complaints {
		u, ok := s.db.users[row.doc.User]
		if !ok {
			continue
		}
		e, ok := byUser[u.ID]
		if !ok {
			e = &models.LeaderboardEntry{UserID: u.ID, UserName: u.UserName, UserEmail: u.UserEmail}
			byUser[u.ID] = e
		}
		e.TotalComplaints++
		if row.doc.Status == models.StatusResolved {
			e.ResolvedComplaints++
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		e.ImpactPoints = models.ImpactPoints(e.TotalComplaints, e.ResolvedComplaints)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ImpactPoints != entries[j].ImpactPoints {
			return entries[i].ImpactPoints > entries[j].ImpactPoints
		}
		if entries[i].TotalComplaints != entries[j].TotalComplaints {
			return entries[i].TotalComplaints > entries[j].TotalComplaints
		}
		return entries[i].UserID.Hex() < entries[j].UserID.Hex()
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *memoryComplaints) ExistsByMediaHash(_ context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, row := range s.db.complaints {
		if row.doc.ImageHash == hash || row.doc.VideoHash == hash {
			return true, nil
		}
	}
	return false, nil
}

// ===== Notifications =====

type memoryNotifications struct{ db *memoryDB }

func (s *memoryNotifications) Insert(_ context.Context, n *models.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	n.ID = primitive.NewObjectID()
	cp := *n
	s.db.notifications[n.ID] = &memoryRow[models.Notification]{seq: s.db.next(), doc: &cp}
	return nil
}

func (s *memoryNotifications) Get(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row, ok := s.db.notifications[id]
	if !ok {
		return nil, domain.NotFound("notification")
	}
	cp := *row.doc
	return &cp, nil
}

func (s *memoryNotifications) ListFor(_ context.Context, userID primitive.ObjectID, role string, limit int64) ([]models.Notification, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var rows []*memoryRow[models.Notification]
	for _, row := range s.db.notifications {
		n := row.doc
		if n.UserID != nil {
			if *n.UserID == userID {
				rows = append(rows, row)
			}
			continue
		}
		if role != "" && n.RecipientRole == role {
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, newerFirst(rows, func(n *models.Notification) time.Time { return n.CreatedAt }))
	if limit > 0 && int64(len(rows)) > limit {
		rows = rows[:limit]
	}

	out := make([]models.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.doc)
	}
	return out, nil
}

func (s *memoryNotifications) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int64
	for _, row := range s.db.notifications {
		if row.doc.UserID != nil && *row.doc.UserID == userID && !row.doc.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *memoryNotifications) MarkRead(_ context.Context, id primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	row, ok := s.db.notifications[id]
	if !ok {
		return domain.NotFound("notification")
	}
	row.doc.IsRead = true
	row.doc.UpdatedAt = time.Now()
	return nil
}

// ===== Users =====

type memoryUsers struct{ db *memoryDB }

func (s *memoryUsers) Insert(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.users {
		if strings.EqualFold(existing.UserEmail, u.UserEmail) {
			return ErrDuplicateKey
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	s.db.users[u.ID] = &cp
	return nil
}

func (s *memoryUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (s *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, u := range s.db.users {
		if strings.EqualFold(u.UserEmail, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (s *memoryUsers) UpdateLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if u, ok := s.db.users[id]; ok {
		u.LastLogin = &at
		u.UpdatedAt = at
	}
	return nil
}

// ===== Community posts =====

type memoryPosts struct{ db *memoryDB }

func (s *memoryPosts) Insert(_ context.Context, p *models.CommunityPost) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p.ID = primitive.NewObjectID()
	s.db.posts = append(s.db.posts, *p)
	return nil
}

func (s *memoryPosts) List(_ context.Context, limit int64) ([]models.CommunityPost, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.CommunityPost, 0, len(s.db.posts))
	for i := len(s.db.posts) - 1; i >= 0; i-- {
		out = append(out, s.db.posts[i])
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// ===== Notes =====

type memoryNotes struct{ db *memoryDB }

func (s *memoryNotes) Insert(_ context.Context, n *models.Note) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	n.ID = primitive.NewObjectID()
	cp := *n
	s.db.notes[n.ID] = &cp
	return nil
}

func (s *memoryNotes) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Note, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]models.Note, 0)
	for _, n := range s.db.notes {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memoryNotes) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	n, ok := s.db.notes[id]
	if !ok || n.UserID != userID {
		return domain.NotFound("note")
	}
	delete(s.db.notes, id)
	return nil
}
