package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Complaint statuses. The stored value is a free-form string; these are the ones the
// workflow produces and accepts as transition targets.
const (
	StatusPending    = "pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusRejected   = "Rejected"
)

// Priority levels
const (
	PriorityLow       = "Low"
	PriorityMedium    = "Medium"
	PriorityHigh      = "High"
	PriorityEmergency = "Emergency"
)

// Feedback actions
const (
	FeedbackReopen  = "Reopen"
	FeedbackAccept  = "Accept"
	FeedbackGeneral = "General"
)

// Roles recorded in the activity log and on users
const (
	RoleCitizen   = "Citizen"
	RoleAuthority = "Authority"
	RoleSystem    = "System"
)

// Complaint categories and the departments handling them
const (
	CategoryCleaning    = "Cleaning"
	CategoryElectricity = "Electricity"
	CategoryPublicWorks = "Public Works"
	CategoryWater       = "Water"
	CategoryFire        = "Fire"
	CategoryOthers      = "Others"
)

var departmentByCategory = map[string]string{
	CategoryCleaning:    CategoryCleaning,
	CategoryElectricity: CategoryPublicWorks,
	CategoryPublicWorks: CategoryPublicWorks,
	CategoryWater:       CategoryWater,
	CategoryFire:        CategoryFire,
}

// DepartmentForCategory maps a complaint category to the authority department that owns
// it. Matching is case-insensitive; unknown categories fall to Others.
func DepartmentForCategory(category string) string {
	category = strings.TrimSpace(category)
	for k, dept := range departmentByCategory {
		if strings.EqualFold(k, category) {
			return dept
		}
	}
	return CategoryOthers
}

// Departments lists every department an authority can belong to.
func Departments() []string {
	return []string{CategoryCleaning, CategoryPublicWorks, CategoryWater, CategoryFire, CategoryOthers}
}

// IsValidStatus reports whether status is an accepted transition target.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// NormalizePriority maps free text from the classifier onto the priority enum.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "emergency", "critical":
		return PriorityEmergency
	default:
		return PriorityLow
	}
}

// IsValidPriority reports whether p is one of the priority enum values.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

type Complaint struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ComplaintID string             `bson:"complaintId" json:"complaintId"`

	Description string `bson:"complaintDescription" json:"complaintDescription"`
	Location    string `bson:"complaintLocation" json:"complaintLocation"`
	Image       string `bson:"complaintImage" json:"complaintImage"`
	Video       string `bson:"complaintVideo,omitempty" json:"complaintVideo,omitempty"`
	ImageHash   string `bson:"complaintImageHash,omitempty" json:"complaintImageHash,omitempty"`
	VideoHash   string `bson:"complaintVideoHash,omitempty" json:"complaintVideoHash,omitempty"`

	Type      string  `bson:"complaintType" json:"complaintType"`
	Priority  string  `bson:"complaintPriority" json:"complaintPriority"`
	AIScore   float64 `bson:"complaintAIScore" json:"complaintAIScore"` // 0-100
	Authority string  `bson:"complaintAuthority" json:"complaintAuthority"`

	Status             string `bson:"complaintStatus" json:"complaintStatus"`
	Accepted           bool   `bson:"accepted" json:"accepted"`
	IsEdited           bool   `bson:"isEdited" json:"isEdited"`
	Notes              string `bson:"complaintNotes,omitempty" json:"complaintNotes,omitempty"`
	FeedbackUnread     bool   `bson:"feedbackUnread" json:"feedbackUnread"`
	ResolutionAccepted bool   `bson:"resolutionAccepted" json:"resolutionAccepted"`

	User       primitive.ObjectID  `bson:"complaintUser" json:"complaintUser"`
	ResolvedBy *primitive.ObjectID `bson:"complaintResolvedBy,omitempty" json:"complaintResolvedBy,omitempty"`

	Expenses        []Expense       `bson:"expenses" json:"expenses"`
	FeedbackHistory []FeedbackEntry `bson:"feedbackHistory" json:"feedbackHistory"`
	ActivityLog     []ActivityEntry `bson:"activityLog" json:"activityLog"`

	ComplaintDate time.Time  `bson:"complaintDate" json:"complaintDate"`
	ResolvedDate  *time.Time `bson:"complaintResolvedDate,omitempty" json:"complaintResolvedDate,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`

	Version int64 `bson:"version" json:"version"` // bumped on every write
}

type Expense struct {
	Item string  `bson:"item" json:"item"`
	Cost float64 `bson:"cost" json:"cost"`
}

type FeedbackEntry struct {
	Message string    `bson:"message" json:"message"`
	Action  string    `bson:"action" json:"action"`
	Date    time.Time `bson:"date" json:"date"`
}

type ActivityEntry struct {
	Action          string              `bson:"action" json:"action"`
	PerformedBy     *primitive.ObjectID `bson:"performedBy,omitempty" json:"performedBy,omitempty"`
	PerformedByName string              `bson:"performedByName" json:"performedByName"`
	PerformedByRole string              `bson:"performedByRole" json:"performedByRole"`
	Note            string              `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp       time.Time           `bson:"timestamp" json:"timestamp"`
}

// LatestFeedback returns the most recent feedback entry, if any.
func (c *Complaint) LatestFeedback() *FeedbackEntry {
	if len(c.FeedbackHistory) == 0 {
		return nil
	}
	return &c.FeedbackHistory[len(c.FeedbackHistory)-1]
}

// TotalExpenses sums the recorded expense costs.
func (c *Complaint) TotalExpenses() float64 {
	var total float64
	for _, e := range c.Expenses {
		total += e.Cost
	}
	return total
}

// Clone returns a deep copy so stores never share slices with callers.
func (c *Complaint) Clone() *Complaint {
	out := *c
	out.Expenses = append([]Expense(nil), c.Expenses...)
	out.FeedbackHistory = append([]FeedbackEntry(nil), c.FeedbackHistory...)
	out.ActivityLog = append([]ActivityEntry(nil), c.ActivityLog...)
	if c.ResolvedBy != nil {
		id := *c.ResolvedBy
		out.ResolvedBy = &id
	}
	if c.ResolvedDate != nil {
		d := *c.ResolvedDate
		out.ResolvedDate = &d
	}
	return &out
}

// AuthorityStats is the dashboard aggregate over an authority's visible complaints.
type AuthorityStats struct {
	Total                  int64            `json:"total"`
	Resolved               int64            `json:"resolved"`
	Pending                int64            `json:"pending"`
	InProgress             int64            `json:"inProgress"`
	Rejected               int64            `json:"rejected"`
	Other                  int64            `json:"other"`
	AvgConfidence          float64          `json:"avgConfidence"`
	ConfidenceDistribution map[string]int64 `json:"confidenceDistribution"`
	CategoryStats          map[string]int64 `json:"categoryStats"`
}

// Confidence histogram bucket labels, in display order.
var ConfidenceBuckets = []string{"0-20", "21-40", "41-60", "61-80", "81-100"}

// ConfidenceBucket returns the histogram label for a score in 0..100.
func ConfidenceBucket(score float64) string {
	switch {
	case score <= 20:
		return ConfidenceBuckets[0]
	case score <= 40:
		return ConfidenceBuckets[1]
	case score <= 60:
		return ConfidenceBuckets[2]
	case score <= 80:
		return ConfidenceBuckets[3]
	default:
		return ConfidenceBuckets[4]
	}
}

// LeaderboardEntry ranks citizens by contribution.
type LeaderboardEntry struct {
	UserID             primitive.ObjectID `bson:"_id" json:"_id"`
	UserName           string             `bson:"userName" json:"userName"`
	UserEmail          string             `bson:"userEmail" json:"userEmail"`
	TotalComplaints    int64              `bson:"totalComplaints" json:"totalComplaints"`
	ResolvedComplaints int64              `bson:"resolvedComplaints" json:"resolvedComplaints"`
	ImpactPoints       int64              `bson:"impactPoints" json:"impactPoints"`
}

// ImpactPoints scores a citizen: 10 per complaint plus 50 per resolved complaint.
func ImpactPoints(total, resolved int64) int64 {
	return total*10 + resolved*50
}

// UserStats summarises a single citizen's complaints.
type UserStats struct {
	TotalComplaints int64 `bson:"totalComplaints" json:"totalComplaints"`
	Resolved        int64 `bson:"resolved" json:"resolved"`
	Pending         int64 `bson:"pending" json:"pending"`
	InProgress      int64 `bson:"inProgress" json:"inProgress"`
	Rejected        int64 `bson:"rejected" json:"rejected"`
	ImpactPoints    int64 `bson:"-" json:"impactPoints"`
}
