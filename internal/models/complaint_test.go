package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDepartmentForCategory(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"Cleaning", "Cleaning"},
		{"Electricity", "Public Works"},
		{"Public Works", "Public Works"},
		{"public works", "Public Works"},
		{"Water", "Water"},
		{" Fire ", "Fire"},
		{"Roads", "Others"},
		{"", "Others"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, DepartmentForCategory(tt.category))
		})
	}
}

func TestDepartments_CoverEveryMapping(t *testing.T) {
	depts := Departments()
	for category := range departmentByCategory {
		assert.Contains(t, depts, DepartmentForCategory(category))
	}
	assert.Contains(t, depts, CategoryOthers)
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, NormalizePriority("HIGH"))
	assert.Equal(t, PriorityMedium, NormalizePriority(" medium "))
	assert.Equal(t, PriorityEmergency, NormalizePriority("emergency"))
	assert.Equal(t, PriorityLow, NormalizePriority("whatever"))
	assert.Equal(t, PriorityLow, NormalizePriority(""))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusInProgress, StatusResolved, StatusRejected} {
		assert.True(t, IsValidStatus(s), s)
	}
	assert.False(t, IsValidStatus("Closed"))
	assert.False(t, IsValidStatus("resolved"))
}

func TestConfidenceBucket(t *testing.T) {
	assert.Equal(t, "0-20", ConfidenceBucket(0.5))
	assert.Equal(t, "0-20", ConfidenceBucket(20))
	assert.Equal(t, "21-40", ConfidenceBucket(20.1))
	assert.Equal(t, "61-80", ConfidenceBucket(80))
	assert.Equal(t, "81-100", ConfidenceBucket(100))
}

func TestComplaint_CloneIsDeep(t *testing.T) {
	resolver := primitive.NewObjectID()
	now := time.Now()
	c := &Complaint{
		Expenses:     []Expense{{Item: "Pipe", Cost: 500}},
		ActivityLog:  []ActivityEntry{{Action: "Created"}},
		ResolvedBy:   &resolver,
		ResolvedDate: &now,
	}

	cp := c.Clone()
	cp.Expenses[0].Cost = 1
	cp.ActivityLog = append(cp.ActivityLog, ActivityEntry{Action: "Edited"})
	*cp.ResolvedBy = primitive.NilObjectID

	assert.Equal(t, 500.0, c.Expenses[0].Cost)
	assert.Len(t, c.ActivityLog, 1)
	assert.Equal(t, resolver, *c.ResolvedBy)
	assert.Equal(t, 500.0, c.TotalExpenses())
}

func TestImpactPoints(t *testing.T) {
	assert.Equal(t, int64(0), ImpactPoints(0, 0))
	assert.Equal(t, int64(130), ImpactPoints(3, 2))
}
