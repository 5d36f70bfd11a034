package domain

import "time"

// IssueCategory classifies a reported problem.
type IssueCategory string

const (
	CategoryRoad           IssueCategory = "road"
	CategoryLighting       IssueCategory = "lighting"
	CategoryGarbage        IssueCategory = "garbage"
	CategoryInfrastructure IssueCategory = "infrastructure"
	CategoryOther          IssueCategory = "other"
)

// Valid reports whether c is a known category.
func (c IssueCategory) Valid() bool {
	switch c {
	case CategoryRoad, CategoryLighting, CategoryGarbage, CategoryInfrastructure, CategoryOther:
		return true
	}
	return false
}

// IssueStatus is the triage state of a report.
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusAnalyzing  IssueStatus = "analyzing"
	StatusInProgress IssueStatus = "inProgress"
	StatusResolved   IssueStatus = "resolved"
)

// Valid reports whether s is a known status. Staff may move a report to any
// valid status, including back to pending.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Location is where the problem was observed.
type Location struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Address   string  `json:"address,omitempty" bson:"address,omitempty"`
}

// StatusChange records a single status transition on an issue.
type StatusChange struct {
	Status    IssueStatus `json:"status" bson:"status"`
	ChangedBy string      `json:"changed_by" bson:"changed_by"`
	Note      string      `json:"note,omitempty" bson:"note,omitempty"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// Issue is a citizen report of an urban problem.
type Issue struct {
	ID            string         `json:"id" bson:"_id"`
	Title         string         `json:"title" bson:"title"`
	Description   string         `json:"description" bson:"description"`
	Category      IssueCategory  `json:"category" bson:"category"`
	Status        IssueStatus    `json:"status" bson:"status"`
	Location      Location       `json:"location" bson:"location"`
	Images        []string       `json:"images" bson:"images"`
	UserID        string         `json:"user_id" bson:"user_id"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
	StatusHistory []StatusChange `json:"status_history,omitempty" bson:"status_history"`
}

// IssueEvent is an audit record of a status change, written asynchronously.
type IssueEvent struct {
	IssueID   string
	Status    IssueStatus
	ChangedBy string
	Note      string
	Timestamp time.Time
}
