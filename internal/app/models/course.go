package models

import "time"

// Course is a class that students can join and post in.
type Course struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Tag         string    `json:"tag" db:"tag"`
	MemberCount int       `json:"memberCount" db:"member_count"` // denormalised, maintained with memberships
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// RequestStatus is the lifecycle state of a CourseRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsValid reports whether s is a known status
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// CourseRequest is a visitor submitted proposal for a new course.
// pending -> approved | rejected, both terminal.
type CourseRequest struct {
	ID          int64         `json:"id" db:"id"`
	ClassName   string        `json:"className" db:"class_name"`
	ClassTag    string        `json:"classTag" db:"class_tag"`
	Description *string       `json:"description,omitempty" db:"description"`
	Status      RequestStatus `json:"status" db:"status"`
	CourseID    *int64        `json:"courseId,omitempty" db:"course_id"` // set on approval
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	ResolvedAt  *time.Time    `json:"resolvedAt,omitempty" db:"resolved_at"`
}

// Membership links an actor to a course.
type Membership struct {
	ID       int64     `json:"id" db:"id"`
	ActorID  string    `json:"actorId" db:"actor_id"`
	CourseID int64     `json:"courseId" db:"course_id"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}
