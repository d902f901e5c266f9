package dto

import (
	"time"

	"github.com/bearshare/backend/internal/app/models"
)

// CourseResponse represents a course
type CourseResponse struct {
	ID          int64     `json:"id" example:"1"`
	Name        string    `json:"name" example:"CSE 240 - Discrete Math"`
	Tag         string    `json:"tag" example:"CSE 240"`
	MemberCount int       `json:"memberCount" example:"12"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateCourseRequest is the admin request to create a course directly
type CreateCourseRequest struct {
	Name string `json:"name" binding:"required,max=120" example:"CSE 240 - Discrete Math"`
	Tag  string `json:"tag" binding:"required,coursetag" example:"CSE 240"`
}

// SubmitCourseRequestRequest is a visitor's proposal for a new course
type SubmitCourseRequestRequest struct {
	ClassName   string  `json:"className" binding:"required,max=120" example:"Organic Chemistry"`
	ClassTag    string  `json:"classTag" binding:"required,coursetag" example:"CHEM 201"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=2000" example:"Second semester organic chemistry"`
}

// CourseRequestResponse represents a course request
type CourseRequestResponse struct {
	ID          int64      `json:"id" example:"3"`
	ClassName   string     `json:"className" example:"Organic Chemistry"`
	ClassTag    string     `json:"classTag" example:"CHEM 201"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status" example:"pending" enums:"pending,approved,rejected"`
	CourseID    *int64     `json:"courseId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// SubmitCourseRequestResponse carries the id of a new request
type SubmitCourseRequestResponse struct {
	ID     int64  `json:"id" example:"3"`
	Status string `json:"status" example:"pending"`
}

// MembershipStatusRequest asks for the membership of several courses at once
type MembershipStatusRequest struct {
	CourseIDs []int64 `json:"courseIds" binding:"required,max=500"`
}

// MembershipResponse reports whether the caller is a member of a course
type MembershipResponse struct {
	CourseID    int64 `json:"courseId" example:"1"`
	IsMember    bool  `json:"isMember" example:"true"`
	MemberCount int   `json:"memberCount" example:"13"`
}

// MemberCountDrift is a course whose stored member count did not match its rows
type MemberCountDrift struct {
	CourseID int64 `json:"courseId" example:"1"`
	Stored   int   `json:"stored" example:"5"`
	Actual   int   `json:"actual" example:"4"`
}

// MembershipCheckResponse answers whether the caller belongs to one course
type MembershipCheckResponse struct {
	CourseID int64 `json:"courseId" example:"1"`
	IsMember bool  `json:"isMember" example:"true"`
}

// ReconcileResponse reports the outcome of a member count reconciliation
type ReconcileResponse struct {
	Checked int                `json:"checked" example:"20"`
	Drifted []MemberCountDrift `json:"drifted"`
}

// NewCourseResponse maps a course model
func NewCourseResponse(c *models.Course) *CourseResponse {
	if c == nil {
		return nil
	}
	return &CourseResponse{
		ID:          c.ID,
		Name:        c.Name,
		Tag:         c.Tag,
		MemberCount: c.MemberCount,
		CreatedAt:   c.CreatedAt,
	}
}

// NewCourseListResponse maps courses, never returning nil
func NewCourseListResponse(courses []*models.Course) []*CourseResponse {
	out := make([]*CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, NewCourseResponse(c))
	}
	return out
}

// NewCourseRequestResponse maps a course request model
func NewCourseRequestResponse(r *models.CourseRequest) *CourseRequestResponse {
	if r == nil {
		return nil
	}
	return &CourseRequestResponse{
		ID:          r.ID,
		ClassName:   r.ClassName,
		ClassTag:    r.ClassTag,
		Description: r.Description,
		Status:      string(r.Status),
		CourseID:    r.CourseID,
		CreatedAt:   r.CreatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}
