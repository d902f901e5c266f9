package memory

import (
	"context"
	"sort"

	"github.com/bearshare/backend/internal/app/models"
	"github.com/bearshare/backend/internal/pkg/apperrors"
)

type courseRepo struct{ store *Store }

func (r *courseRepo) Create(ctx context.Context, course *models.Course) (int64, error) {
	defer r.store.lock()()
	d := r.store.data
	course.ID = d.nextID()
	course.CreatedAt = r.store.clock()
	d.courses[course.ID] = *course
	return course.ID, nil
}

func (r *courseRepo) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	defer r.store.lock()()
	course, ok := r.store.data.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return &course, nil
}

func (r *courseRepo) GetAll(ctx context.Context) ([]*models.Course, error) {
	defer r.store.lock()()
	courses := make([]*models.Course, 0, len(r.store.data.courses))
	for _, course := range r.store.data.courses {
		course := course
		courses = append(courses, &course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, ids []int64) ([]*models.Course, error) {
	defer r.store.lock()()
	courses := []*models.Course{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		course, ok := r.store.data.courses[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		courses = append(courses, &course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (r *courseRepo) AdjustMemberCount(ctx context.Context, id int64, delta int) error {
	defer r.store.lock()()
	course, ok := r.store.data.courses[id]
	if !ok {
		return nil
	}
	course.MemberCount += delta
	if course.MemberCount < 0 {
		course.MemberCount = 0
	}
	r.store.data.courses[id] = course
	return nil
}

func (r *courseRepo) SetMemberCount(ctx context.Context, id int64, count int) error {
	defer r.store.lock()()
	course, ok := r.store.data.courses[id]
	if !ok {
		return apperrors.ErrCourseNotFound
	}
	course.MemberCount = count
	r.store.data.courses[id] = course
	return nil
}

type courseRequestRepo struct{ store *Store }

func (r *courseRequestRepo) Create(ctx context.Context, req *models.CourseRequest) (int64, error) {
	defer r.store.lock()()
	d := r.store.data
	req.ID = d.nextID()
	req.CreatedAt = r.store.clock()
	d.requests[req.ID] = *req
	return req.ID, nil
}

func (r *courseRequestRepo) GetByID(ctx context.Context, id int64) (*models.CourseRequest, error) {
	defer r.store.lock()()
	req, ok := r.store.data.requests[id]
	if !ok {
		return nil, apperrors.ErrCourseRequestNotFound
	}
	return &req, nil
}

func (r *courseRequestRepo) ListByStatus(ctx context.Context, status models.RequestStatus) ([]*models.CourseRequest, error) {
	defer r.store.lock()()
	requests := []*models.CourseRequest{}
	for _, req := range r.store.data.requests {
		if status != "" && req.Status != status {
			continue
		}
		req := req
		requests = append(requests, &req)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}

func (r *courseRequestRepo) Resolve(ctx context.Context, id int64, status models.RequestStatus, courseID *int64) (bool, error) {
	defer r.store.lock()()
	req, ok := r.store.data.requests[id]
	if !ok || req.Status != models.RequestPending {
		return false, nil
	}
	now := r.store.clock()
	req.Status = status
	req.CourseID = courseID
	req.ResolvedAt = &now
	r.store.data.requests[id] = req
	return true, nil
}

// membershipRepo does not enforce a foreign key on course_id.
type membershipRepo struct{ store *Store }

func (r *membershipRepo) Add(ctx context.Context, actorID string, courseID int64) (bool, error) {
	defer r.store.lock()()
	d := r.store.data
	key := membershipKey{actorID: actorID, courseID: courseID}
	if _, ok := d.memberships[key]; ok {
		return false, nil
	}
	d.memberships[key] = models.Membership{
		ID:       d.nextID(),
		ActorID:  actorID,
		CourseID: courseID,
		JoinedAt: r.store.clock(),
	}
	return true, nil
}

func (r *membershipRepo) Remove(ctx context.Context, actorID string, courseID int64) (bool, error) {
	defer r.store.lock()()
	key := membershipKey{actorID: actorID, courseID: courseID}
	if _, ok := r.store.data.memberships[key]; !ok {
		return false, nil
	}
	delete(r.store.data.memberships, key)
	return true, nil
}

func (r *membershipRepo) Exists(ctx context.Context, actorID string, courseID int64) (bool, error) {
	defer r.store.lock()()
	_, ok := r.store.data.memberships[membershipKey{actorID: actorID, courseID: courseID}]
	return ok, nil
}

func (r *membershipRepo) CourseIDsByActor(ctx context.Context, actorID string) ([]int64, error) {
	defer r.store.lock()()
	var rows []models.Membership
	for key, membership := range r.store.data.memberships {
		if key.actorID == actorID {
			rows = append(rows, membership)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	courseIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		courseIDs = append(courseIDs, row.CourseID)
	}
	return courseIDs, nil
}

func (r *membershipRepo) CountsByCourse(ctx context.Context) (map[int64]int, error) {
	defer r.store.lock()()
	counts := make(map[int64]int)
	for key := range r.store.data.memberships {
		counts[key.courseID]++
	}
	return counts, nil
}

type postRepo struct{ store *Store }

func (r *postRepo) Create(ctx context.Context, post *models.Post) (int64, error) {
	defer r.store.lock()()
	d := r.store.data
	if _, ok := d.courses[post.CourseID]; !ok {
		return 0, apperrors.ErrCourseNotFound
	}
	if post.FileRef != nil {
		for _, existing := range d.posts {
			if existing.FileRef != nil && *existing.FileRef == *post.FileRef {
				return 0, apperrors.ErrUploadAttached
			}
		}
	}
	post.ID = d.nextID()
	post.CreatedAt = r.store.clock()
	d.posts[post.ID] = *post
	return post.ID, nil
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	defer r.store.lock()()
	post, ok := r.store.data.posts[id]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}
	return &post, nil
}

func (r *postRepo) ListByCourse(ctx context.Context, courseID int64) ([]*models.Post, error) {
	defer r.store.lock()()
	posts := []*models.Post{}
	for _, post := range r.store.data.posts {
		if post.CourseID != courseID {
			continue
		}
		post := post
		posts = append(posts, &post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

type reactionRepo struct{ store *Store }

func (r *reactionRepo) Get(ctx context.Context, postID int64, actorID string) (models.ReactionKind, error) {
	defer r.store.lock()()
	row, ok := r.store.data.reactions[reactionKey{postID: postID, actorID: actorID}]
	if !ok {
		return models.ReactionNone, nil
	}
	return row.kind, nil
}

func (r *reactionRepo) Set(ctx context.Context, postID int64, actorID string, kind models.ReactionKind) error {
	defer r.store.lock()()
	d := r.store.data
	if _, ok := d.posts[postID]; !ok {
		return apperrors.ErrPostNotFound
	}
	d.reactions[reactionKey{postID: postID, actorID: actorID}] = reactionRow{kind: kind, seq: d.nextID()}
	return nil
}

func (r *reactionRepo) Delete(ctx context.Context, postID int64, actorID string) error {
	defer r.store.lock()()
	delete(r.store.data.reactions, reactionKey{postID: postID, actorID: actorID})
	return nil
}

func (r *reactionRepo) ListByPosts(ctx context.Context, postIDs []int64) ([]*models.PostReaction, error) {
	defer r.store.lock()()
	wanted := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = true
	}

	type ordered struct {
		reaction *models.PostReaction
		seq      int64
	}
	var rows []ordered
	for key, row := range r.store.data.reactions {
		if !wanted[key.postID] {
			continue
		}
		rows = append(rows, ordered{
			reaction: &models.PostReaction{PostID: key.postID, ActorID: key.actorID, Kind: row.kind},
			seq:      row.seq,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	reactions := make([]*models.PostReaction, 0, len(rows))
	for _, row := range rows {
		reactions = append(reactions, row.reaction)
	}
	return reactions, nil
}
