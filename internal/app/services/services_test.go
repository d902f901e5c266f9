package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bearshare/backend/internal/app/auth"
	"github.com/bearshare/backend/internal/app/models/dto"
	"github.com/bearshare/backend/internal/app/repositories/memory"
	"github.com/bearshare/backend/internal/pkg/events"
	"github.com/bearshare/backend/internal/pkg/filestorage"
)

var (
	admin = auth.Actor{ID: "user_admin", Admin: true, Source: auth.SourceToken}
	u1    = auth.Actor{ID: "u1", Source: auth.SourceToken}
	u2    = auth.Actor{ID: "u2", Source: auth.SourceToken}
	anon  = auth.Anonymous()
)

// fakeBlobs is a BlobStore whose uploads are marked by the test
type fakeBlobs struct {
	mu       sync.Mutex
	uploaded map[string]bool
	err      error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploaded: make(map[string]bool)}
}

func (f *fakeBlobs) RequestUploadURL(ctx context.Context) (*filestorage.UploadTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	ref := uuid.New().String()
	return &filestorage.UploadTarget{
		URL:        "https://blobs.test/put/" + ref,
		Method:     "PUT",
		StorageRef: ref,
		ExpiresAt:  time.Now().Add(time.Minute),
	}, nil
}

func (f *fakeBlobs) ResolveDownloadURL(ctx context.Context, ref string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.uploaded[ref] {
		return "", filestorage.ErrObjectNotFound
	}
	return "https://blobs.test/get/" + ref, nil
}

func (f *fakeBlobs) Exists(ctx context.Context, ref string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploaded[ref], nil
}

func (f *fakeBlobs) upload(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded[ref] = true
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+"|"+subject)
	return nil
}

type testEnv struct {
	store       *memory.Store
	blobs       *fakeBlobs
	events      *events.Recorder
	mail        *recordingSender
	notifier    *Notifier
	courses     CourseService
	memberships MembershipService
	posts       PostService
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	lgr := zerolog.Nop()

	env := &testEnv{
		store:  memory.NewStore(),
		blobs:  newFakeBlobs(),
		events: &events.Recorder{},
		mail:   &recordingSender{},
	}
	emitter := events.NewEmitter(env.events, lgr)
	env.notifier = NewNotifier(env.mail, "admin@bearshare.test", "http://localhost/admin", lgr)

	env.courses = NewCourseService(env.store, emitter, env.notifier, lgr)
	env.memberships = NewMembershipService(env.store, emitter, lgr)
	env.posts = NewPostService(env.store, env.blobs, emitter, lgr)
	return env
}

func createCourse(t *testing.T, env *testEnv, name, tag string) *dto.CourseResponse {
	t.Helper()
	course, err := env.courses.CreateCourse(context.Background(), admin, &dto.CreateCourseRequest{Name: name, Tag: tag})
	require.NoError(t, err)
	return course
}

func join(t *testing.T, env *testEnv, actor auth.Actor, courseID int64) *dto.MembershipResponse {
	t.Helper()
	resp, err := env.memberships.Join(context.Background(), actor, courseID)
	require.NoError(t, err)
	return resp
}

var errBoom = errors.New("boom")
