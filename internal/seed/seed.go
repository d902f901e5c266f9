package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	appModels "github.com/bearshare/backend/internal/app/models"
	appRepos "github.com/bearshare/backend/internal/app/repositories"
)

// DefaultCourses are created on an empty database when seeding is enabled
var DefaultCourses = []appModels.Course{
	{Name: "Introduction to Programming", Tag: "CSE 110"},
	{Name: "Discrete Mathematics", Tag: "CSE 240"},
	{Name: "Calculus I", Tag: "MAT 265"},
	{Name: "General Chemistry", Tag: "CHM 113"},
	{Name: "Physics I", Tag: "PHY 121"},
}

// CreateDefaultCourses inserts courses when the course table is empty. A
// database that already holds any course is left alone. It returns the
// number of courses created.
func CreateDefaultCourses(ctx context.Context, store appRepos.Store, courses []appModels.Course, lgr zerolog.Logger) (int, error) {
	existing, err := store.Courses().GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list courses: %w", err)
	}
	if len(existing) > 0 {
		lgr.Debug().Int("courses", len(existing)).Msg("Courses present, skipping seed")
		return 0, nil
	}

	lgr.Info().Int("courses", len(courses)).Msg("Seeding default courses...")
	created := 0
	var finalErr error
	for i := range courses {
		course := courses[i]
		if _, err := store.Courses().Create(ctx, &course); err != nil {
			lgr.Error().Err(err).Str("tag", course.Tag).Msg("Error creating default course")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		created++
	}
	return created, finalErr
}
