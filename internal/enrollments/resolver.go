// Package enrollments turns course enrollments into stats scopes and decides
// whose activity counts toward course-wide numbers.
package enrollments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/internal/usagestats"
)

// Store is the read side Resolver needs.
type Store interface {
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Enrollment, error)
	ListInstructors(ctx context.Context, courseID uuid.UUID) ([]string, error)
}

// Resolver implements usagestats.ScopeResolver over a Store.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveScopes classifies the course's enrolled users. Admins and course
// instructors are left out of every scope.
func (r *Resolver) ResolveScopes(ctx context.Context, courseID uuid.UUID) (usagestats.Scopes, error) {
	list, err := r.store.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	staff, err := r.staff(ctx, courseID, list)
	if err != nil {
		return nil, err
	}
	entries := make([]usagestats.ScopeEntry, 0, len(list))
	for _, e := range list {
		entries = append(entries, usagestats.ScopeEntry{
			Username:  e.Username,
			ForCredit: e.Scope == models.EnrollmentCredit,
		})
	}
	return usagestats.BuildScopes(entries, staff.Contains), nil
}

// Excluder returns the predicate that drops staff activity from course-wide stats.
func (r *Resolver) Excluder(ctx context.Context, courseID uuid.UUID) (usagestats.ExcludeFunc, error) {
	instructors, err := r.store.ListInstructors(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	set := usagestats.NewUserSet(instructors...)
	return func(u *models.User) bool {
		return u.Role.IsAdmin() || set.Contains(u.Username)
	}, nil
}

func (r *Resolver) staff(ctx context.Context, courseID uuid.UUID, list []models.Enrollment) (usagestats.UserSet, error) {
	instructors, err := r.store.ListInstructors(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	set := usagestats.NewUserSet(instructors...)
	for _, e := range list {
		if e.Role.IsAdmin() {
			set.Add(e.Username)
		}
	}
	return set, nil
}
