package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sengketa/internal/domain"
	"sengketa/internal/repo"
)

// RoleMismatchError reports a caller whose role does not match the one an
// operation requires.
type RoleMismatchError struct {
	Identity string
	Expected domain.Role
	Actual   domain.Role
}

func (e RoleMismatchError) Error() string {
	return fmt.Sprintf("identity %q has role %s, %s required", e.Identity, e.Actual, e.Expected)
}

// Registry maps caller identities to their single role. Assignments are
// installed once by Seed and only read afterwards.
type Registry struct {
	Repo repo.Repo
}

// Seed installs the fixed assignment table.
func (s Registry) Seed(ctx context.Context, tx *sql.Tx, assignments []domain.RoleAssignment, now time.Time) error {
	seen := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		if a.Identity == "" {
			return errors.New("role assignment with empty identity")
		}
		if _, ok := domain.ParseRole(string(a.Role)); !ok {
			return fmt.Errorf("identity %s: unknown role %q", a.Identity, a.Role)
		}
		if _, dup := seen[a.Identity]; dup {
			return fmt.Errorf("identity %s assigned more than one role", a.Identity)
		}
		seen[a.Identity] = struct{}{}
	}
	return s.Repo.ReplaceRoleAssignments(ctx, tx, assignments, domain.FormatTime(now))
}

func (s Registry) RoleOf(ctx context.Context, tx *sql.Tx, identity string) (domain.Role, error) {
	if identity == "" {
		return domain.RoleNone, nil
	}
	return s.Repo.RoleOf(ctx, tx, identity)
}

// Require fails with RoleMismatchError unless identity holds expected.
func (s Registry) Require(ctx context.Context, tx *sql.Tx, identity string, expected domain.Role) error {
	role, err := s.RoleOf(ctx, tx, identity)
	if err != nil {
		return err
	}
	if role != expected {
		return RoleMismatchError{Identity: identity, Expected: expected, Actual: role}
	}
	return nil
}
