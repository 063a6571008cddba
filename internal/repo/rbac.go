package repo

import (
	"context"
	"database/sql"

	"sengketa/internal/domain"
)

// ReplaceRoleAssignments installs the fixed role table, dropping any previous rows.
func (r Repo) ReplaceRoleAssignments(ctx context.Context, tx *sql.Tx, assignments []domain.RoleAssignment, now string) error {
	q := r.q(tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM role_assignments`); err != nil {
		return err
	}
	for _, a := range assignments {
		if _, err := q.ExecContext(ctx, `INSERT INTO role_assignments(identity,role,assigned_at) VALUES (?,?,?)`, a.Identity, string(a.Role), now); err != nil {
			return err
		}
	}
	return nil
}

// RoleOf returns the identity's role, RoleNone when unassigned.
func (r Repo) RoleOf(ctx context.Context, tx *sql.Tx, identity string) (domain.Role, error) {
	var role string
	err := r.q(tx).QueryRowContext(ctx, `SELECT role FROM role_assignments WHERE identity=?`, identity).Scan(&role)
	if err == sql.ErrNoRows {
		return domain.RoleNone, nil
	}
	if err != nil {
		return domain.RoleNone, err
	}
	return domain.Role(role), nil
}

func (r Repo) ListRoleAssignments(ctx context.Context) ([]domain.RoleAssignment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT identity,role,assigned_at FROM role_assignments ORDER BY role, identity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RoleAssignment
	for rows.Next() {
		var a domain.RoleAssignment
		var role string
		if err := rows.Scan(&a.Identity, &role, &a.AssignedAt); err != nil {
			return nil, err
		}
		a.Role = domain.Role(role)
		res = append(res, a)
	}
	return res, rows.Err()
}
