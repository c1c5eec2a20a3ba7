package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hosi.com/identity/internal/auth"
	"hosi.com/identity/internal/ids"
)

// FindByUsername loads a user with its roles and their permissions.
func (s *Store) FindByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx,
		`select id, username, password_hash from users where username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select r.name, coalesce(r.description, ''), p.name, p.description
		from user_roles ur
		join roles r on r.name = ur.role_name
		left join role_permissions rp on rp.role_name = r.name
		left join permissions p on p.name = rp.permission_name
		where ur.user_id = $1
		order by r.name, p.name
	`, u.ID)
	if err != nil {
		return auth.User{}, err
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			roleName, roleDesc string
			permName, permDesc sql.NullString
		)
		if err := rows.Scan(&roleName, &roleDesc, &permName, &permDesc); err != nil {
			return auth.User{}, err
		}
		i, ok := index[roleName]
		if !ok {
			i = len(u.Roles)
			index[roleName] = i
			u.Roles = append(u.Roles, auth.Role{Name: roleName, Description: roleDesc})
		}
		if permName.Valid {
			u.Roles[i].Permissions = append(u.Roles[i].Permissions, auth.Permission{
				Name:        permName.String,
				Description: permDesc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return auth.User{}, err
	}
	return u, nil
}

// SaveUser inserts the user, creating any missing roles and permissions and
// linking them, in one transaction.
func (s *Store) SaveUser(ctx context.Context, user *auth.User) error {
	if user == nil || strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return auth.ErrInvalidInput
	}
	id := user.ID
	if id == "" {
		id = ids.New()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`insert into users (id, username, password_hash) values ($1, $2, $3)`,
		id, user.Username, user.PasswordHash,
	); err != nil {
		if isUniqueViolation(err) {
			return auth.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx,
			`insert into roles (name, description) values ($1, $2) on conflict (name) do nothing`,
			role.Name, role.Description,
		); err != nil {
			return fmt.Errorf("insert role %s: %w", role.Name, err)
		}
		for _, perm := range role.Permissions {
			if _, err := tx.ExecContext(ctx,
				`insert into permissions (name, description) values ($1, $2) on conflict (name) do nothing`,
				perm.Name, perm.Description,
			); err != nil {
				return fmt.Errorf("insert permission %s: %w", perm.Name, err)
			}
			if _, err := tx.ExecContext(ctx,
				`insert into role_permissions (role_name, permission_name) values ($1, $2) on conflict do nothing`,
				role.Name, perm.Name,
			); err != nil {
				return fmt.Errorf("link permission %s: %w", perm.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles (user_id, role_name) values ($1, $2) on conflict do nothing`,
			id, role.Name,
		); err != nil {
			return fmt.Errorf("assign role %s: %w", role.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	user.ID = id
	return nil
}
