package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/istorica/mentorai/internal/model"
)

// CreateUser inserts a new user. The id is assigned when empty; role
// defaults to student and status to pending (teacher approval flow).
func (s *Store) CreateUser(u model.User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.UserRoleStudent
	}
	if u.Status == "" {
		u.Status = model.UserPending
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, username, password, role, fullname, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.FullName, u.Status, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return "", &PersistenceError{Op: "create user", Err: err}
	}
	slog.Info("created user", "id", u.ID, "username", u.Username, "role", u.Role, "status", u.Status)
	return u.ID, nil
}

// GetUserByUsername returns a user by username, or nil when not found.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.getUser(`SELECT id, username, password, role, fullname, status, created_at
		 FROM users WHERE username = ?`, username)
}

// GetUserByID returns a user by id, or nil when not found.
func (s *Store) GetUserByID(id string) (*model.User, error) {
	return s.getUser(`SELECT id, username, password, role, fullname, status, created_at
		 FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	return &u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT id, username, password, role, fullname, status, created_at
		 FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.Status, &u.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "list users", Err: err}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	return users, nil
}

// SetUserStatus updates a user's approval state (pending/active/blocked).
func (s *Store) SetUserStatus(id string, status model.UserStatus) error {
	res, err := s.db.Exec(`UPDATE users SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return &PersistenceError{Op: "set user status", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &PersistenceError{Op: "set user status", Err: err}
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	slog.Info("updated user status", "id", id, "status", status)
	return nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
