package store

import (
	"testing"
	"time"

	"github.com/istorica/mentorai/internal/model"
)

func createTestUser(t *testing.T, s *Store, username string) string {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		PasswordHash: "$2a$10$fakehashfortesting",
		FullName:     "Test User",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)

	id := createTestUser(t, s, "elev1")

	u, err := s.GetUserByUsername("elev1")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != id {
		t.Errorf("id = %q, want %q", u.ID, id)
	}
	if u.Role != model.UserRoleStudent {
		t.Errorf("role = %q, want student default", u.Role)
	}
	if u.Status != model.UserPending {
		t.Errorf("status = %q, want pending default", u.Status)
	}

	byID, err := s.GetUserByID(id)
	if err != nil || byID == nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Username != "elev1" {
		t.Errorf("username = %q, want elev1", byID.Username)
	}
}

func TestGetUserMissing(t *testing.T) {
	s := newTestStore(t)
	u, err := s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for a missing user, got %+v", u)
	}
}

func TestDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "elev1")

	_, err := s.CreateUser(model.User{Username: "elev1", PasswordHash: "x"})
	if err == nil {
		t.Fatal("expected error on duplicate username")
	}
}

func TestSetUserStatus(t *testing.T) {
	s := newTestStore(t)
	id := createTestUser(t, s, "elev1")

	if err := s.SetUserStatus(id, model.UserActive); err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	u, err := s.GetUserByID(id)
	if err != nil || u == nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.Status != model.UserActive {
		t.Errorf("status = %q, want active", u.Status)
	}

	if err := s.SetUserStatus("missing-id", model.UserBlocked); err == nil {
		t.Error("expected error for an unknown user id")
	}
}

func TestAuthSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	id := createTestUser(t, s, "elev1")

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != id {
		t.Fatalf("session = %+v, want user %q", sess, id)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}

func TestExpiredAuthSession(t *testing.T) {
	s := newTestStore(t)
	id := createTestUser(t, s, "elev1")

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	// Force the session into the past.
	if _, err := s.db.Exec(`UPDATE auth_sessions SET expires_at = ? WHERE id = ?`, time.Now().Add(-time.Hour), token); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for an expired session")
	}
}
