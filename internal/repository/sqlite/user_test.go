package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "opaque-credential",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username: "jake",
		Email:    "jake@example.com",
		Bio:      "I work at statefarm",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")

	err := db.CreateUser(context.Background(), &model.User{Username: "jake", Email: "other@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")

	err := db.CreateUser(context.Background(), &model.User{Username: "jacob", Email: "jake@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "getbyid_user")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Username != "getbyid_user" {
		t.Errorf("Username = %q, want %q", found.Username, "getbyid_user")
	}
	if found.Password != "opaque-credential" {
		t.Errorf("Password = %q, want it stored untouched", found.Password)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "celeb_alice")

	found, err := db.GetUserByUsername(context.Background(), "celeb_alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
}

func TestUserGetByUsername_IsExact(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	for _, name := range []string{"ali", "alice2", "%"} {
		_, err := db.GetUserByUsername(context.Background(), name)
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("GetUserByUsername(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "jake")
	createdAt := user.CreatedAt

	user.Username = "jacob"
	user.Email = "jacob@example.com"
	user.Bio = "I like to skateboard"
	user.Image = "https://example.com/jacob.png"
	if err := db.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Username != "jacob" || found.Email != "jacob@example.com" {
		t.Errorf("got %q/%q, want jacob/jacob@example.com", found.Username, found.Email)
	}
	if found.Bio != "I like to skateboard" || found.Image != "https://example.com/jacob.png" {
		t.Errorf("Bio/Image = %q/%q, not updated", found.Bio, found.Image)
	}
	if found.Password != "opaque-credential" {
		t.Errorf("Password = %q, want it stored untouched", found.Password)
	}
	if !found.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, createdAt)
	}

	if _, err := db.GetUserByUsername(context.Background(), "jake"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("old username still resolves: %v", err)
	}
}

func TestUserUpdate_Conflict(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	anna := createTestUser(t, db, "anna")

	anna.Username = "jake"
	err := db.UpdateUser(context.Background(), anna)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdateUser() duplicate username error = %v, want ErrConflict", err)
	}

	anna.Username = "anna"
	anna.Email = "jake@example.com"
	err = db.UpdateUser(context.Background(), anna)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdateUser() duplicate email error = %v, want ErrConflict", err)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUser(context.Background(), &model.User{ID: "nonexistent-id", Username: "ghost", Email: "ghost@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestGetUsersByIDs(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "a")
	b := createTestUser(t, db, "b")
	createTestUser(t, db, "c")

	users, err := db.GetUsersByIDs(context.Background(), []string{a.ID, b.ID, "missing"})
	if err != nil {
		t.Fatalf("GetUsersByIDs() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("GetUsersByIDs() returned %d users, want 2", len(users))
	}

	empty, err := db.GetUsersByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetUsersByIDs(nil) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("GetUsersByIDs(nil) returned %d users, want 0", len(empty))
	}
}
