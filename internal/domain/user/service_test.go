package user

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	store map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.store {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}
	u.ID = uuid.New()
	m.store[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return u, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.store {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.store[u.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[u.ID] = u
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.store {
		result = append(result, u)
	}
	return result, len(result), nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	u, ok := m.store[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	u.Active = false
	return nil
}

func createUser(t *testing.T, svc *Service, username, role string) *User {
	t.Helper()
	u := &User{Username: username, FullName: "Test User", Role: role}
	if err := svc.Create(context.Background(), u, "correct horse battery"); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	if err := svc.Create(ctx, &User{Role: RoleAdmin}, "long enough pw"); err == nil {
		t.Error("expected error for missing username")
	}
	if err := svc.Create(ctx, &User{Username: "a", Role: "superuser"}, "long enough pw"); err == nil {
		t.Error("expected error for unknown role")
	}
	if err := svc.Create(ctx, &User{Username: "a", Role: RoleAdmin}, "short"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestCreate_HashesPassword(t *testing.T) {
	svc := NewService(newMockRepo())
	u := createUser(t, svc, "clerk", RoleDataClerk)
	if u.PasswordHash == "" || u.PasswordHash == "correct horse battery" {
		t.Error("password must be stored hashed")
	}
	if !u.Active {
		t.Error("new user should be active")
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMockRepo())
	createUser(t, svc, "clerk", RoleDataClerk)

	got, err := svc.Authenticate(context.Background(), "clerk", "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "clerk" {
		t.Errorf("username = %s", got.Username)
	}

	if _, err := svc.Authenticate(context.Background(), "clerk", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody", "correct horse battery"); err != ErrInvalidCredentials {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	u := createUser(t, svc, "clerk", RoleDataClerk)
	if err := svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(context.Background(), "clerk", "correct horse battery"); err != ErrInvalidCredentials {
		t.Errorf("inactive user: got %v", err)
	}
}

func TestUpdate_ChangesPasswordOnlyWhenGiven(t *testing.T) {
	svc := NewService(newMockRepo())
	u := createUser(t, svc, "clerk", RoleDataClerk)
	oldHash := u.PasswordHash

	updated, err := svc.Update(context.Background(), &User{ID: u.ID, FullName: "Renamed"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if updated.PasswordHash != oldHash {
		t.Error("password hash changed without a new password")
	}

	updated, err = svc.Update(context.Background(), &User{ID: u.ID}, "another good password")
	if err != nil {
		t.Fatal(err)
	}
	if updated.PasswordHash == oldHash {
		t.Error("password hash should change")
	}
	if _, err := svc.Authenticate(context.Background(), "clerk", "another good password"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUpdate_RejectsBadRole(t *testing.T) {
	svc := NewService(newMockRepo())
	u := createUser(t, svc, "clerk", RoleDataClerk)
	if _, err := svc.Update(context.Background(), &User{ID: u.ID, Role: "root"}, ""); err == nil {
		t.Error("expected error for unknown role")
	}
}
