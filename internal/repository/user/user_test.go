package user

import (
	"context"
	"errors"
	"testing"

	"github.com/natededev/de-commerce/internal/db/dbtest"
	"github.com/natededev/de-commerce/internal/domain"
)

func TestPostgres_CreateAndFetch(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil)

	created, err := repo.Create(ctx, domain.User{Email: "Ada@Example.com", Name: "Ada", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "ada@example.com" || created.Role != domain.RoleUser {
		t.Fatalf("unexpected user %+v", created)
	}

	byEmail, err := repo.GetByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", byEmail)
	}

	if _, err := repo.Create(ctx, domain.User{Email: "ada@example.com", Name: "Other", PasswordHash: "x"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_UpdateAndPassword(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Pool(t)
	repo := NewPostgres(pool, nil)

	u, err := repo.Create(ctx, domain.User{Email: "bo@example.com", Name: "Bo", PasswordHash: "old", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := repo.Update(ctx, u.ID, "Bo B", "bo.b@example.com")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Bo B" || updated.Email != "bo.b@example.com" || updated.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user %+v", updated)
	}
	if err := repo.UpdatePassword(ctx, u.ID, "new"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash != "new" {
		t.Fatalf("password not updated")
	}
}
