package seed

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/natededev/de-commerce/internal/domain"
	productsvc "github.com/natededev/de-commerce/internal/service/product"
)

type stubProducts struct {
	byName map[string]productsvc.Input
}

func (s *stubProducts) Import(_ context.Context, in productsvc.Input) (*domain.Product, error) {
	s.byName[in.Name] = in
	return &domain.Product{ID: in.Name, Name: in.Name}, nil
}

type stubUsers struct {
	byEmail map[string]domain.User
}

func (s *stubUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	if _, ok := s.byEmail[u.Email]; ok {
		return nil, domain.ErrAlreadyExists
	}
	s.byEmail[u.Email] = u
	return &u, nil
}

func TestApplyIsRepeatable(t *testing.T) {
	products := &stubProducts{byName: map[string]productsvc.Input{}}
	users := &stubUsers{byEmail: map[string]domain.User{}}

	for i := 0; i < 2; i++ {
		if err := Apply(context.Background(), products, users, nil); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	if len(products.byName) != len(demoProducts) {
		t.Fatalf("expected %d products, got %d", len(demoProducts), len(products.byName))
	}
	admin, ok := users.byEmail["admin@gmail.com"]
	if !ok || admin.Role != domain.RoleAdmin {
		t.Fatalf("expected admin account, got %+v", admin)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(DemoPassword)); err != nil {
		t.Fatalf("admin password does not match demo password: %v", err)
	}
	if u := users.byEmail["user@gmail.com"]; u.Role != domain.RoleUser {
		t.Fatalf("expected user role, got %q", u.Role)
	}
}
