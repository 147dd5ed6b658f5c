package introducers

import (
	"context"
	"errors"
	"testing"

	"makerspace-access/internal/domain/access"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type roleKey struct {
	userID string
	target access.Target
}

type testRepo struct {
	byKey map[roleKey]Introducer
}

func newTestRepo() *testRepo {
	return &testRepo{byKey: map[roleKey]Introducer{}}
}

func (r *testRepo) Add(ctx context.Context, i Introducer) error {
	k := roleKey{i.UserID, i.Target}
	if _, ok := r.byKey[k]; ok {
		return ErrDuplicateGrant
	}
	r.byKey[k] = i
	return nil
}

func (r *testRepo) Remove(ctx context.Context, userID string, t access.Target) error {
	k := roleKey{userID, t}
	if _, ok := r.byKey[k]; !ok {
		return ErrNotFound
	}
	delete(r.byKey, k)
	return nil
}

func (r *testRepo) Exists(ctx context.Context, userID string, t access.Target) (bool, error) {
	_, ok := r.byKey[roleKey{userID, t}]
	return ok, nil
}

func (r *testRepo) ListByTarget(ctx context.Context, t access.Target) ([]Introducer, error) {
	out := make([]Introducer, 0)
	for k, i := range r.byKey {
		if k.target == t {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string) ([]Introducer, error) {
	out := make([]Introducer, 0)
	for k, i := range r.byKey {
		if k.userID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}

// testGroups implementa GroupLookup con un mapa fijo.
type testGroups struct {
	byResource map[string][]string
}

func (g *testGroups) GroupsOf(ctx context.Context, resourceID string) ([]string, error) {
	return g.byResource[resourceID], nil
}

func newService() (*Service, *testRepo, *testGroups) {
	repo := newTestRepo()
	groups := &testGroups{byResource: map[string][]string{}}
	return NewService(repo, groups), repo, groups
}

// -------------------------
// Tests
// -------------------------

func TestService_Grant_And_DuplicateIsConflict(t *testing.T) {
	svc, _, _ := newService()
	target := access.ForResource("res-1")

	i, err := svc.Grant(context.Background(), GrantInput{
		UserID:          "user-1",
		Target:          target,
		GrantedByUserID: "admin-1",
	})
	if err != nil {
		t.Fatalf("Grant error: %v", err)
	}
	if i.ID == "" || i.UserID != "user-1" || i.GrantedByUserID != "admin-1" {
		t.Fatalf("unexpected introducer: %+v", i)
	}

	_, err = svc.Grant(context.Background(), GrantInput{UserID: "user-1", Target: target})
	if !errors.Is(err, ErrDuplicateGrant) {
		t.Fatalf("expected ErrDuplicateGrant, got %v", err)
	}
}

func TestService_Grant_InvalidTarget(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.Grant(context.Background(), GrantInput{UserID: "user-1"})
	if err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for zero target, got %v", err)
	}

	_, err = svc.Grant(context.Background(), GrantInput{Target: access.ForResource("res-1")})
	if err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for empty user, got %v", err)
	}
}

func TestService_Revoke(t *testing.T) {
	svc, _, _ := newService()
	target := access.ForResource("res-1")

	if err := svc.Revoke(context.Background(), "user-1", target); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _ = svc.Grant(context.Background(), GrantInput{UserID: "user-1", Target: target})
	if err := svc.Revoke(context.Background(), "user-1", target); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	ok, _ := svc.IsIntroducerFor(context.Background(), "user-1", target)
	if ok {
		t.Fatalf("expected role gone after revoke")
	}
}

func TestService_IsIntroducerFor_DirectAndInherited(t *testing.T) {
	svc, _, groups := newService()

	resource := access.ForResource("res-1")
	group := access.ForGroup("grp-1")
	groups.byResource["res-1"] = []string{"grp-1"}

	// sin roles
	ok, err := svc.IsIntroducerFor(context.Background(), "user-1", resource)
	if err != nil || ok {
		t.Fatalf("expected false without roles, got ok=%v err=%v", ok, err)
	}

	// rol heredado vía grupo
	_, _ = svc.Grant(context.Background(), GrantInput{UserID: "user-1", Target: group})

	ok, err = svc.IsIntroducerFor(context.Background(), "user-1", resource)
	if err != nil {
		t.Fatalf("IsIntroducerFor error: %v", err)
	}
	if !ok {
		t.Fatalf("expected inherited role via group")
	}

	// el rol de grupo no se hereda hacia otros recursos
	ok, _ = svc.IsIntroducerFor(context.Background(), "user-1", access.ForResource("res-2"))
	if ok {
		t.Fatalf("expected no role for unrelated resource")
	}

	// consulta directa sobre el grupo
	ok, _ = svc.IsIntroducerFor(context.Background(), "user-1", group)
	if !ok {
		t.Fatalf("expected direct role on group")
	}
}

func TestService_IsIntroducerFor_GroupTargetNeverInherits(t *testing.T) {
	svc, _, _ := newService()

	// rol sobre un recurso no habilita sobre un grupo
	_, _ = svc.Grant(context.Background(), GrantInput{UserID: "user-1", Target: access.ForResource("res-1")})

	ok, err := svc.IsIntroducerFor(context.Background(), "user-1", access.ForGroup("grp-1"))
	if err != nil {
		t.Fatalf("IsIntroducerFor error: %v", err)
	}
	if ok {
		t.Fatalf("expected false for group target")
	}
}

func TestService_ListByUser(t *testing.T) {
	svc, _, _ := newService()

	_, _ = svc.Grant(context.Background(), GrantInput{UserID: "user-1", Target: access.ForResource("res-1")})
	_, _ = svc.Grant(context.Background(), GrantInput{UserID: "user-1", Target: access.ForGroup("grp-1")})
	_, _ = svc.Grant(context.Background(), GrantInput{UserID: "user-2", Target: access.ForResource("res-1")})

	items, err := svc.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(items))
	}
}
