package resources

import (
	"context"
	"errors"
	"testing"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type memberKey struct {
	resourceID string
	groupID    string
}

type testRepo struct {
	resources map[string]Resource
	groups    map[string]Group
	members   map[memberKey]struct{}
}

func newTestRepo() *testRepo {
	return &testRepo{
		resources: map[string]Resource{},
		groups:    map[string]Group{},
		members:   map[memberKey]struct{}{},
	}
}

func (r *testRepo) CreateResource(ctx context.Context, res Resource) error {
	r.resources[res.ID] = res
	return nil
}

func (r *testRepo) GetResource(ctx context.Context, id string) (Resource, error) {
	res, ok := r.resources[id]
	if !ok {
		return Resource{}, errRepoNotFound
	}
	return res, nil
}

func (r *testRepo) ListResources(ctx context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	return out, nil
}

func (r *testRepo) CreateGroup(ctx context.Context, g Group) error {
	r.groups[g.ID] = g
	return nil
}

func (r *testRepo) GetGroup(ctx context.Context, id string) (Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return Group{}, errRepoNotFound
	}
	return g, nil
}

func (r *testRepo) ListGroups(ctx context.Context) ([]Group, error) {
	out := make([]Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *testRepo) AddToGroup(ctx context.Context, resourceID, groupID string) error {
	r.members[memberKey{resourceID, groupID}] = struct{}{}
	return nil
}

func (r *testRepo) RemoveFromGroup(ctx context.Context, resourceID, groupID string) error {
	k := memberKey{resourceID, groupID}
	if _, ok := r.members[k]; !ok {
		return ErrNotFound
	}
	delete(r.members, k)
	return nil
}

func (r *testRepo) GroupsOf(ctx context.Context, resourceID string) ([]string, error) {
	out := make([]string, 0)
	for k := range r.members {
		if k.resourceID == resourceID {
			out = append(out, k.groupID)
		}
	}
	return out, nil
}

func (r *testRepo) ResourcesIn(ctx context.Context, groupID string) ([]string, error) {
	out := make([]string, 0)
	for k := range r.members {
		if k.groupID == groupID {
			out = append(out, k.resourceID)
		}
	}
	return out, nil
}

// -------------------------
// Tests
// -------------------------

func TestService_CreateResource_RequiresName(t *testing.T) {
	svc := NewService(newTestRepo())

	if _, err := svc.CreateResource(context.Background(), CreateResourceInput{Name: "   "}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	res, err := svc.CreateResource(context.Background(), CreateResourceInput{
		Name:        "  Torno CNC ",
		Description: " con manual ",
	})
	if err != nil {
		t.Fatalf("CreateResource error: %v", err)
	}
	if res.Name != "Torno CNC" || res.Description != "con manual" {
		t.Fatalf("expected trimmed fields, got %q / %q", res.Name, res.Description)
	}
	if res.ID == "" {
		t.Fatalf("expected generated ID")
	}
}

func TestService_AddToGroup_Idempotent(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	res, _ := svc.CreateResource(context.Background(), CreateResourceInput{Name: "Laser"})
	g, _ := svc.CreateGroup(context.Background(), CreateGroupInput{Name: "Maquinas ruidosas"})

	if err := svc.AddToGroup(context.Background(), res.ID, g.ID); err != nil {
		t.Fatalf("AddToGroup error: %v", err)
	}
	// segunda vez no falla
	if err := svc.AddToGroup(context.Background(), res.ID, g.ID); err != nil {
		t.Fatalf("AddToGroup #2 error: %v", err)
	}

	groups, err := svc.GroupsOf(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("GroupsOf error: %v", err)
	}
	if len(groups) != 1 || groups[0] != g.ID {
		t.Fatalf("expected single membership, got %#v", groups)
	}
}

func TestService_AddToGroup_UnknownEntities(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	res, _ := svc.CreateResource(context.Background(), CreateResourceInput{Name: "Laser"})
	g, _ := svc.CreateGroup(context.Background(), CreateGroupInput{Name: "Grupo"})

	if err := svc.AddToGroup(context.Background(), "no-existe", g.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown resource, got %v", err)
	}
	if err := svc.AddToGroup(context.Background(), res.ID, "no-existe"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown group, got %v", err)
	}
}

func TestService_RemoveFromGroup(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	res, _ := svc.CreateResource(context.Background(), CreateResourceInput{Name: "Laser"})
	g, _ := svc.CreateGroup(context.Background(), CreateGroupInput{Name: "Grupo"})

	// quitar sin membresía previa
	if err := svc.RemoveFromGroup(context.Background(), res.ID, g.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = svc.AddToGroup(context.Background(), res.ID, g.ID)
	if err := svc.RemoveFromGroup(context.Background(), res.ID, g.ID); err != nil {
		t.Fatalf("RemoveFromGroup error: %v", err)
	}

	groups, _ := svc.GroupsOf(context.Background(), res.ID)
	if len(groups) != 0 {
		t.Fatalf("expected no memberships, got %#v", groups)
	}
}
