package resources

import "context"

type Repository interface {
	CreateResource(ctx context.Context, res Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)

	CreateGroup(ctx context.Context, g Group) error
	GetGroup(ctx context.Context, id string) (Group, error)
	ListGroups(ctx context.Context) ([]Group, error)

	// Membresía resource <-> group. AddToGroup es idempotente.
	AddToGroup(ctx context.Context, resourceID, groupID string) error
	RemoveFromGroup(ctx context.Context, resourceID, groupID string) error
	GroupsOf(ctx context.Context, resourceID string) ([]string, error)
	ResourcesIn(ctx context.Context, groupID string) ([]string, error)
}
