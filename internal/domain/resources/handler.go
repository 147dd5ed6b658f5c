package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// PermissionCheck evita importar el paquete users (rompe ciclos).
type PermissionCheck interface {
	HasPermission(ctx context.Context, userID string, p access.Permission) (bool, error)
}

func RegisterRoutes(r chi.Router, svc *Service, perms PermissionCheck) {
	r.Route("/resources", func(rr chi.Router) {
		rr.Post("/", createResourceHandler(svc, perms))
		rr.Get("/", listResourcesHandler(svc))
		rr.Get("/{resourceID}", getResourceHandler(svc))
		rr.Get("/{resourceID}/groups", resourceGroupsHandler(svc))
	})

	r.Route("/resource-groups", func(gr chi.Router) {
		gr.Post("/", createGroupHandler(svc, perms))
		gr.Get("/", listGroupsHandler(svc))
		gr.Get("/{groupID}", getGroupHandler(svc))
		gr.Get("/{groupID}/resources", groupResourcesHandler(svc))
		gr.Post("/{groupID}/resources/{resourceID}", addToGroupHandler(svc, perms))
		gr.Delete("/{groupID}/resources/{resourceID}", removeFromGroupHandler(svc, perms))
	})
}

type createResourceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type resourceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type groupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// requireManager corta con 401/403 si el actor no puede administrar recursos.
// Devuelve false si ya respondió.
func requireManager(w http.ResponseWriter, r *http.Request, perms PermissionCheck) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	can, err := perms.HasPermission(r.Context(), claims.UserID, access.CanManageResources)
	if err != nil || !can {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func createResourceHandler(svc *Service, perms PermissionCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireManager(w, r, perms) {
			return
		}

		var req createResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.CreateResource(r.Context(), CreateResourceInput{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, toResourceResponse(res))
	}
}

func listResourcesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListResources(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]resourceResponse, 0, len(items))
		for _, res := range items {
			out = append(out, toResourceResponse(res))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getResourceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetResource(r.Context(), chi.URLParam(r, "resourceID"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toResourceResponse(res))
	}
}

func resourceGroupsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID := chi.URLParam(r, "resourceID")
		if _, err := svc.GetResource(r.Context(), resourceID); err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		groupIDs, err := svc.GroupsOf(r.Context(), resourceID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]groupResponse, 0, len(groupIDs))
		for _, id := range groupIDs {
			g, err := svc.GetGroup(r.Context(), id)
			if err != nil {
				continue
			}
			out = append(out, toGroupResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createGroupHandler(svc *Service, perms PermissionCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireManager(w, r, perms) {
			return
		}

		var req createResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		g, err := svc.CreateGroup(r.Context(), CreateGroupInput{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, toGroupResponse(g))
	}
}

func listGroupsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListGroups(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]groupResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGroupResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getGroupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toGroupResponse(g))
	}
}

func groupResourcesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		if _, err := svc.GetGroup(r.Context(), groupID); err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		resourceIDs, err := svc.ResourcesIn(r.Context(), groupID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]resourceResponse, 0, len(resourceIDs))
		for _, id := range resourceIDs {
			res, err := svc.GetResource(r.Context(), id)
			if err != nil {
				continue
			}
			out = append(out, toResourceResponse(res))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func addToGroupHandler(svc *Service, perms PermissionCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireManager(w, r, perms) {
			return
		}

		err := svc.AddToGroup(r.Context(), chi.URLParam(r, "resourceID"), chi.URLParam(r, "groupID"))
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeFromGroupHandler(svc *Service, perms PermissionCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireManager(w, r, perms) {
			return
		}

		err := svc.RemoveFromGroup(r.Context(), chi.URLParam(r, "resourceID"), chi.URLParam(r, "groupID"))
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toResourceResponse(res Resource) resourceResponse {
	return resourceResponse{
		ID:          res.ID,
		Name:        res.Name,
		Description: res.Description,
		CreatedAt:   res.CreatedAt,
		UpdatedAt:   res.UpdatedAt,
	}
}

func toGroupResponse(g Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
