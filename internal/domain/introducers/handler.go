package introducers

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

// Interfaces de consumo para no importar users/resources (rompe ciclos).

type PermissionCheck interface {
	HasPermission(ctx context.Context, userID string, p access.Permission) (bool, error)
}

type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

type TargetLookup interface {
	ResourceExists(ctx context.Context, id string) (bool, error)
	GroupExists(ctx context.Context, id string) (bool, error)
}

func RegisterRoutes(r chi.Router, svc *Service, perms PermissionCheck, userLookup UserLookup, targets TargetLookup) {
	r.Route("/resources/{resourceID}/introducers", func(rr chi.Router) {
		rr.Post("/", grantHandler(svc, perms, userLookup, targets, access.KindResource))
		rr.Get("/", listByTargetHandler(svc, targets, access.KindResource))
		rr.Delete("/{userID}", revokeHandler(svc, perms, targets, access.KindResource))
		rr.Get("/{userID}", statusHandler(svc, perms, targets))
	})

	r.Route("/resource-groups/{groupID}/introducers", func(gr chi.Router) {
		gr.Post("/", grantHandler(svc, perms, userLookup, targets, access.KindGroup))
		gr.Get("/", listByTargetHandler(svc, targets, access.KindGroup))
		gr.Delete("/{userID}", revokeHandler(svc, perms, targets, access.KindGroup))
	})

	r.Get("/me/introducer-roles", myRolesHandler(svc))
}

type grantRequest struct {
	UserID string `json:"user_id"`
}

type introducerResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ResourceID      string    `json:"resource_id,omitempty"`
	ResourceGroupID string    `json:"resource_group_id,omitempty"`
	GrantedByUserID string    `json:"granted_by_user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// targetFromURL arma el objetivo según la ruta y valida que exista.
// Escribe la respuesta de error y devuelve ok=false si algo falla.
func targetFromURL(w http.ResponseWriter, r *http.Request, targets TargetLookup, kind access.Kind) (access.Target, bool) {
	var t access.Target
	switch kind {
	case access.KindResource:
		id := chi.URLParam(r, "resourceID")
		exists, err := targets.ResourceExists(r.Context(), id)
		if err != nil || !exists {
			http.Error(w, "resource not found", http.StatusNotFound)
			return t, false
		}
		t = access.ForResource(id)
	case access.KindGroup:
		id := chi.URLParam(r, "groupID")
		exists, err := targets.GroupExists(r.Context(), id)
		if err != nil || !exists {
			http.Error(w, "resource group not found", http.StatusNotFound)
			return t, false
		}
		t = access.ForGroup(id)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return t, false
	}
	return t, true
}

func requireManager(w http.ResponseWriter, r *http.Request, perms PermissionCheck) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	can, err := perms.HasPermission(r.Context(), claims.UserID, access.CanManageResources)
	if err != nil || !can {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return claims.UserID, true
}

func grantHandler(svc *Service, perms PermissionCheck, userLookup UserLookup, targets TargetLookup, kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireManager(w, r, perms)
		if !ok {
			return
		}

		t, ok := targetFromURL(w, r, targets, kind)
		if !ok {
			return
		}

		var req grantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}
		exists, err := userLookup.UserExists(r.Context(), userID)
		if err != nil || !exists {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		i, err := svc.Grant(r.Context(), GrantInput{
			UserID:          userID,
			Target:          t,
			GrantedByUserID: actorID,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrDuplicateGrant:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toIntroducerResponse(i))
	}
}

func revokeHandler(svc *Service, perms PermissionCheck, targets TargetLookup, kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireManager(w, r, perms); !ok {
			return
		}

		t, ok := targetFromURL(w, r, targets, kind)
		if !ok {
			return
		}

		err := svc.Revoke(r.Context(), chi.URLParam(r, "userID"), t)
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

func listByTargetHandler(svc *Service, targets TargetLookup, kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		t, ok := targetFromURL(w, r, targets, kind)
		if !ok {
			return
		}

		items, err := svc.ListByTarget(r.Context(), t)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]introducerResponse, 0, len(items))
		for _, i := range items {
			out = append(out, toIntroducerResponse(i))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// statusHandler responde si un usuario puede dar introducciones sobre el
// recurso, incluyendo roles heredados por grupo. Solo resources: el status
// sobre un grupo no aporta nada que el listado no diga ya.
func statusHandler(svc *Service, perms PermissionCheck, targets TargetLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID := chi.URLParam(r, "userID")
		if userID != claims.UserID {
			can, err := perms.HasPermission(r.Context(), claims.UserID, access.CanManageResources)
			if err != nil || !can {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		t, ok := targetFromURL(w, r, targets, access.KindResource)
		if !ok {
			return
		}

		is, err := svc.IsIntroducerFor(r.Context(), userID, t)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"is_introducer": is})
	}
}

func myRolesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByUser(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]introducerResponse, 0, len(items))
		for _, i := range items {
			out = append(out, toIntroducerResponse(i))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toIntroducerResponse(i Introducer) introducerResponse {
	resourceID, groupID := i.Target.IDs()
	return introducerResponse{
		ID:              i.ID,
		UserID:          i.UserID,
		ResourceID:      resourceID,
		ResourceGroupID: groupID,
		GrantedByUserID: i.GrantedByUserID,
		CreatedAt:       i.CreatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
