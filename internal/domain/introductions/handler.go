package introductions

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

// UserLookup evita importar el paquete users (rompe ciclos).
type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

func RegisterRoutes(r chi.Router, svc *Service, userLookup UserLookup, perms PermissionCheck) {
	r.Route("/resources/{resourceID}/introductions", func(rr chi.Router) {
		rr.Post("/", createHandler(svc, userLookup, access.KindResource))
		rr.Get("/", listByTargetHandler(svc, access.KindResource))
	})
	r.Route("/resource-groups/{groupID}/introductions", func(gr chi.Router) {
		gr.Post("/", createHandler(svc, userLookup, access.KindGroup))
		gr.Get("/", listByTargetHandler(svc, access.KindGroup))
	})

	r.Route("/introductions/{introductionID}", func(ir chi.Router) {
		ir.Get("/", getHandler(svc))
		ir.Get("/history", historyHandler(svc))
		ir.Get("/status", statusHandler(svc))
		ir.Post("/revoke", actionHandler(svc, ActionRevoke))
		ir.Post("/grant", actionHandler(svc, ActionGrant))
	})

	r.Get("/users/{userID}/introductions", listByReceiverHandler(svc))
	r.Get("/resources/{resourceID}/access/{userID}", accessHandler(svc, perms))
	r.Get("/me/access/resources/{resourceID}", myAccessHandler(svc))
}

type createRequest struct {
	ReceiverUserID string `json:"receiver_user_id"`
	Comment        string `json:"comment"`
}

type actionRequest struct {
	Comment string `json:"comment"`
}

type introductionResponse struct {
	ID              string    `json:"id"`
	ReceiverUserID  string    `json:"receiver_user_id"`
	ResourceID      string    `json:"resource_id,omitempty"`
	ResourceGroupID string    `json:"resource_group_id,omitempty"`
	TutorUserID     string    `json:"tutor_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type historyItemResponse struct {
	ID                string    `json:"id"`
	IntroductionID    string    `json:"introduction_id"`
	Action            Action    `json:"action"`
	PerformedByUserID string    `json:"performed_by_user_id"`
	Comment           string    `json:"comment,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func createHandler(svc *Service, userLookup UserLookup, kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var t access.Target
		if kind == access.KindResource {
			t = access.ForResource(chi.URLParam(r, "resourceID"))
		} else {
			t = access.ForGroup(chi.URLParam(r, "groupID"))
		}

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		receiverID := strings.TrimSpace(req.ReceiverUserID)
		if receiverID == "" {
			http.Error(w, "receiver_user_id required", http.StatusBadRequest)
			return
		}
		exists, err := userLookup.UserExists(r.Context(), receiverID)
		if err != nil || !exists {
			http.Error(w, "receiver not found", http.StatusNotFound)
			return
		}

		intro, err := svc.Create(r.Context(), CreateInput{
			ActorID:        claims.UserID,
			ReceiverUserID: receiverID,
			Target:         t,
			Comment:        req.Comment,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toIntroductionResponse(intro))
	}
}

func listByTargetHandler(svc *Service, kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var t access.Target
		if kind == access.KindResource {
			t = access.ForResource(chi.URLParam(r, "resourceID"))
		} else {
			t = access.ForGroup(chi.URLParam(r, "groupID"))
		}

		items, err := svc.ListByTarget(r.Context(), claims.UserID, t)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]introductionResponse, 0, len(items))
		for _, intro := range items {
			out = append(out, toIntroductionResponse(intro))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		intro, err := svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "introductionID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toIntroductionResponse(intro))
	}
}

func historyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.History(r.Context(), claims.UserID, chi.URLParam(r, "introductionID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]historyItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, toHistoryItemResponse(item))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func statusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		valid, err := svc.IsIntroductionValid(r.Context(), claims.UserID, chi.URLParam(r, "introductionID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
	}
}

func actionHandler(svc *Service, action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// body opcional
		var req actionRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		in := ActionInput{
			ActorID:        claims.UserID,
			IntroductionID: chi.URLParam(r, "introductionID"),
			Comment:        req.Comment,
		}

		var item HistoryItem
		var err error
		if action == ActionRevoke {
			item, err = svc.Revoke(r.Context(), in)
		} else {
			item, err = svc.Grant(r.Context(), in)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toHistoryItemResponse(item))
	}
}

func listByReceiverHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByReceiver(r.Context(), claims.UserID, chi.URLParam(r, "userID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]introductionResponse, 0, len(items))
		for _, intro := range items {
			out = append(out, toIntroductionResponse(intro))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func accessHandler(svc *Service, perms PermissionCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID := chi.URLParam(r, "userID")

		// uno siempre puede consultar su propio acceso
		if userID != claims.UserID {
			can, err := perms.HasPermission(r.Context(), claims.UserID, access.CanManageResources)
			if err != nil || !can {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		allowed, err := svc.HasAccess(r.Context(), userID, chi.URLParam(r, "resourceID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
	}
}

func myAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		allowed, err := svc.HasAccess(r.Context(), claims.UserID, chi.URLParam(r, "resourceID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrNotAuthorized:
		http.Error(w, "forbidden", http.StatusForbidden)
	case ErrNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case ErrDuplicateIntroduction, ErrAlreadyRevoked, ErrNotRevoked:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toIntroductionResponse(intro Introduction) introductionResponse {
	resourceID, groupID := intro.Target.IDs()
	return introductionResponse{
		ID:              intro.ID,
		ReceiverUserID:  intro.ReceiverUserID,
		ResourceID:      resourceID,
		ResourceGroupID: groupID,
		TutorUserID:     intro.TutorUserID,
		CreatedAt:       intro.CreatedAt,
	}
}

func toHistoryItemResponse(item HistoryItem) historyItemResponse {
	return historyItemResponse{
		ID:                item.ID,
		IntroductionID:    item.IntroductionID,
		Action:            item.Action,
		PerformedByUserID: item.PerformedByUserID,
		Comment:           item.Comment,
		CreatedAt:         item.CreatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
