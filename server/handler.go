package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tavre/orgsync/pkg/session"
	"github.com/tavre/orgsync/server/middleware"
	"github.com/tavre/orgsync/server/model"
	"github.com/tavre/orgsync/server/stores"
)

// Handler serves the orgsync directory API.
type Handler struct {
	orgs           stores.OrganizationStore
	logger         *slog.Logger
	validateGithub middleware.GithubTokenValidator
}

func NewHandler(orgs stores.OrganizationStore, logger *slog.Logger, validateGithub middleware.GithubTokenValidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if validateGithub == nil {
		validateGithub = middleware.ValidateGitHubToken
	}
	return &Handler{
		orgs:           orgs,
		logger:         logger,
		validateGithub: validateGithub,
	}
}

// AuthLogin handles POST /api/v1/auth/login.
// It exchanges a GitHub access token for an orgsync session token.
func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GithubToken string `json:"github_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.GithubToken == "" {
		http.Error(w, "missing github_token", http.StatusBadRequest)
		return
	}

	user, valid := h.validateGithub(req.GithubToken)
	if !valid {
		http.Error(w, "invalid GitHub token", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := session.GenerateToken(strconv.Itoa(user.ID), user.Login)
	if err != nil {
		h.logger.Error("failed to generate session token", "error", err)
		http.Error(w, "failed to generate session token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("issued session token", "login", user.Login, "id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// organizationLightDTO is the wire shape of GET /api/v1/user/organizations-light.
// Clients project it down to id/name/role.
type organizationLightDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Type        string `json:"type"`
	MemberCount int    `json:"member_count"`
}

// UserOrganizationsLight handles GET /api/v1/user/organizations-light.
func (h *Handler) UserOrganizationsLight(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	orgs, err := h.orgs.ListOrganizationsForUser(r.Context(), user.UserID)
	if err != nil {
		h.logger.Error("failed to list organizations", "user", user.UserID, "error", err)
		http.Error(w, "failed to list organizations", http.StatusInternalServerError)
		return
	}

	dtos := make([]organizationLightDTO, 0, len(orgs))
	for _, org := range orgs {
		dtos = append(dtos, organizationLightDTO{
			ID:          org.ID,
			Name:        org.Name,
			Role:        string(org.RoleOf(user.UserID)),
			Type:        string(org.Type),
			MemberCount: len(org.Members),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOrganization handles POST /api/v1/orgs.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	orgType := model.OrganizationType(req.Type)
	if orgType == "" {
		orgType = model.OrganizationTypeTeam
	}
	if orgType != model.OrganizationTypeTeam && orgType != model.OrganizationTypePersonal {
		http.Error(w, fmt.Sprintf("invalid organization type %q", req.Type), http.StatusBadRequest)
		return
	}

	now := time.Now()
	org := &model.Organization{
		ID:          uuid.NewString(),
		Name:        req.Name,
		OwnerUserID: user.UserID,
		Type:        orgType,
		Members:     map[string]model.Role{user.UserID: model.RoleOwner},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.orgs.CreateOrganization(r.Context(), org); err != nil {
		if errors.Is(err, stores.ErrOrganizationExists) {
			http.Error(w, "organization already exists", http.StatusConflict)
			return
		}
		h.logger.Error("failed to create organization", "name", req.Name, "error", err)
		http.Error(w, "failed to create organization: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// GetOrganization handles GET /api/v1/orgs/{id}. Members only.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	org, err := h.orgs.GetOrganizationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, stores.ErrOrganizationNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get organization", "id", id, "error", err)
		http.Error(w, "failed to get organization", http.StatusInternalServerError)
		return
	}
	if org.RoleOf(user.UserID) == "" {
		// Hide existence from non-members.
		http.Error(w, "organization not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// DeleteOrganization handles DELETE /api/v1/orgs/{id}. Owner only.
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	org, err := h.orgs.GetOrganizationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, stores.ErrOrganizationNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get organization", "id", id, "error", err)
		http.Error(w, "failed to get organization", http.StatusInternalServerError)
		return
	}
	if org.OwnerUserID != user.UserID {
		http.Error(w, "only the owner may delete an organization", http.StatusForbidden)
		return
	}
	if err := h.orgs.DeleteOrganization(r.Context(), id); err != nil {
		h.logger.Error("failed to delete organization", "id", id, "error", err)
		http.Error(w, "failed to delete organization", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutMember handles PUT /api/v1/orgs/{id}/members/{user_id}.
// Owners and admins may add members or change their roles.
func (h *Handler) PutMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")
	memberID := r.PathValue("user_id")
	if id == "" || memberID == "" {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	role := model.Role(req.Role)
	if role != model.RoleAdmin && role != model.RoleMember {
		http.Error(w, fmt.Sprintf("invalid role %q", req.Role), http.StatusBadRequest)
		return
	}

	err := h.orgs.UpdateOrganization(r.Context(), id, func(org model.Organization) (model.Organization, error) {
		callerRole := org.RoleOf(user.UserID)
		if callerRole != model.RoleOwner && callerRole != model.RoleAdmin {
			return org, errForbidden
		}
		if org.OwnerUserID == memberID {
			return org, fmt.Errorf("the owner's role cannot be changed")
		}
		if org.Members == nil {
			org.Members = make(map[string]model.Role)
		}
		org.Members[memberID] = role
		return org, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrOrganizationNotFound):
			http.Error(w, "organization not found", http.StatusNotFound)
		case errors.Is(err, errForbidden):
			http.Error(w, "only owners and admins may manage members", http.StatusForbidden)
		default:
			h.logger.Error("failed to update organization", "id", id, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

var errForbidden = errors.New("forbidden")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
