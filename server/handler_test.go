package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tavre/orgsync/pkg/session"
	"github.com/tavre/orgsync/server/middleware"
	"github.com/tavre/orgsync/server/model"
	"github.com/tavre/orgsync/server/stores"
)

func setupTestHandler(t *testing.T) (*Handler, stores.OrganizationStore) {
	t.Helper()
	if err := session.Configure("test-secret", 1); err != nil {
		t.Fatal(err)
	}
	orgStore := stores.NewOrganizationMemoryStore()
	return NewHandler(orgStore, nil, mockTokenValidator), orgStore
}

func mockTokenValidator(token string) (middleware.GithubUser, bool) {
	if token == "testtoken" {
		return middleware.GithubUser{Login: "testuser", ID: 42}, true
	}
	return middleware.GithubUser{}, false
}

func sessionTokenFor(t *testing.T, userID, login string) string {
	t.Helper()
	token, _, err := session.GenerateToken(userID, login)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func seedOrg(t *testing.T, orgStore stores.OrganizationStore, id, name, owner string, members map[string]model.Role) {
	t.Helper()
	now := time.Now()
	err := orgStore.CreateOrganization(context.Background(), &model.Organization{
		ID:          id,
		Name:        name,
		OwnerUserID: owner,
		Type:        model.OrganizationTypeTeam,
		Members:     members,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func serveAuthed(h http.HandlerFunc, r *http.Request, token string) *httptest.ResponseRecorder {
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	wrap := middleware.WithSessionAuth(middleware.DefaultSessionValidator, nil)
	wrap(h).ServeHTTP(w, r)
	return w
}

func TestAuthLogin(t *testing.T) {
	h, _ := setupTestHandler(t)

	r := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{"github_token":"testtoken"}`))
	w := httptest.NewRecorder()
	h.AuthLogin(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var body struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	claims, err := session.ValidateToken(body.Token)
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if claims.UserID != "42" || claims.Login != "testuser" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAuthLogin_InvalidGithubToken(t *testing.T) {
	h, _ := setupTestHandler(t)

	r := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{"github_token":"wrong"}`))
	w := httptest.NewRecorder()
	h.AuthLogin(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Result().StatusCode)
	}
}

func TestUserOrganizationsLight(t *testing.T) {
	h, orgStore := setupTestHandler(t)
	seedOrg(t, orgStore, "org-1", "acme", "42", map[string]model.Role{"42": model.RoleOwner})
	seedOrg(t, orgStore, "org-2", "globex", "7", map[string]model.Role{"7": model.RoleOwner, "42": model.RoleMember})
	seedOrg(t, orgStore, "org-3", "initech", "7", map[string]model.Role{"7": model.RoleOwner})
	token := sessionTokenFor(t, "42", "testuser")

	r := httptest.NewRequest("GET", "/api/v1/user/organizations-light", nil)
	w := serveAuthed(h.UserOrganizationsLight, r, token)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Result().StatusCode)
	}
	var dtos []organizationLightDTO
	if err := json.NewDecoder(w.Result().Body).Decode(&dtos); err != nil {
		t.Fatal(err)
	}
	if len(dtos) != 2 {
		t.Fatalf("expected 2 organizations, got %d", len(dtos))
	}
	if dtos[0].Name != "acme" || dtos[0].Role != "owner" {
		t.Errorf("unexpected first organization: %+v", dtos[0])
	}
	if dtos[1].Name != "globex" || dtos[1].Role != "member" || dtos[1].MemberCount != 2 {
		t.Errorf("unexpected second organization: %+v", dtos[1])
	}
}

func TestUserOrganizationsLight_Unauthenticated(t *testing.T) {
	h, _ := setupTestHandler(t)

	r := httptest.NewRequest("GET", "/api/v1/user/organizations-light", nil)
	w := serveAuthed(h.UserOrganizationsLight, r, "garbage")

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Result().StatusCode)
	}
}

func TestCreateOrganization(t *testing.T) {
	h, _ := setupTestHandler(t)
	token := sessionTokenFor(t, "42", "testuser")

	r := httptest.NewRequest("POST", "/api/v1/orgs", bytes.NewBufferString(`{"name":"acme"}`))
	w := serveAuthed(h.CreateOrganization, r, token)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Result().StatusCode)
	}
	var org model.Organization
	if err := json.NewDecoder(w.Result().Body).Decode(&org); err != nil {
		t.Fatal(err)
	}
	if org.OwnerUserID != "42" {
		t.Errorf("expected owner 42, got %q", org.OwnerUserID)
	}
	if org.RoleOf("42") != model.RoleOwner {
		t.Errorf("expected creator to be owner, got %q", org.RoleOf("42"))
	}
	if org.Type != model.OrganizationTypeTeam {
		t.Errorf("expected default type team, got %q", org.Type)
	}
}

func TestGetOrganization_HiddenFromNonMembers(t *testing.T) {
	h, orgStore := setupTestHandler(t)
	seedOrg(t, orgStore, "org-1", "acme", "7", map[string]model.Role{"7": model.RoleOwner})
	token := sessionTokenFor(t, "42", "testuser")

	r := httptest.NewRequest("GET", "/api/v1/orgs/org-1", nil)
	r.SetPathValue("id", "org-1")
	w := serveAuthed(h.GetOrganization, r, token)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Result().StatusCode)
	}
}

func TestDeleteOrganization_OwnerOnly(t *testing.T) {
	h, orgStore := setupTestHandler(t)
	seedOrg(t, orgStore, "org-1", "acme", "7", map[string]model.Role{
		"7": model.RoleOwner, "42": model.RoleAdmin,
	})

	r := httptest.NewRequest("DELETE", "/api/v1/orgs/org-1", nil)
	r.SetPathValue("id", "org-1")
	w := serveAuthed(h.DeleteOrganization, r, sessionTokenFor(t, "42", "testuser"))
	if w.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Result().StatusCode)
	}

	r = httptest.NewRequest("DELETE", "/api/v1/orgs/org-1", nil)
	r.SetPathValue("id", "org-1")
	w = serveAuthed(h.DeleteOrganization, r, sessionTokenFor(t, "7", "owner"))
	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Result().StatusCode)
	}
}

func TestPutMember(t *testing.T) {
	h, orgStore := setupTestHandler(t)
	seedOrg(t, orgStore, "org-1", "acme", "42", map[string]model.Role{"42": model.RoleOwner})
	token := sessionTokenFor(t, "42", "testuser")

	r := httptest.NewRequest("PUT", "/api/v1/orgs/org-1/members/7", bytes.NewBufferString(`{"role":"member"}`))
	r.SetPathValue("id", "org-1")
	r.SetPathValue("user_id", "7")
	w := serveAuthed(h.PutMember, r, token)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Result().StatusCode)
	}

	org, err := orgStore.GetOrganizationByID(context.Background(), "org-1")
	if err != nil {
		t.Fatal(err)
	}
	if org.RoleOf("7") != model.RoleMember {
		t.Errorf("expected member role, got %q", org.RoleOf("7"))
	}

	// The owner's role is immutable.
	r = httptest.NewRequest("PUT", "/api/v1/orgs/org-1/members/42", bytes.NewBufferString(`{"role":"member"}`))
	r.SetPathValue("id", "org-1")
	r.SetPathValue("user_id", "42")
	w = serveAuthed(h.PutMember, r, token)
	if w.Result().StatusCode == http.StatusOK {
		t.Fatalf("expected failure changing the owner's role, got 200")
	}
}

func TestPutMember_NonAdminForbidden(t *testing.T) {
	h, orgStore := setupTestHandler(t)
	seedOrg(t, orgStore, "org-1", "acme", "7", map[string]model.Role{
		"7": model.RoleOwner, "42": model.RoleMember,
	})

	r := httptest.NewRequest("PUT", "/api/v1/orgs/org-1/members/9", bytes.NewBufferString(`{"role":"member"}`))
	r.SetPathValue("id", "org-1")
	r.SetPathValue("user_id", "9")
	w := serveAuthed(h.PutMember, r, sessionTokenFor(t, "42", "testuser"))
	if w.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Result().StatusCode)
	}
}
