package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/tavre/orgsync/pkg/session"
	"github.com/tavre/orgsync/server"
	"github.com/tavre/orgsync/server/middleware"
	"github.com/tavre/orgsync/server/model"
	"github.com/tavre/orgsync/server/stores"
)

func mockValidator(token string) (middleware.GithubUser, bool) {
	if token == "testtoken" {
		return middleware.GithubUser{Login: "testuser", ID: 42}, true
	}
	return middleware.GithubUser{}, false
}

func setupTestServerAndClient(t *testing.T) (*httptest.Server, *Client, stores.OrganizationStore) {
	t.Helper()
	if err := session.Configure("test-secret", 1); err != nil {
		t.Fatal(err)
	}
	orgStore := stores.NewOrganizationMemoryStore()
	h := server.NewHandler(orgStore, slog.Default(), mockValidator)
	router := server.NewRouter(h, server.RouterConfig{Logger: slog.Default()})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	parsed, _ := url.Parse(ts.URL)
	client := &Client{
		ServerURL:  parsed,
		HTTPClient: ts.Client(),
		Logger:     slog.Default(),
	}
	return ts, client, orgStore
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
		t.Fatalf("failed to seed organization: %v", err)
	}
}

func TestClient_Login(t *testing.T) {
	_, client, _ := setupTestServerAndClient(t)

	token, expiresAt, err := client.Login(context.Background(), "testtoken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Errorf("expected a session token, got empty string")
	}
	if expiresAt <= time.Now().Unix() {
		t.Errorf("expected expiry in the future, got %d", expiresAt)
	}

	claims, err := session.ValidateToken(token)
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("expected user id 42, got %q", claims.UserID)
	}
	if claims.Login != "testuser" {
		t.Errorf("expected login testuser, got %q", claims.Login)
	}
}

func TestClient_Login_BadToken(t *testing.T) {
	_, client, _ := setupTestServerAndClient(t)

	_, _, err := client.Login(context.Background(), "wrongtoken")
	if err == nil {
		t.Fatalf("expected error for invalid GitHub token, got nil")
	}
}

func TestClient_FetchOrganizations(t *testing.T) {
	_, client, orgStore := setupTestServerAndClient(t)
	seedOrg(t, orgStore, "org-1", "acme", "42", map[string]model.Role{"42": model.RoleOwner})
	seedOrg(t, orgStore, "org-2", "globex", "7", map[string]model.Role{"7": model.RoleOwner, "42": model.RoleMember})
	seedOrg(t, orgStore, "org-3", "initech", "7", map[string]model.Role{"7": model.RoleOwner})

	token, _, err := client.Login(context.Background(), "testtoken")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	orgs, err := client.FetchOrganizations(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orgs) != 2 {
		t.Fatalf("expected 2 organizations, got %d", len(orgs))
	}
	// The server sorts by name.
	if orgs[0].Name != "acme" || orgs[1].Name != "globex" {
		t.Errorf("unexpected order: %q, %q", orgs[0].Name, orgs[1].Name)
	}
	if string(orgs[0].Role) != "owner" {
		t.Errorf("expected owner role, got %q", orgs[0].Role)
	}
	if string(orgs[1].Role) != "member" {
		t.Errorf("expected member role, got %q", orgs[1].Role)
	}
}

func TestClient_FetchOrganizations_Unauthorized(t *testing.T) {
	_, client, _ := setupTestServerAndClient(t)

	_, err := client.FetchOrganizations(context.Background(), "not-a-session-token")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", statusErr.Code)
	}
}

func TestClient_FetchOrganizations_TransportError(t *testing.T) {
	client, err := NewClient(ClientConfig{ServerURL: "http://127.0.0.1:1", Logger: slog.Default()})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.FetchOrganizations(context.Background(), "sometoken")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Errorf("transport failure must not be a StatusError, got %v", err)
	}
}
