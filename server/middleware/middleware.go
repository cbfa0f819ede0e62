package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// --- Simple in-memory cache for GitHub token validation ---

type cacheEntry struct {
	user      GithubUser
	valid     bool
	expiresAt time.Time
}

var (
	cacheMu       sync.Mutex
	validateCache = make(map[string]cacheEntry) // key: token
)

func cacheGet(key string) (GithubUser, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	entry, ok := validateCache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return GithubUser{}, false
	}
	return entry.user, entry.valid
}

func cacheSet(key string, user GithubUser, valid bool, ttl time.Duration) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	validateCache[key] = cacheEntry{user: user, valid: valid, expiresAt: time.Now().Add(ttl)}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// ExtractBearerToken pulls the token out of an Authorization header.
func ExtractBearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// GithubUser is the identity GitHub reports for an access token.
type GithubUser struct {
	Login string `json:"login"`
	ID    int    `json:"id"`
}

// GithubTokenValidator checks a GitHub access token and returns the identity
// behind it. Injected so tests can skip the real GitHub API.
type GithubTokenValidator func(token string) (GithubUser, bool)

// ValidateGitHubToken calls the GitHub API to validate a token. Results are
// cached for a few minutes to keep login retries cheap.
func ValidateGitHubToken(token string) (GithubUser, bool) {
	if token == "" {
		return GithubUser{}, false
	}
	cacheKey := token + "|validate"
	if user, valid := cacheGet(cacheKey); valid {
		return user, true
	}
	login, id, err := getUserInfo(token)
	valid := err == nil && login != ""
	user := GithubUser{Login: login, ID: id}
	cacheSet(cacheKey, user, valid, 5*time.Minute)
	return user, valid
}

func getUserInfo(token string) (string, int, error) {
	req, err := http.NewRequest("GET", "https://api.github.com/user", nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}
	var user struct {
		Login string `json:"login"`
		ID    int    `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", 0, err
	}
	if user.Login == "" || user.ID == 0 {
		return "", 0, fmt.Errorf("GitHub user login or ID not found in response")
	}
	return user.Login, user.ID, nil
}
