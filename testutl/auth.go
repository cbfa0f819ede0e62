package testutl

import (
	"github.com/tavre/orgsync/server/middleware"
)

func MockTokenValidator(token string) (middleware.GithubUser, bool) {
	if token == "testtoken" {
		return middleware.GithubUser{Login: "testuser", ID: 42}, true
	}
	return middleware.GithubUser{}, false
}
