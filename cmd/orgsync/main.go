// Package main provides the orgsync CLI for browsing the organizations
// associated with the authenticated user.
package main

import "github.com/tavre/orgsync/cmd/orgsync/commands"

func main() {
	commands.Execute(Version)
}
