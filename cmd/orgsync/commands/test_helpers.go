package commands

import (
	"log/slog"
	"net/http"
	"strconv"
	"testing"

	"github.com/tavre/orgsync/pkg/session"
	"github.com/tavre/orgsync/server"
	"github.com/tavre/orgsync/server/stores"
	"github.com/tavre/orgsync/testutl"
)

func testServer(t *testing.T) (stores.OrganizationStore, int) {
	if err := session.Configure("test-secret", 1); err != nil {
		t.Fatal(err)
	}

	orgStore := stores.NewOrganizationMemoryStore()
	h := server.NewHandler(orgStore, slog.Default(), testutl.MockTokenValidator)
	router := server.NewRouter(h, server.RouterConfig{Logger: slog.Default()})

	port := testutl.GetPort()
	srv := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: router}

	go func() {
		slog.Info("Starting server on port", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error(err.Error())
		}
	}()

	t.Cleanup(func() {
		srv.Close()
	})

	return orgStore, port
}
