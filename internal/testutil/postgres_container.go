package testutil

import (
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/wait"
)

var postgresService = &service{
	name:  "postgres",
	image: "postgres:16",
	port:  "5432/tcp",
	wait: wait.ForAll(
		wait.ForListeningPort("5432/tcp"),
		// Logged once by the init instance and once by the real server.
		wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	).WithDeadline(2 * time.Minute),
	env: map[string]string{
		"POSTGRES_USER":     "wizflow",
		"POSTGRES_PASSWORD": "wizflow",
		"POSTGRES_DB":       "wizflow_test",
	},
	address: func(endpoint string) string {
		return "postgres://wizflow:wizflow@" + endpoint + "/wizflow_test?sslmode=disable"
	},
}

// GetPostgresDSN returns a DSN for the shared PostgreSQL container.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	return postgresService.get(t)
}
