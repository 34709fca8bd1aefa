package testutil

import (
	"testing"

	"github.com/testcontainers/testcontainers-go/wait"
)

var mongoService = &service{
	name:  "mongo",
	image: "mongo:7",
	port:  "27017/tcp",
	wait: wait.ForAll(
		wait.ForListeningPort("27017/tcp"),
		wait.ForLog("Waiting for connections"),
	),
	address: func(endpoint string) string { return "mongodb://" + endpoint },
}

// GetMongoURI returns a connection URI for the shared MongoDB container.
func GetMongoURI(t *testing.T) string {
	t.Helper()
	return mongoService.get(t)
}
