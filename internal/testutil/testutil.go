// Package testutil starts shared backing services for integration tests.
//
// Each service runs in one container per test binary. Tests are skipped
// under -short and when no container runtime is available.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startTimeout bounds image pulls on slow CI runners.
const startTimeout = 3 * time.Minute

// service is a container started on first use and shared by every test in
// the binary.
type service struct {
	name  string
	image string
	port  string
	wait  wait.Strategy
	env   map[string]string
	// address turns the mapped host:port into what callers connect with.
	address func(endpoint string) string

	once sync.Once
	addr string
	err  error
}

func (s *service) get(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skipf("skipping %s-backed test in -short mode", s.name)
	}
	s.once.Do(s.start)
	if s.err != nil {
		t.Skipf("%s container unavailable: %v", s.name, s.err)
	}
	return s.addr
}

func (s *service) start() {
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithExposedPorts(s.port),
		testcontainers.WithWaitStrategy(s.wait),
	}
	if len(s.env) > 0 {
		opts = append(opts, testcontainers.WithEnv(s.env))
	}
	c, err := testcontainers.Run(ctx, s.image, opts...)
	if err != nil {
		s.err = err
		return
	}
	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(context.Background())
		s.err = err
		return
	}
	s.addr = endpoint
	if s.address != nil {
		s.addr = s.address(endpoint)
	}
}
