//go:build integration

package identifier_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"fieldplot/internal/identifier"
	"fieldplot/pkg/testutil/containers"
)

type RedisAllocatorSuite struct {
	suite.Suite
	redis     *containers.RedisContainer
	allocator *identifier.RedisAllocator
}

func TestRedisAllocatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisAllocatorSuite))
}

func (s *RedisAllocatorSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.allocator = identifier.NewRedis(s.redis.Client)
}

func (s *RedisAllocatorSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisAllocatorSuite) TestSequentialPerMapCode() {
	ctx := context.Background()

	first, err := s.allocator.Allocate(ctx, "10")
	s.Require().NoError(err)
	s.Equal("10000001", first)

	second, err := s.allocator.Allocate(ctx, "10")
	s.Require().NoError(err)
	s.Equal("10000002", second)

	// Sequences are independent per map code.
	other, err := s.allocator.Allocate(ctx, "14")
	s.Require().NoError(err)
	s.Equal("14000001", other)
}

// TestConcurrentAllocationUnique verifies that identifiers drawn by many
// writers against one map code never collide.
func (s *RedisAllocatorSuite) TestConcurrentAllocationUnique() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	results := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.allocator.Allocate(ctx, "10")
			if err == nil {
				results <- id
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		s.False(seen[id], "identifier %s issued twice", id)
		seen[id] = true
	}
	s.Len(seen, goroutines)
}
