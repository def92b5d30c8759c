// Command authcore-loadtest hammers the refresh-token registry with
// concurrent store/validate/rotate traffic and reports throughput and
// latency percentiles. With no -redis-addr it spins up an in-process
// miniredis so the tool measures pure registry overhead.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/careerpilot/authcore/refresh"
)

type seededToken struct {
	userID string
	jti    string
	expiry time.Time
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		perUser     = flag.Int("tokens-per-user", 3, "active refresh tokens per user")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (validate + rotate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *perUser <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, tokens-per-user, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Println("using in-process miniredis")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: *concurrency})
	defer client.Close()
	if cleanup != nil {
		defer cleanup()
	}

	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping failed: %v\n", err)
		os.Exit(1)
	}

	registry := refresh.NewRegistry(client, 24*time.Hour)

	// ---------- seed ----------
	fmt.Printf("seeding %d users x %d tokens...\n", *users, *perUser)
	expiry := time.Now().Add(time.Hour)
	tokens := make([]seededToken, 0, *users**perUser)

	start := time.Now()
	for u := 0; u < *users; u++ {
		userID := fmt.Sprintf("u%d", u)
		for i := 0; i < *perUser; i++ {
			jti := uuid.NewString()
			if err := registry.Store(ctx, userID, jti, expiry); err != nil {
				fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
				os.Exit(1)
			}
			tokens = append(tokens, seededToken{userID: userID, jti: jti, expiry: expiry})
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))

	// ---------- validate phase ----------
	runPhase("validate", *ops, *concurrency, func(r *rand.Rand) error {
		tok := tokens[r.Intn(len(tokens))]
		_, err := registry.IsActive(ctx, tok.userID, tok.jti)
		return err
	})

	// ---------- rotate phase ----------
	var cursor atomic.Int64
	runPhase("rotate", *ops, *concurrency, func(r *rand.Rand) error {
		// Each op consumes one seeded token and replaces it, like a
		// refresh call would.
		i := int(cursor.Add(1)) % len(tokens)
		tok := tokens[i]
		if _, err := registry.Revoke(ctx, tok.userID, tok.jti, tok.expiry); err != nil {
			return err
		}
		return registry.Store(ctx, tok.userID, uuid.NewString(), tok.expiry)
	})
}

func runPhase(name string, ops, concurrency int, op func(r *rand.Rand) error) {
	fmt.Printf("phase %s: %d ops across %d workers\n", name, ops, concurrency)

	latencies := make([]time.Duration, ops)
	var next atomic.Int64
	var failures atomic.Int64

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for {
				i := int(next.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				if err := op(r); err != nil {
					failures.Add(1)
				}
				latencies[i] = time.Since(t0)
			}
		}(int64(w) + 1)
	}
	wg.Wait()
	elapsed := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	pct := func(p float64) time.Duration {
		idx := int(float64(ops-1) * p)
		return latencies[idx]
	}

	fmt.Printf("  done in %s (%.0f ops/s), failures %d\n",
		elapsed.Round(time.Millisecond),
		float64(ops)/elapsed.Seconds(),
		failures.Load(),
	)
	fmt.Printf("  p50=%s p95=%s p99=%s max=%s\n",
		pct(0.50), pct(0.95), pct(0.99), latencies[ops-1])
}
