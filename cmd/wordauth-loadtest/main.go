// Command wordauth-loadtest measures issue and authorize throughput against a
// Redis-backed credential store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wordleapi/wordauth"
	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/credential/redisstore"
	"github.com/wordleapi/wordauth/policy"
)

const loadPassword = "correct-horse"

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per authorize phase")
		issueOps    = flag.Int("issue-ops", 2000, "operations in the issue phase (argon2 bound)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "{loadtest}:", "credential key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *issueOps <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops and issue-ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := wordauth.DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("L", 64))
	cfg.JWT.Issuer = "wordleapi-loadtest"
	cfg.JWT.Audience = "wordle-clients"
	cfg.JWT.ExpirationInMinutes = 30
	// Cheapest accepted argon2 cost so the issue phase measures the engine,
	// not the KDF.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	hasher, err := cfg.Password.NewHasher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher: %v\n", err)
		os.Exit(1)
	}
	store := redisstore.New(client, *prefix, hasher)

	names := make([]string, *users)
	fmt.Printf("seeding %d accounts...\n", *users)
	startSeed := time.Now()
	for i := range names {
		names[i] = fmt.Sprintf("player-%d@example.com", i)
		roles := []string{"Player"}
		if i%2 == 0 {
			roles = append(roles, policy.RoleAdmin)
		}
		_, err := store.Create(ctx, credential.CreateUserInput{
			Username: names[i],
			Password: loadPassword,
			Name:     fmt.Sprintf("Player %d", i),
			Birthday: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			Roles:    roles,
		})
		if err != nil && !errors.Is(err, credential.ErrUserExists) {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	engine, err := wordauth.New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	var tokensMu sync.Mutex
	tokens := make([]string, len(names))
	issueStats := runPhase(*issueOps, *concurrency, func(r *rand.Rand) error {
		idx := r.IntN(len(names))
		res, err := engine.Issue(ctx, wordauth.IssueRequest{Username: names[idx], Password: loadPassword})
		if err != nil {
			return err
		}
		tokensMu.Lock()
		tokens[idx] = res.Token
		tokensMu.Unlock()
		return nil
	})

	// Fill the gaps left by the random issue phase.
	for i, tok := range tokens {
		if tok != "" {
			continue
		}
		res, err := engine.Issue(ctx, wordauth.IssueRequest{Username: names[i], Password: loadPassword})
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue %s: %v\n", names[i], err)
			os.Exit(1)
		}
		tokens[i] = res.Token
	}

	roleReq := wordauth.RequireAnyRole(policy.RoleAdmin)
	roleStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, tokens[r.IntN(len(tokens))], roleReq)
		return err
	})

	policyReq := wordauth.RequirePolicy(policy.NameRandomAdmin)
	policyStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, tokens[r.IntN(len(tokens))], policyReq)
		return err
	})

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("authorize-role", roleStats)
	printStats("authorize-policy", policyStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: issue_success=%d forbidden=%d granted=%d\n",
		snap.Counters[wordauth.MetricIssueSuccess],
		snap.Counters[wordauth.MetricAccessForbidden],
		snap.Counters[wordauth.MetricAccessGranted],
	)
}

// runPhase runs op ops times across concurrency workers. Failures include
// expected denials such as ErrForbidden.
func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
