package resolver

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/observability"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/registry"
	"github.com/georgisalene/gnss-rt/internal/repository"
	"github.com/georgisalene/gnss-rt/internal/retry"
	"github.com/georgisalene/gnss-rt/internal/storage"
	"github.com/georgisalene/gnss-rt/internal/transport"
)

// fakeFetcher scripts per-source behavior keyed by provider/tier.
type fakeFetcher struct {
	responses map[string][]fetchResult
	calls     []string
}

type fetchResult struct {
	body string
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, source entity.ProductSource, remotePath string) (io.ReadCloser, error) {
	key := source.Label()
	f.calls = append(f.calls, key)

	queue := f.responses[key]
	if len(queue) == 0 {
		return nil, transport.NewPermanent("get", key, transport.ErrNotFound)
	}
	next := queue[0]
	f.responses[key] = queue[1:]

	if next.err != nil {
		return nil, next.err
	}
	return io.NopCloser(strings.NewReader(next.body)), nil
}

func testWindow() entity.ProcessingWindow {
	start := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
	return entity.ProcessingWindow{
		Type:  entity.WindowHourly,
		Start: start,
		End:   start.Add(time.Hour),
	}
}

func testRegistry(t *testing.T, sources ...entity.ProductSource) *registry.Registry {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("categories:\n  orbit:\n    mandatory: true\n    sources:\n")
	for _, s := range sources {
		b.WriteString("      - provider: " + s.Provider + "\n")
		b.WriteString("        tier: " + string(s.Tier) + "\n")
		b.WriteString("        protocol: https\n")
		b.WriteString("        host: example.org\n")
		b.WriteString("        path: /products/{wwww}/orbit_" + string(s.Tier) + ".sp3\n")
	}

	path := dir + "/registry.yaml"
	require.NoError(t, writeFile(path, b.String()))
	reg, err := registry.Load(path)
	require.NoError(t, err)
	return reg
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func newHarness(t *testing.T, fetcher transport.Fetcher, policy retry.Policy) (*Resolver, *repository.MemoryRepositories, ports.Storage, *registry.Registry) {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	logger := observability.NewLogger()
	metrics := observability.NewStdoutMetrics()

	store, err := storage.NewFilesystem(t.TempDir(), logger, metrics)
	require.NoError(t, err)

	reg := testRegistry(t,
		entity.ProductSource{Provider: "CDDIS", Tier: entity.TierFinal},
		entity.ProductSource{Provider: "CDDIS", Tier: entity.TierRapid},
	)

	dl := NewDownloader(fetcher, store, repos.Attempts(), policy, "products", logger, metrics)
	res := NewResolver(reg, dl, repos.Products(), logger, metrics)
	return res, repos, store, reg
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestTierFallbackOrder(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"CDDIS/final": {{err: transport.NewPermanent("get", "x", transport.ErrNotFound)}},
		"CDDIS/rapid": {{body: "rapid orbit data"}},
	}}

	res, repos, _, _ := newHarness(t, fetcher, fastPolicy(3))

	product, err := res.Resolve(context.Background(), testWindow(), entity.CategoryOrbit)
	require.NoError(t, err)

	assert.True(t, product.IsAvailable())
	require.NotNil(t, product.Tier)
	assert.Equal(t, entity.TierRapid, *product.Tier)

	attempts, err := repos.Attempts().ListBySession(context.Background(), testWindow().SessionID())
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, entity.TierFinal, attempts[0].Tier)
	assert.Equal(t, entity.AttemptPermanentFailure, attempts[0].Outcome)
	assert.Equal(t, entity.TierRapid, attempts[1].Tier)
	assert.Equal(t, entity.AttemptSuccess, attempts[1].Outcome)
}

func TestTransientRetriesSameSource(t *testing.T) {
	flaky := transport.NewTransient("get", "x", errors.New("connection reset"))
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"CDDIS/final": {{err: flaky}, {err: flaky}, {body: "orbit data"}},
	}}

	res, repos, _, _ := newHarness(t, fetcher, fastPolicy(5))

	product, err := res.Resolve(context.Background(), testWindow(), entity.CategoryOrbit)
	require.NoError(t, err)

	assert.True(t, product.IsAvailable())
	require.NotNil(t, product.Tier)
	assert.Equal(t, entity.TierFinal, *product.Tier)

	attempts, err := repos.Attempts().ListBySession(context.Background(), testWindow().SessionID())
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, 1, attempts[0].Attempt)
	assert.Equal(t, 2, attempts[1].Attempt)
	assert.Equal(t, 3, attempts[2].Attempt)
	assert.Equal(t, entity.AttemptSuccess, attempts[2].Outcome)
}

func TestExhaustionMarksUnavailable(t *testing.T) {
	flaky := transport.NewTransient("get", "x", errors.New("timeout"))
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"CDDIS/final": {{err: flaky}, {err: flaky}},
		"CDDIS/rapid": {{err: transport.NewPermanent("get", "x", transport.ErrNotFound)}},
	}}

	res, repos, _, _ := newHarness(t, fetcher, fastPolicy(2))

	product, err := res.Resolve(context.Background(), testWindow(), entity.CategoryOrbit)
	require.NoError(t, err)

	assert.Equal(t, entity.ProductUnavailable, product.Availability)
	assert.False(t, product.IsAvailable())

	// 2 transient attempts on final, 1 permanent on rapid
	attempts, err := repos.Attempts().ListBySession(context.Background(), testWindow().SessionID())
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}

func TestSuccessfulDownloadIsCommitted(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"CDDIS/final": {{body: "orbit bytes"}},
	}}

	res, _, store, _ := newHarness(t, fetcher, fastPolicy(1))

	product, err := res.Resolve(context.Background(), testWindow(), entity.CategoryOrbit)
	require.NoError(t, err)
	require.True(t, product.IsAvailable())
	require.NotNil(t, product.SizeBytes)
	assert.Equal(t, int64(len("orbit bytes")), *product.SizeBytes)
	require.NotNil(t, product.Checksum)
	assert.Len(t, *product.Checksum, 64)

	infos, err := store.List(context.Background(), "products", testWindow().SessionID())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(len("orbit bytes")), infos[0].Size)
}

func TestFailedResolutionLeavesNoArtifacts(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{}}

	res, _, store, _ := newHarness(t, fetcher, fastPolicy(1))

	product, err := res.Resolve(context.Background(), testWindow(), entity.CategoryOrbit)
	require.NoError(t, err)
	assert.Equal(t, entity.ProductUnavailable, product.Availability)

	infos, err := store.List(context.Background(), "products", "")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestResolveSkipsAlreadyAvailable(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string][]fetchResult{
		"CDDIS/final": {{body: "orbit bytes"}},
	}}

	res, _, _, _ := newHarness(t, fetcher, fastPolicy(1))
	window := testWindow()

	first, err := res.Resolve(context.Background(), window, entity.CategoryOrbit)
	require.NoError(t, err)
	require.True(t, first.IsAvailable())

	// Second pass returns the stored product without fetching again.
	callsBefore := len(fetcher.calls)
	second, err := res.Resolve(context.Background(), window, entity.CategoryOrbit)
	require.NoError(t, err)
	assert.True(t, second.IsAvailable())
	assert.Equal(t, callsBefore, len(fetcher.calls))
}
