// internal/service/health.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/client"
	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/provider"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"go.uber.org/zap"
)

const healthProbeTimeout = 10 * time.Second

// Overall snapshot statuses.
const (
	OverallAllOperational = "all operational"
	OverallAllDown        = "all down"
)

// healthTarget is one provider's reachability probe: its models endpoint,
// hit without credentials.
type healthTarget struct {
	name    string
	url     string
	headers map[string]string
}

// HealthChecker runs repeated unauthenticated probes against every
// provider's models endpoint and classifies each provider as operational,
// degraded, or down. Full snapshots are cached for the configured TTL so a
// busy caller does not hammer the providers.
type HealthChecker struct {
	cfg     *config.Config
	probes  client.Prober
	cache   *snapshotCache
	targets []healthTarget

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewHealthChecker builds a checker covering the built-in providers.
func NewHealthChecker(cfg *config.Config, probes client.Prober) *HealthChecker {
	descs := provider.Descriptors()
	targets := make([]healthTarget, 0, len(descs))
	for _, desc := range descs {
		headers := map[string]string{"Content-Type": "application/json"}
		for k, v := range desc.ExtraHeaders {
			headers[k] = v
		}
		targets = append(targets, healthTarget{
			name:    desc.Label,
			url:     desc.ModelsURL,
			headers: headers,
		})
	}
	return &HealthChecker{
		cfg:     cfg,
		probes:  probes,
		cache:   newSnapshotCache(cfg.HealthCacheTTL, time.Now),
		targets: targets,
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

// CheckAll returns the multi-provider health snapshot, serving the cached
// one while it is inside its TTL. Cached snapshots are marked FromCache
// with their age in seconds.
func (hc *HealthChecker) CheckAll(ctx context.Context) *HealthReport {
	log := utils.WithComponent("health_checker")
	if hit, ok := hc.cache.Get(); ok {
		log.Debug("health snapshot served from cache",
			zap.Int("cache_age_seconds", hit.CacheAge))
		return hit
	}

	report := &HealthReport{
		Timestamp: hc.now().UTC(),
		Providers: make(map[string]*ProviderHealth, len(hc.targets)),
	}

	type namedHealth struct {
		name   string
		health *ProviderHealth
	}
	results := make(chan namedHealth, len(hc.targets))
	var wg sync.WaitGroup
	for _, target := range hc.targets {
		wg.Add(1)
		go func(target healthTarget) {
			defer wg.Done()
			results <- namedHealth{target.name, hc.checkTarget(ctx, target)}
		}(target)
	}
	wg.Wait()
	close(results)

	for res := range results {
		report.Providers[res.name] = res.health
	}
	report.OverallStatus = overallStatus(report.Providers)

	hc.cache.Put(report)
	log.Info("health snapshot refreshed",
		zap.String(utils.FieldStatus, report.OverallStatus))
	return report
}

// CheckProvider probes a single provider, bypassing the snapshot cache.
// The name match is case-insensitive.
func (hc *HealthChecker) CheckProvider(ctx context.Context, name string) (*ProviderReport, error) {
	for _, target := range hc.targets {
		if strings.EqualFold(target.name, name) {
			return &ProviderReport{
				Provider:  target.name,
				Timestamp: hc.now().UTC(),
				Health:    hc.checkTarget(ctx, target),
			}, nil
		}
	}
	return nil, fmt.Errorf("unsupported provider '%s'", name)
}

// checkTarget runs the configured number of probes against one provider
// with a short delay between them. Any 2xx counts as a success; latency
// statistics cover successful probes only.
func (hc *HealthChecker) checkTarget(ctx context.Context, target healthTarget) *ProviderHealth {
	health := &ProviderHealth{LastChecked: hc.now().UTC()}

	var latencies []float64
	successes := 0
	for i := 0; i < hc.cfg.HealthTestCount; i++ {
		if i > 0 {
			if err := hc.sleep(ctx, hc.cfg.HealthProbeDelay); err != nil {
				break
			}
		}
		resp, err := hc.probes.Probe(ctx, client.ProbeRequest{
			Method:  http.MethodGet,
			URL:     target.url,
			Headers: target.headers,
			Timeout: healthProbeTimeout,
		})
		if err != nil {
			var perr *client.ProbeError
			if errors.As(err, &perr) {
				switch perr.Kind {
				case client.ErrKindTimeout:
					health.Error = "request timed out"
				case client.ErrKindConnection:
					health.Error = "connection failed"
				default:
					health.Error = perr.Err.Error()
				}
			} else {
				health.Error = err.Error()
			}
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			successes++
			latencies = append(latencies, float64(resp.Duration.Microseconds())/1000.0)
		}
	}

	if hc.cfg.HealthTestCount > 0 {
		health.SuccessRate = round2(float64(successes) / float64(hc.cfg.HealthTestCount) * 100)
	}
	switch {
	case health.SuccessRate >= 80:
		health.Status = StatusOperational
	case health.SuccessRate > 0:
		health.Status = StatusDegraded
	default:
		health.Status = StatusDown
	}
	if len(latencies) > 0 {
		health.LatencyMS = latencyStats(latencies)
	}
	return health
}

// RegionalStatus reports per-region provider reachability. The region data
// is simulated for now; real measurements would need probe agents outside
// this process.
func (hc *HealthChecker) RegionalStatus() *RegionalReport {
	regions := []string{"Asia Pacific", "North America", "Europe", "South America"}
	report := &RegionalReport{
		Timestamp: hc.now().UTC(),
		Regions:   make(map[string]*RegionStatus, len(regions)),
	}
	for _, region := range regions {
		status := &RegionStatus{
			Status:    StatusOperational,
			Providers: make(map[string]*RegionalProviderStatus, len(hc.targets)),
		}
		for _, target := range hc.targets {
			successRate := 70 + rand.Float64()*30
			latency := 100 + rand.Float64()*400
			providerStatus := StatusOperational
			if successRate <= 90 {
				providerStatus = StatusDegraded
			}
			status.Providers[target.name] = &RegionalProviderStatus{
				Status:      providerStatus,
				LatencyMS:   round2(latency),
				SuccessRate: round2(successRate),
			}
			if providerStatus != StatusOperational && status.Status == StatusOperational {
				status.Status = StatusDegraded
			}
		}
		report.Regions[region] = status
	}
	return report
}

func overallStatus(providers map[string]*ProviderHealth) string {
	operational, down := 0, 0
	for _, health := range providers {
		switch health.Status {
		case StatusOperational:
			operational++
		case StatusDown:
			down++
		}
	}
	switch {
	case operational == len(providers):
		return OverallAllOperational
	case down == len(providers):
		return OverallAllDown
	default:
		return fmt.Sprintf("partially available (%d/%d)", operational, len(providers))
	}
}

func latencyStats(latencies []float64) *LatencyStats {
	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &LatencyStats{
		Min:    round2(sorted[0]),
		Max:    round2(sorted[len(sorted)-1]),
		Avg:    round2(sum / float64(len(sorted))),
		Median: round2(median),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
