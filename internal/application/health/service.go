package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"showroom-backend/internal/application/sweeper"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Probe is an external URL whose reachability is reported under Name.
type Probe struct {
	Name string
	URL  string
}

type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
	Sweeper      *sweeper.LastRun     `json:"sweeper"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	RSS      int `json:"rss"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

// BacklogInfo counts work waiting on a counterparty.
type BacklogInfo struct {
	PendingCandidatures    int64 `json:"pendingCandidatures"`
	PendingPlacements      int64 `json:"pendingPlacements"`
	PendingPaymentRequests int64 `json:"pendingPaymentRequests"`
	OverdueCandidatures    int64 `json:"overdueCandidatures"`
}

// CollectHealth gathers health data from Redis, optional DB, and external HTTP probes.
func CollectHealth(ctx context.Context, rdb *redis.Client, db DBPinger, probes ...Probe) CollectResult {
	result := CollectResult{
		Dependencies: make(map[string]DepStatus),
	}

	dbStatus := "disconnected"
	var dbPingMs *int64
	if db != nil {
		start := time.Now()
		if err := db.Ping(); err == nil {
			ms := time.Since(start).Milliseconds()
			dbPingMs = &ms
			dbStatus = "connected"
		} else {
			dbStatus = "error"
		}
	}
	result.Dependencies["database"] = DepStatus{Status: dbStatus, PingMs: dbPingMs}

	redisStatus := "disconnected"
	var redisPingMs *int64
	stats := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()

	if rdb != nil {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisPingMs = &ms
			redisStatus = "connected"

			pipe := rdb.Pipeline()
			totalReq := pipe.Get(ctx, middleware.KeyReqTotal)
			totalErr := pipe.Get(ctx, middleware.KeyReqErrors)
			totalTime := pipe.Get(ctx, middleware.KeyResTime)
			resCount := pipe.Get(ctx, middleware.KeyResCount)
			startTime := pipe.Get(ctx, middleware.KeyStartTime)
			lastReq := pipe.Get(ctx, middleware.KeyLastReq)
			lastSweep := pipe.Get(ctx, sweeper.LastRunKey)
			_, _ = pipe.Exec(ctx)

			if t, err := strconv.ParseInt(startTime.Val(), 10, 64); err == nil {
				startTimeMs = t
			} else {
				rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
			}

			stats.TotalRequests, _ = strconv.Atoi(totalReq.Val())
			stats.FailedCount, _ = strconv.Atoi(totalErr.Val())
			stats.SuccessCount = stats.TotalRequests - stats.FailedCount
			if stats.TotalRequests > 0 {
				stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
			}
			timeSum, _ := strconv.ParseFloat(totalTime.Val(), 64)
			countSum, _ := strconv.Atoi(resCount.Val())
			if countSum > 0 {
				stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
			}
			if v := lastReq.Val(); v != "" {
				var m map[string]interface{}
				_ = json.Unmarshal([]byte(v), &m)
				stats.LastRequest = m
			}
			if v := lastSweep.Val(); v != "" {
				var run sweeper.LastRun
				if json.Unmarshal([]byte(v), &run) == nil {
					result.Sweeper = &run
				}
			}
		} else {
			redisStatus = "error"
		}
	}
	result.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPingMs}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{RSS: int(m.Sys / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	result.Traffic = stats

	for _, p := range probes {
		ping := httpPing(ctx, p.URL, 3*time.Second)
		status := "unreachable"
		if ping != nil {
			status = "reachable"
		}
		result.Dependencies[p.Name] = DepStatus{Status: status, PingMs: ping}
	}

	if dbStatus == "connected" && redisStatus == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// Backlog counts pending partnership work and candidatures the sweeper has not reached yet.
func Backlog(ctx context.Context, db *gorm.DB, now time.Time) (BacklogInfo, error) {
	var b BacklogInfo
	q := db.WithContext(ctx)
	if err := q.Model(&domain.Candidature{}).Where("status = ?", domain.CandidaturePending).Count(&b.PendingCandidatures).Error; err != nil {
		return b, err
	}
	if err := q.Model(&domain.Candidature{}).Where("status = ? AND expires_at <= ?", domain.CandidaturePending, now.UTC()).Count(&b.OverdueCandidatures).Error; err != nil {
		return b, err
	}
	if err := q.Model(&domain.Placement{}).Where("status = ?", domain.PlacementPending).Count(&b.PendingPlacements).Error; err != nil {
		return b, err
	}
	if err := q.Model(&domain.PaymentRequest{}).Where("status = ?", domain.PaymentPending).Count(&b.PendingPaymentRequests).Error; err != nil {
		return b, err
	}
	return b, nil
}

func httpPing(ctx context.Context, url string, timeout time.Duration) *int64 {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	ms := time.Since(start).Milliseconds()
	return &ms
}
