package handlers

import (
	"context"
	"net/http"
	"time"

	"photoquest/internal/domain"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool and events.NATSPublisher.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WalletReader is satisfied by *service.LedgerService.
type WalletReader interface {
	GetWallet(ctx context.Context) (*domain.AdminWallet, error)
}

// Dependency is one named readiness check. A failing optional dependency
// degrades the report without taking the instance out of rotation.
type Dependency struct {
	Name     string
	Optional bool
	Check    func(ctx context.Context) (string, error)
}

// PingDependency wraps a Pinger.
func PingDependency(name string, p Pinger, optional bool) Dependency {
	return Dependency{
		Name:     name,
		Optional: optional,
		Check: func(ctx context.Context) (string, error) {
			return "up", p.Ping(ctx)
		},
	}
}

// LedgerDependency reads the admin wallet.
func LedgerDependency(w WalletReader) Dependency {
	return Dependency{
		Name: "ledger",
		Check: func(ctx context.Context) (string, error) {
			wallet, err := w.GetWallet(ctx)
			if err != nil {
				return "", err
			}
			return "wallet " + wallet.TotalRevenue.StringFixed(2), nil
		},
	}
}

type HealthHandler struct {
	db      Pinger
	deps    []Dependency
	started time.Time
	version string
}

func NewHealthHandler(db Pinger, version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{db: db, deps: deps, started: time.Now(), version: version}
}

// ReadinessReport is the /readyz body.
type ReadinessReport struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// Liveness never touches dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness runs every dependency check. Status is "ready", "degraded"
// (optional failures only) or "unavailable" (503).
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	report := ReadinessReport{
		Status:  "ready",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Checks:  make(map[string]string, len(h.deps)+1),
	}

	all := append([]Dependency{PingDependency("database", h.db, false)}, h.deps...)
	for _, d := range all {
		detail, err := d.Check(ctx)
		switch {
		case err == nil:
			report.Checks[d.Name] = detail
		case d.Optional:
			report.Checks[d.Name] = "degraded: " + err.Error()
			if report.Status == "ready" {
				report.Status = "degraded"
			}
		default:
			report.Checks[d.Name] = "down: " + err.Error()
			report.Status = "unavailable"
		}
	}

	code := http.StatusOK
	if report.Status == "unavailable" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

// Health only pings the database.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
