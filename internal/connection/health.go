package connection

import (
	"context"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/retry"
	"github.com/rs/zerolog"
)

// Reason classifies a health check outcome
type Reason string

const (
	ReasonOK       Reason = "ok"
	ReasonOffline  Reason = "offline"
	ReasonTimeout  Reason = "timeout"
	ReasonNetwork  Reason = "network"
	ReasonBackend  Reason = "backend"
	ReasonDegraded Reason = "degraded"
)

// CheckResult is the outcome of a backend health check.
// Connected and Partial are never both set.
type CheckResult struct {
	Connected bool
	Partial   bool
	Err       error
	Message   string
	Reason    Reason
}

// Checker verifies that the backend is usable, not just reachable.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// HealthBackend is the subset of the backend client a health check needs.
type HealthBackend interface {
	GetSession(ctx context.Context) (*domain.AuthResponse, error)
	CountRows(ctx context.Context, table string) (int64, error)
}

// HealthChecker asks the auth service for the current session and then
// counts rows in a cheap table to confirm the data tier.
type HealthChecker struct {
	backend        HealthBackend
	network        NetworkStatus
	sessionTimeout time.Duration
	tableTimeout   time.Duration
	logger         zerolog.Logger
}

// NewHealthChecker creates a checker bounding the session call by
// sessionTimeout and the table count by tableTimeout
func NewHealthChecker(backend HealthBackend, network NetworkStatus, sessionTimeout, tableTimeout time.Duration, logger zerolog.Logger) *HealthChecker {
	return &HealthChecker{
		backend:        backend,
		network:        network,
		sessionTimeout: sessionTimeout,
		tableTimeout:   tableTimeout,
		logger:         logger,
	}
}

// Check verifies the session endpoint and then the data service. It
// never fails; problems are reported in the result.
func (h *HealthChecker) Check(ctx context.Context) CheckResult {
	if h.network != nil && !h.network.Online() {
		return CheckResult{Err: retry.ErrOffline, Message: MsgOffline, Reason: ReasonOffline}
	}

	_, err := retry.WithTimeout(ctx, h.sessionTimeout, h.backend.GetSession)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Session check failed")
		switch {
		case retry.IsTimeout(err):
			return CheckResult{Partial: true, Err: err, Message: MsgSlow, Reason: ReasonTimeout}
		case retry.IsNetworkError(err):
			return CheckResult{Err: err, Message: MsgNetwork, Reason: ReasonNetwork}
		default:
			return CheckResult{Err: err, Message: err.Error(), Reason: ReasonBackend}
		}
	}

	_, err = retry.WithTimeout(ctx, h.tableTimeout, func(ctx context.Context) (int64, error) {
		return h.backend.CountRows(ctx, domain.TableServiceConnections)
	})
	if err != nil {
		h.logger.Debug().Err(err).Msg("Table check failed")
		return CheckResult{Partial: true, Err: err, Message: MsgDegraded, Reason: ReasonDegraded}
	}

	return CheckResult{Connected: true, Reason: ReasonOK}
}
