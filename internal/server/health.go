package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/eduroute/backend/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies database connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph database: %w", err)
	}
	return nil
}

// HealthChecks probes every check and reports all failures together.
type HealthChecks []HealthService

// Probe implements the HealthService interface.
func (hc HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for _, check := range hc {
		if check == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
