package health

import (
	"context"
	"maps"
	"slices"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const databaseCheck = "database"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	checks map[string]Checker
}

// New creates a Service.
func New(db DBPinger) *Service {
	return &Service{db: db, checks: make(map[string]Checker)}
}

// WithCheck registers an additional component check under name.
func (s *Service) WithCheck(name string, c Checker) *Service {
	if c != nil && name != databaseCheck {
		s.checks[name] = c
	}
	return s
}

// Check runs health checks against all components.
// A database failure is Unhealthy; a failure of any other component is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks)+1)

	if err := s.db.Ping(ctx); err != nil {
		checks[databaseCheck] = CheckError
	} else {
		checks[databaseCheck] = CheckOK
	}

	for _, name := range slices.Sorted(maps.Keys(s.checks)) {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[databaseCheck] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
