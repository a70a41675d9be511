// Package validation checks the server's backing services at startup and
// for the health endpoint.
package validation

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/search"
	"github.com/archivesocial/archive/backend/internal/storage"
	"go.uber.org/zap"
)

// Service names accepted in REQUIRED_SERVICES
const (
	ServiceDatabase      = "database"
	ServiceRedis         = "redis"
	ServiceElasticsearch = "elasticsearch"
	ServiceStorage       = "storage"
)

const checkTimeout = 10 * time.Second

// Check tests one service
type Check func(ctx context.Context) error

// ServiceValidator runs registered checks
type ServiceValidator struct {
	required []string
	checks   map[string]Check
}

// NewServiceValidator creates a validator; required names must pass
// ValidateServices
func NewServiceValidator(required []string) *ServiceValidator {
	return &ServiceValidator{
		required: required,
		checks:   make(map[string]Check),
	}
}

// Register adds or replaces the check for name
func (sv *ServiceValidator) Register(name string, check Check) {
	sv.checks[name] = check
}

// ValidateServices fails on the first required service whose check fails
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("required service %q is not configured", name)
		}

		if err := run(ctx, check); err != nil {
			logger.Log.Error("Required service validation failed", zap.String("service", name), zap.Error(err))
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}
		logger.Log.Info("Service validated", zap.String("service", name))
	}
	return nil
}

// Status runs every registered check and reports "ok" or the error text
// per service
func (sv *ServiceValidator) Status(ctx context.Context) map[string]string {
	names := make([]string, 0, len(sv.checks))
	for name := range sv.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(names))
	for _, name := range names {
		if err := run(ctx, sv.checks[name]); err != nil {
			status[name] = err.Error()
		} else {
			status[name] = "ok"
		}
	}
	return status
}

func run(ctx context.Context, check Check) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return check(ctx)
}

// DatabaseCheck pings the global database handle
func DatabaseCheck() Check {
	return func(ctx context.Context) error {
		return database.Health()
	}
}

// RedisCheck pings rc
func RedisCheck(rc *cache.RedisClient) Check {
	return func(ctx context.Context) error {
		if rc == nil {
			return cache.ErrNoClient
		}
		return rc.Ping(ctx)
	}
}

// ElasticsearchCheck fails on an unreachable or red cluster
func ElasticsearchCheck(es *search.Client) Check {
	return func(ctx context.Context) error {
		return es.Ping(ctx)
	}
}

// StorageCheck verifies the image store can be written. S3 stores check
// bucket access; local stores check the base directory.
func StorageCheck(store storage.ImageStore) Check {
	return func(ctx context.Context) error {
		switch s := store.(type) {
		case *storage.S3Store:
			return s.CheckBucketAccess(ctx)
		case *storage.LocalStore:
			info, err := os.Stat(s.BasePath())
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", s.BasePath())
			}
			return nil
		case nil:
			return fmt.Errorf("storage not configured")
		default:
			return nil
		}
	}
}
