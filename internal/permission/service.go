package permission

import (
	"context"

	"go.uber.org/zap"
)

// Service resolves group permissions through the injected cache.
type Service struct {
	registry *Registry
	cache    Cache
	logger   *zap.Logger
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(registry *Registry, cache Cache, opts ...Option) *Service {
	s := &Service{registry: registry, cache: cache, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PermissionsFor returns the grants of a group, serving from the cache
// when possible. Cache failures degrade to the registry.
func (s *Service) PermissionsFor(ctx context.Context, group string) []string {
	perms, hit, err := s.cache.Get(ctx, group)
	if err != nil {
		s.logger.Warn("permission cache read failed", zap.String("group", group), zap.Error(err))
	} else if hit {
		return perms
	}

	perms = s.registry.Permissions(group)
	if err := s.cache.Set(ctx, group, perms); err != nil {
		s.logger.Warn("permission cache write failed", zap.String("group", group), zap.Error(err))
	}
	return perms
}

// Allowed reports whether any of the groups grants the permission.
func (s *Service) Allowed(ctx context.Context, groups []string, perm string) bool {
	for _, group := range groups {
		for _, granted := range s.PermissionsFor(ctx, group) {
			if granted == perm {
				return true
			}
		}
	}
	return false
}
