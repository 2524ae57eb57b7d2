package identity

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix   = "identity:dni:"
	NegativeCacheTTL = 10 * time.Minute
)

var dniPattern = regexp.MustCompile(`^\d{8}$`)

type IdentityService interface {
	LookupDNI(ctx context.Context, dni string) (*Person, error)
}

type identityService struct {
	registry Registry
	cache    *redis.Client
	ttl      time.Duration
	log      *logger.Logger
}

// NewIdentityService caches registry answers in Redis when cache is not nil.
func NewIdentityService(registry Registry, cache *redis.Client, ttl time.Duration, log *logger.Logger) IdentityService {
	return &identityService{
		registry: registry,
		cache:    cache,
		ttl:      ttl,
		log:      log,
	}
}

// LookupDNI never fails because of the registry: an unreachable upstream is
// reported as not found so the booking form simply stays empty.
func (s *identityService) LookupDNI(ctx context.Context, dni string) (*Person, error) {
	if !dniPattern.MatchString(dni) {
		return nil, apperrors.Validation("Invalid DNI", map[string]any{"dni": "must be exactly 8 digits"})
	}

	if cached, ok := s.fromCache(ctx, dni); ok {
		return cached, nil
	}

	if s.registry == nil {
		return &Person{DNI: dni}, nil
	}

	person, err := s.registry.Lookup(ctx, dni)
	if err != nil {
		s.log.Warn("identity registry lookup failed",
			"error", err,
			"upstream", errors.Is(err, ErrUpstream),
		)
		return &Person{DNI: dni}, nil
	}

	ttl := s.ttl
	if !person.Found {
		ttl = NegativeCacheTTL
	}
	s.store(ctx, dni, person, ttl)
	return person, nil
}

func (s *identityService) fromCache(ctx context.Context, dni string) (*Person, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, cacheKeyPrefix+dni).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("identity cache read failed", "error", err)
		}
		return nil, false
	}
	var person Person
	if err := json.Unmarshal(data, &person); err != nil {
		return nil, false
	}
	return &person, true
}

func (s *identityService) store(ctx context.Context, dni string, person *Person, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(person)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+dni, data, ttl).Err(); err != nil {
		s.log.Warn("identity cache write failed", "error", err)
	}
}
