// Package lookup resolves the public details of a business from a subdomain label or a name.
package lookup

import (
	"context"
	"errors"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/gowso/bizsites/pkg/subdomain"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidKey = errors.New("business or subdomain parameter is required")
	ErrNotFound   = errors.New("business not found")
)

type Service struct {
	finder recordstore.Finder
	cache  Cache
}

// NewService creates a lookup service. cache may be nil.
func NewService(finder recordstore.Finder, cache Cache) *Service {
	return &Service{
		finder: finder,
		cache:  cache,
	}
}

// Resolve sanitizes key and returns the matching business. Characters outside [a-z0-9-] are dropped, not rejected.
func (s *Service) Resolve(ctx context.Context, key string) (model.LookupResponse, error) {
	key = subdomain.SanitizeKey(key)
	if key == "" {
		return model.LookupResponse{}, ErrInvalidKey
	}

	if s.cache != nil {
		resp, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logrus.Warnf("Lookup cache read failed for %s: %v", key, err)
		} else if ok {
			return resp, nil
		}
	}

	rec, err := s.finder.FindByKey(ctx, key)
	if errors.Is(err, recordstore.ErrNotFound) {
		return model.LookupResponse{}, ErrNotFound
	} else if err != nil {
		return model.LookupResponse{}, err
	}

	resp := rec.Public()
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			logrus.Warnf("Lookup cache write failed for %s: %v", key, err)
		}
	}
	return resp, nil
}

// ResolveQuery resolves the subdomain parameter when it survives sanitizing and falls back to the business one.
// A full host name is accepted for sub; only its first label is used. The key actually queried is returned
// alongside the result.
func (s *Service) ResolveQuery(ctx context.Context, business, sub string) (model.LookupResponse, string, error) {
	key := subdomain.SanitizeKey(subdomain.LabelOf(sub))
	if key == "" {
		key = subdomain.SanitizeKey(business)
	}
	resp, err := s.Resolve(ctx, key)
	return resp, key, err
}
