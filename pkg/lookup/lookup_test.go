package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/recordstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFinder struct {
	export *recordstore.Export
	keys   []string
	err    error
}

func (f *countingFinder) FindByKey(ctx context.Context, key string) (model.BusinessRecord, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return model.BusinessRecord{}, f.err
	}
	return f.export.FindByKey(ctx, key)
}

type mapCache struct {
	entries map[string]model.LookupResponse
	err     error
}

func (m *mapCache) Get(_ context.Context, key string) (model.LookupResponse, bool, error) {
	if m.err != nil {
		return model.LookupResponse{}, false, m.err
	}
	resp, ok := m.entries[key]
	return resp, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, resp model.LookupResponse) error {
	if m.err != nil {
		return m.err
	}
	m.entries[key] = resp
	return nil
}

func newFinder() *countingFinder {
	return &countingFinder{export: recordstore.NewExport([]model.BusinessRecord{
		{ID: "rec1", Name: "Blue Sky", Phone: "555-0100"},
		{ID: "rec2", Name: "Other", Address: "2 Side St", Subdomain: "blue-sky.gowso.online", Provisioned: true},
	})}
}

func TestResolvePrefersSubdomain(t *testing.T) {
	svc := NewService(newFinder(), nil)

	resp, err := svc.Resolve(context.Background(), "Blue-Sky")
	require.NoError(t, err)
	assert.Equal(t, model.LookupResponse{BusinessName: "Other", Address: "2 Side St"}, resp)
}

func TestResolveDoesNotLeakInternals(t *testing.T) {
	svc := NewService(newFinder(), nil)

	resp, err := svc.Resolve(context.Background(), "blue-sky")
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.ElementsMatch(t, []string{"business_name", "address", "phone", "maps_url"}, keys(fields))
}

func keys(m map[string]interface{}) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestResolveSanitizesKey(t *testing.T) {
	finder := newFinder()
	svc := NewService(finder, nil)

	_, err := svc.Resolve(context.Background(), "blue-sky'; DROP")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"blue-skydrop"}, finder.keys)

	_, err = svc.Resolve(context.Background(), "'!@#")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Len(t, finder.keys, 1)
}

func TestResolvePassesStoreErrors(t *testing.T) {
	storeErr := &model.RecordStoreError{Op: "find business", Message: "HTTP 503: busy"}
	svc := NewService(&countingFinder{err: storeErr}, nil)

	_, err := svc.Resolve(context.Background(), "acme")
	assert.Same(t, storeErr, err)
}

func TestResolveQuery(t *testing.T) {
	finder := newFinder()
	svc := NewService(finder, nil)

	_, key, err := svc.ResolveQuery(context.Background(), "ignored", "Blue-Sky.gowso.online")
	require.NoError(t, err)
	assert.Equal(t, "blue-sky", key)

	_, key, err = svc.ResolveQuery(context.Background(), "nobody", "!!!")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "nobody", key)

	_, _, err = svc.ResolveQuery(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestResolveUsesCache(t *testing.T) {
	finder := newFinder()
	cache := &mapCache{entries: map[string]model.LookupResponse{}}
	svc := NewService(finder, cache)

	first, err := svc.Resolve(context.Background(), "blue-sky")
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), "BLUE-SKY")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, finder.keys, 1)
	assert.Contains(t, cache.entries, "blue-sky")

	_, err = svc.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, cache.entries, "nobody")
}

func TestResolveIgnoresCacheFailures(t *testing.T) {
	finder := newFinder()
	svc := NewService(finder, &mapCache{err: errors.New("connection refused")})

	resp, err := svc.Resolve(context.Background(), "blue-sky")
	require.NoError(t, err)
	assert.Equal(t, "Other", resp.BusinessName)
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	svc := NewService(newFinder(), NewRedisCache(client, time.Minute))
	resp, err := svc.Resolve(context.Background(), "blue-sky")
	require.NoError(t, err)
	assert.Equal(t, "Other", resp.BusinessName)

	_, err = DialRedis(context.Background(), "127.0.0.1:1", "", 0)
	assert.ErrorContains(t, err, "redis connection to 127.0.0.1:1 failed")
}
