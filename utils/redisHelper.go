package utils

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/grocerypos/pos_backend/config"
)

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

func listKey[T any](tenantId string, version int64) string {
	return GetTypeName[T]() + "List:" + tenantId + ":" + strconv.FormatInt(version, 10)
}

func listVersionKey[T any](tenantId string) string {
	return GetTypeName[T]() + "ListVersion:" + tenantId
}

// RedisListVersion returns the generation a tenant's list is cached under.
// Read it before loading the list from the database and store under the same version,
// so a list loaded before an invalidation can never be served after it.
func RedisListVersion[T any](ctx context.Context, tenantId string) (int64, error) {
	val, found, err := config.GetRedisValue(ctx, listVersionKey[T](tenantId))
	if err != nil || !found {
		return 0, err
	}
	version, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", listVersionKey[T](tenantId), err)
	}
	return version, nil
}

// StoreRedisList caches a tenant's list under TypeList:$tenant_id:$version.
func StoreRedisList[T any](ctx context.Context, list []*T, tenantId string, version int64) error {
	return config.SetRedisObject(ctx, listKey[T](tenantId, version), &list, config.CacheLifespan())
}

// RetrieveRedisList returns nil when the list is not cached.
func RetrieveRedisList[T any](ctx context.Context, tenantId string, version int64) ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(ctx, listKey[T](tenantId, version), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// RemoveRedisList moves the tenant to a new list version and drops the previous entry.
func RemoveRedisList[T any](ctx context.Context, tenantId string) error {
	version, err := config.IncrRedisValue(ctx, listVersionKey[T](tenantId))
	if err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	return config.RemoveRedisKey(ctx, listKey[T](tenantId, version-1))
}

func revokedTokenKey(tokenId string) string {
	return "RevokedToken:" + tokenId
}

// RevokeToken remembers a token id until the token would have expired anyway.
func RevokeToken(ctx context.Context, tokenId string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return config.SetRedisValue(ctx, revokedTokenKey(tokenId), "1", ttl)
}

func IsTokenRevoked(ctx context.Context, tokenId string) (bool, error) {
	if tokenId == "" {
		return false, nil
	}
	_, found, err := config.GetRedisValue(ctx, revokedTokenKey(tokenId))
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return found, nil
}
