package models

import (
	"fmt"
	"strconv"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/utils"
)

// Write-behind cache over the stock ledger. The cache is an optimization,
// never a source of truth: every failure here is logged and swallowed, and a
// miss means "unknown", not zero.

func stockCacheKey(menuId int) string {
	return "StockLedger:" + fmt.Sprint(menuId)
}

// CacheStock stores the last known quantity with a bounded TTL.
func CacheStock(menuId int, quantity int64) {
	key := stockCacheKey(menuId)
	if err := config.SetRedisValue(key, strconv.FormatInt(quantity, 10), utils.GetCacheLifespan()); err != nil {
		config.LogError(config.GetLogger(), "models", "CacheStock", key, quantity, err)
	}
}

// GetStockFromCache returns (quantity, found). found=false covers misses,
// parse failures and cache errors alike; callers fall back to the ledger.
func GetStockFromCache(menuId int) (int64, bool) {
	key := stockCacheKey(menuId)
	val, found, err := config.GetRedisValue(key)
	if err != nil {
		config.LogError(config.GetLogger(), "models", "GetStockFromCache", key, nil, err)
		return 0, false
	}
	if !found {
		return 0, false
	}
	quantity, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		config.LogError(config.GetLogger(), "models", "GetStockFromCache", key, val, err)
		return 0, false
	}
	return quantity, true
}

// UpdateStockInCache refreshes the cached quantity after a ledger commit.
func UpdateStockInCache(menuId int, quantity int64) {
	CacheStock(menuId, quantity)
}

// EvictStockFromCache drops the cached quantity, used when a menu is purged.
func EvictStockFromCache(menuId int) {
	if err := config.RemoveRedisKey(stockCacheKey(menuId)); err != nil {
		config.LogError(config.GetLogger(), "models", "EvictStockFromCache", stockCacheKey(menuId), nil, err)
	}
}
