package utils

import (
	"os"
	"strconv"
	"time"
)

// GetCacheLifespan returns the TTL for cached stock quantities (CACHE_LIFESPAN hours, default 1h).
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}
