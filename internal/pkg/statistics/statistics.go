package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ivarnor/akidsy/app/models"
	"github.com/ivarnor/akidsy/internal/pkg/cache"
	"github.com/ivarnor/akidsy/internal/pkg/database"
)

const (
	CacheKeyUsersTotal   = "statistics:users:total"
	CacheKeyMembersTotal = "statistics:members:total"
	CacheKeyContentTotal = "statistics:content:total"
	CacheKeyViewsTotal   = "statistics:views:total"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the admin dashboard
type StatisticsData struct {
	TotalUsers   int
	TotalMembers int
	TotalContent int
	TotalViews   int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cache is older than the refresh interval
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when it is stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var totalMembers int64
	if err := db.Model(&models.Membership{}).Where("is_member = ?", true).Count(&totalMembers).Error; err != nil {
		log.Printf("Error counting members: %v", err)
		return err
	}

	var totalContent int64
	if err := db.Model(&models.Content{}).Count(&totalContent).Error; err != nil {
		log.Printf("Error counting content items: %v", err)
		return err
	}

	type viewSum struct {
		Total int64
	}
	var vs viewSum
	if err := db.Model(&models.Content{}).Select("COALESCE(SUM(views), 0) AS total").Scan(&vs).Error; err != nil {
		log.Printf("Error summing content views: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyMembersTotal, strconv.FormatInt(totalMembers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyContentTotal, strconv.FormatInt(totalContent, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyViewsTotal, strconv.FormatInt(vs.Total, 10), CacheExpiration); err != nil {
		return err
	}

	log.Printf("Statistics updated in cache: Users: %d, Members: %d, Content: %d, Views: %d",
		totalUsers, totalMembers, totalContent, vs.Total)

	return nil
}

// cachedCount returns a cached counter, falling back to the loader on miss
func cachedCount(key string, load func() (int64, error)) int {
	val, err := cache.Get(key)
	if err != nil {
		count, err := load()
		if err != nil {
			log.Printf("Error loading statistic %s: %v", key, err)
			return 0
		}

		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching statistic %s: %v", key, err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	return cachedCount(CacheKeyUsersTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.User{}).Count(&count).Error
		return count, err
	})
}

// GetTotalMembers returns the number of entitled members from cache or database
func GetTotalMembers() int {
	return cachedCount(CacheKeyMembersTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Membership{}).Where("is_member = ?", true).Count(&count).Error
		return count, err
	})
}

// GetTotalContent returns the catalog size from cache or database
func GetTotalContent() int {
	return cachedCount(CacheKeyContentTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Content{}).Count(&count).Error
		return count, err
	})
}

// GetTotalViews returns the summed view counter from cache or database
func GetTotalViews() int {
	return cachedCount(CacheKeyViewsTotal, func() (int64, error) {
		type viewSum struct {
			Total int64
		}
		var vs viewSum
		err := database.GetDB().Model(&models.Content{}).Select("COALESCE(SUM(views), 0) AS total").Scan(&vs).Error
		return vs.Total, err
	})
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalUsers:   GetTotalUsers(),
		TotalMembers: GetTotalMembers(),
		TotalContent: GetTotalContent(),
		TotalViews:   GetTotalViews(),
	}
}
