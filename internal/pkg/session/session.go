package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ivarnor/akidsy/internal/pkg/cache"
	"github.com/ivarnor/akidsy/internal/pkg/env"
)

// sessions live in Redis DB 1; the cache occupies DB 0
const sessionRedisDB = 1

var sessionStore *session.Store

// NewSessionStore builds the Redis-backed session store. The connection
// parameters are derived from the already configured cache client so both
// point at the same Redis instance.
func NewSessionStore() *session.Store {
	sessionStore = session.New(session.Config{
		Storage:        sessionStorage(),
		CookieHTTPOnly: true,
		// CookieSecure:   true, // Enable in production with HTTPS
		Expiration: time.Hour * 24,
		KeyLookup:  "cookie:session_id",
	})
	return sessionStore
}

func sessionStorage() *redis.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: sessionRedisDB,
		Reset:    false,
	})
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// SetSessionValue stores a key-value pair in the user's session
func SetSessionValue(c *fiber.Ctx, key string, value string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue reads a string value from the user's session; missing or
// non-string values come back empty.
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	if s, ok := sess.Get(key).(string); ok {
		return s
	}
	return ""
}
