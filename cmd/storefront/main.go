package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	c "github.com/himspired1/himspired-sub000/internal/cache"
	"github.com/himspired1/himspired-sub000/internal/catalog"
	"github.com/himspired1/himspired-sub000/internal/httpapi"
	"github.com/himspired1/himspired-sub000/internal/inventory"
	"github.com/himspired1/himspired-sub000/internal/notify"
	"github.com/himspired1/himspired-sub000/internal/orders"
	"github.com/himspired1/himspired-sub000/internal/ratelimit"
)

func main() {
	httpPort := getEnv("HTTP_PORT", "8080")
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getEnv("MONGO_DB_NAME", "himspired")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	adminToken := getEnv("ADMIN_TOKEN", "")
	rateLimitMax := getEnvInt("RATE_LIMIT_MAX", 60)
	rateLimitWindow := time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second

	ctx := context.Background()

	// Mongo holds both the catalog and the orders; without it there is
	// nothing to serve.
	db, err := catalog.ConnectMongoDB(ctx, mongoURI, mongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", mongoURI)

	productStore := catalog.NewMongoStore(db)
	orderStore := orders.NewMongoStore(db)

	// Redis is an accelerator only: if it is down we run on the
	// in-process cache and direct store reads.
	memCache := c.NewMemoryCache()
	defer memCache.Close()

	var appCache c.Cache = memCache
	var counterStore ratelimit.CounterStore

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unreachable at %s, degrading to in-process cache: %v", redisAddr, err)
		memCounters := ratelimit.NewMemoryCounterStore()
		defer memCounters.Close()
		counterStore = memCounters
	} else {
		appCache = c.NewFailover(c.NewRedisCache(redisClient), memCache)
		counterStore = ratelimit.NewRedisCounterStore(redisClient)
		log.Printf("Redis ping succeeded")
	}

	var notifier notify.Notifier = notify.Nop{}
	if kafkaBrokers != "" {
		kn := notify.NewKafkaNotifier(splitBrokers(kafkaBrokers)...)
		defer kn.Close()
		notifier = kn
		log.Printf("Publishing stock events to %s", kafkaBrokers)
	}

	invService := inventory.NewService(productStore, orderStore, appCache, notifier)
	orderService := orders.NewService(orderStore, invService)

	limiter := ratelimit.NewLimiter(counterStore, rateLimitMax, rateLimitWindow)
	handler := httpapi.NewInventoryHandler(invService, orderService)
	router := httpapi.NewRouter(handler, limiter, httpapi.RouterConfig{
		AdminToken:     adminToken,
		RequestTimeout: 15 * time.Second,
	})

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront inventory service listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := db.Client().Disconnect(ctx); err != nil {
		log.Printf("mongo disconnect error: %v", err)
	}
	log.Println("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
