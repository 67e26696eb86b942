package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/airyou-code/ai-nutritiolog-bot/handlers"
	"github.com/airyou-code/ai-nutritiolog-bot/nutrition"
	"github.com/airyou-code/ai-nutritiolog-bot/storage"
	"github.com/airyou-code/ai-nutritiolog-bot/utils"
)

// Load environment variables from .env file
func init() {
	err := godotenv.Load()
	if err != nil {
		zap.S().Warn("Error loading .env file")
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	logger.Info("Starting nutritiolog server")

	// Analysis cache: Redis when reachable, in-memory otherwise.
	var cache nutrition.Cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:        os.Getenv("REDIS_HOST"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          0,
		DialTimeout: 20 * time.Second, // initial connection timeout
	})

	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelRedis()

	if _, err := redisClient.Ping(redisCtx).Result(); err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory analysis cache", zap.Error(err))
		cache = nutrition.NewMemoryCache()
	} else {
		logger.Info("Successfully connected to Redis")
		cache = nutrition.NewRedisCache(redisClient)
	}

	dbPath := os.Getenv("SQLITE_PATH")
	if dbPath == "" {
		dbPath = "nutritiolog.db"
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		logger.Fatal("Failed to open sqlite storage", zap.Error(err))
	}
	defer store.Close()

	oracle := utils.NewOpenAIClient()

	// Similar-food grounding is optional: the analyzer tolerates a nil index.
	var foods nutrition.SimilarFoodIndex
	if index, err := utils.NewFoodIndex(oracle); err != nil {
		logger.Warn("Pinecone index unavailable, similar-food grounding disabled", zap.Error(err))
	} else {
		foods = index
	}

	gateway := &handlers.Gateway{
		Pipeline: &handlers.Pipeline{
			Classifier: nutrition.NewClassifier(oracle),
			Analyzer:   nutrition.NewAnalyzer(oracle, cache, foods),
			Store:      store,
		},
		Diary: store,
	}

	// Voice input is optional too.
	if transcriber, err := utils.NewTranscriber(os.Getenv("DEEPGRAM_LANGUAGE")); err != nil {
		logger.Warn("Deepgram unavailable, voice input disabled", zap.Error(err))
	} else {
		gateway.Transcriber = transcriber
	}

	http.HandleFunc("/food-session", gateway.HandleFoodSession)
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Set up signal handling
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverExit := make(chan struct{})

	// Start HTTP server in a goroutine
	go func() {
		port := ":" + os.Getenv("PORT")
		if port == ":" {
			port = ":8080"
		}
		logger.Info("Starting server", zap.String("port", port))
		if err := http.ListenAndServe(port, nil); err != nil {
			logger.Error("Server exited", zap.Error(err))
		}
		close(serverExit)
	}()

	select {
	case <-stop:
		logger.Info("Shutting down server...")
	case <-serverExit:
		logger.Info("Server exited unexpectedly...")
	}

	logger.Info("Server shut down gracefully")
}
