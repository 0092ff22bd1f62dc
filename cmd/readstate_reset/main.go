package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zetta/internal/database"
	"zetta/internal/domain/notification"
)

func main() {
	userID := flag.String("user", "", "owner id whose read markers are cleared")
	all := flag.Bool("all", false, "clear read markers of every owner (sql backend only)")
	flag.Parse()

	if *userID == "" && !*all {
		log.Fatal("one of -user or -all is required")
	}

	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if strings.EqualFold(os.Getenv("READSTATE_BACKEND"), "redis") {
		if *all {
			log.Fatal("-all is not supported with READSTATE_BACKEND=redis")
		}
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
		defer rdb.Close()

		p := notification.NewRedisPersister(rdb, os.Getenv("REDIS_PREFIX")+"zetta:")
		if err := p.Clear(ctx, *userID); err != nil {
			log.Fatalf("clear read-state failed: %v", err)
		}
		log.Printf("read-state reset: user=%s backend=redis", *userID)
		return
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := database.Connect(databaseURL, zap.NewNop())
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	p := notification.NewSQLPersister(db)
	if err := p.Migrate(); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	if *all {
		removed, err := p.ClearAll(ctx)
		if err != nil {
			log.Fatalf("clear read-state failed: %v", err)
		}
		log.Printf("read-state reset: all owners, read_markers=%d", removed)
		return
	}

	if err := p.Clear(ctx, *userID); err != nil {
		log.Fatalf("clear read-state failed: %v", err)
	}
	log.Printf("read-state reset: user=%s backend=sql", *userID)
}
