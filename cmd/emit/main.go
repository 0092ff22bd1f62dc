package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zetta/internal/domain/notification"
	"zetta/internal/realtime"
)

// emit publishes fake formation-interest events the way Laravel's redis
// broadcaster does, for poking a running desk by hand.
func main() {
	name := flag.String("name", "Test Student", "requester full name")
	formation := flag.String("formation", "Web Development", "formation name")
	id := flag.String("id", "", "interest id (random when empty)")
	status := flag.String("status", "pending", "interest status")
	updated := flag.Bool("updated", false, "send FormationInterestUpdated instead of NewFormationInterest")
	count := flag.Int("count", 1, "number of events")
	flag.Parse()

	_ = godotenv.Load()

	addr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	defer rdb.Close()

	channel := getEnv("INTEREST_CHANNEL", notification.DefaultChannel)
	event := getEnv("BROADCAST_EVENT_NAMESPACE", notification.DefaultNamespace) + "NewFormationInterest"
	if *updated {
		event = getEnv("BROADCAST_EVENT_NAMESPACE", notification.DefaultNamespace) + "FormationInterestUpdated"
	}

	b := realtime.NewRedisBroadcaster(rdb, os.Getenv("REDIS_PREFIX"), 5*time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := 0; i < *count; i++ {
		interestID := *id
		if interestID == "" {
			interestID = uuid.NewString()
		}
		now := time.Now().UTC().Format(time.RFC3339)
		payload := map[string]any{
			"interest": map[string]any{
				"id":         interestID,
				"fullName":   *name,
				"email":      "student@example.com",
				"status":     *status,
				"created_at": now,
				"updated_at": now,
				"formation": map[string]any{
					"id":   1,
					"name": *formation,
				},
			},
		}
		if err := b.Publish(ctx, channel, event, payload); err != nil {
			log.Fatalf("publish failed: %v", err)
		}
		log.Printf("published %s id=%s channel=%s", event, interestID, channel)
	}
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
