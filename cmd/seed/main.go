// cmd/seed inserts fixture events and prints bearer tokens for local
// testing. Events are owned by the external event service in
// production; this stand-in fills the read-only snapshot table.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/afif-main/event-campus/internal/auth"
	"github.com/afif-main/event-campus/internal/config"
	"github.com/afif-main/event-campus/internal/database"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(cfg.DB.DSN()); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	organizerID := uuid.New().String()
	deadline := time.Now().Add(7 * 24 * time.Hour)
	smallCap := 2

	events := []struct {
		title    string
		capacity *int
		deadline *time.Time
	}{
		{"Intro to Distributed Systems", &smallCap, &deadline},
		{"Campus Hack Night", nil, &deadline},
		{"Closed Workshop", &smallCap, ptr(time.Now().Add(-time.Hour))},
	}

	for _, e := range events {
		id := uuid.New().String()
		_, err := pool.Exec(ctx,
			`INSERT INTO events (id, title, capacity, registration_deadline, organizer_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, now())
			 ON CONFLICT (id) DO NOTHING`,
			id, e.title, e.capacity, e.deadline, organizerID,
		)
		if err != nil {
			log.Fatalf("seed event %q: %v", e.title, err)
		}
		log.Printf("event %q -> %s", e.title, id)
	}

	for _, id := range []auth.Identity{
		{ID: organizerID, Role: "organizer"},
		{ID: uuid.New().String(), Role: auth.RoleAdmin},
		{ID: uuid.New().String(), Role: "user"},
	} {
		token, err := auth.SignToken(cfg.JWTSecret, id, 24*time.Hour)
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		log.Printf("%s token (%s):\n%s", id.Role, id.ID, token)
	}
}

func ptr[T any](v T) *T { return &v }
