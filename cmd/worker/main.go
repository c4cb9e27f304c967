package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/clock"
	"classtrack/internal/config"
	"classtrack/internal/course"
	"classtrack/internal/enrollment"
	"classtrack/internal/identity"
	"classtrack/internal/queue"
	"classtrack/internal/store"
)

// Worker finalizes closed sessions and sweeps expired ones. A session that
// closes, by hand or by the sweeper, gets an absent record for every enrolled
// student who never checked in.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var events queue.Queue
	if cfg.QueueBackend == "memory" {
		events = queue.NewInMemory(64)
	} else {
		events = queue.NewRedisQueue(redisClient.Client, "classtrack:events")
	}

	clk := clock.Real{}
	users := identity.NewService(identity.NewPGRepository(db.Client), clk)
	courses := course.NewService(course.NewPGRepository(db.Client), users, clk)
	enrollments := enrollment.NewService(enrollment.NewPGRepository(db.Client), courses, clk)
	att := attendance.NewService(attendance.NewPGRepository(db.Client), courses, enrollments, clk, cfg.CodeLength)

	go sweepLoop(ctx, att, events, cfg)

	messages, err := events.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeSessionClosed {
			continue
		}

		var payload queue.SessionClosed
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			log.Printf("malformed %s payload: %v", msg.Type, err)
			continue
		}

		marked, err := att.FinalizeAbsences(ctx, payload.SessionID)
		if err != nil {
			log.Printf("finalize session %d failed: %v", payload.SessionID, err)
			continue
		}
		log.Printf("session %d finalized, %d students marked absent", payload.SessionID, marked)
	}

	log.Println("worker stopped")
}

// sweepLoop archives active sessions whose end time has passed and queues
// each one for absence finalization.
func sweepLoop(ctx context.Context, att *attendance.Service, events queue.Queue, cfg config.App) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := att.SweepExpired(ctx)
			if err != nil {
				log.Printf("session sweep failed: %v", err)
				continue
			}
			for _, sess := range closed {
				msg, err := queue.NewMessage(queue.TypeSessionClosed, queue.SessionClosed{SessionID: sess.ID})
				if err != nil {
					log.Printf("build session.closed event failed: %v", err)
					continue
				}
				if err := events.Publish(ctx, msg); err != nil {
					log.Printf("publish session.closed event failed: %v", err)
				}
			}
			if len(closed) > 0 {
				log.Printf("sweep archived %d expired sessions", len(closed))
			}
		}
	}
}
