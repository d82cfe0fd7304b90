// Command modewatch tails MODE_SWITCHED events from NATS and prints one line per switch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/events"
	pktNats "ai-tutor-be/pkg/nats"
)

func main() {
	durable := flag.String("durable", "modewatch", "durable consumer name")
	session := flag.String("session", "", "only print switches of this session")
	flag.Parse()

	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("Error: NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction()))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, events.TypeModeSwitched, *durable, func(ctx context.Context, e events.Event) error {
		sid := events.StringField(e, events.KeySessionID)
		if *session != "" && sid != *session {
			return nil
		}
		from := events.StringField(e, events.KeyFromMode)
		if from == "" {
			from = "-"
		}
		fmt.Printf("%s  %-36s  %-7s -> %-7s  (%s)\n",
			e.Timestamp().Format("2006-01-02 15:04:05"),
			sid, from, events.StringField(e, events.KeyToMode), events.StringField(e, events.KeyTrigger))
		return nil
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	<-ctx.Done()
}
