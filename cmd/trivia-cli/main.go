package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-backend/internal/cli"
	"trivia-backend/internal/models"
)

func main() {
	dbPath := flag.String("db", "trivia.db", "SQLite file holding the local profile")
	device := flag.String("device", "local", "device id used for the guest profile")
	sport := flag.String("sport", "", "basketball or soccer (defaults to the profile's preferred sport)")
	count := flag.Int("n", 10, "number of questions")
	questionTime := flag.Duration("time", 30*time.Second, "time limit per question")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Run(ctx, os.Stdin, os.Stdout, cli.Options{
		DBPath:        *dbPath,
		DeviceID:      *device,
		Sport:         models.Sport(*sport),
		Count:         *count,
		QuestionTime:  *questionTime,
		FeedbackDelay: 1500 * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
