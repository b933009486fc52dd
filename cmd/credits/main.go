package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"iconforge/internal/infra"
	"iconforge/internal/ledger"
)

// credits prints or tops up an account balance outside the payment flow, for
// support refunds and manual grants.
func main() {
	var (
		emailFlag string
		grantFlag int
	)
	flag.StringVar(&emailFlag, "email", "", "account email")
	flag.IntVar(&grantFlag, "grant", 0, "credits to add (0 only prints the balance)")
	flag.Parse()

	_ = godotenv.Load()

	email := strings.TrimSpace(emailFlag)
	if email == "" {
		exitWithError(errors.New("-email is required"))
	}
	if grantFlag < 0 {
		exitWithError(errors.New("-grant must not be negative"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Logger()
	svc, err := ledger.NewService(ledger.Options{
		Store:  ledger.NewPostgresStore(infra.NewSQLRunner(pool, logger)),
		Logger: &logger,
	})
	if err != nil {
		exitWithError(err)
	}

	balance, err := svc.Balance(ctx, email)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load balance: %w", err))
	}
	if grantFlag > 0 {
		if balance, err = svc.Credit(ctx, email, grantFlag); err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		fmt.Printf("granted %d credits to %s\n", grantFlag, email)
	}
	fmt.Printf("balance=%d\n", balance)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
