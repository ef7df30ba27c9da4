// Package main implements a standalone seed script that populates the
// ticketpay database with a batch of realistic open tickets: cafe-style
// menu items, mixed portions, and a sprinkling of discounts.
//
// Run: go run scripts/seed_tickets.go
//   (from the repo root, or: cd scripts && go run seed_tickets.go)
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const totalTickets = 200

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// deterministicUUID produces a stable UUID-shaped string from a namespace and
// an integer index so that re-runs always produce the same ticket IDs.
func deterministicUUID(namespace string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", namespace, index)))
	hex := fmt.Sprintf("%x", h[:16])
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

type menuItem struct {
	id       string
	name     string
	portions []portion
}

type portion struct {
	name  string
	price string
}

var menu = []menuItem{
	{id: "item-toast", name: "Toast", portions: []portion{{"Single", "5"}, {"Double", "8.5"}}},
	{id: "item-hamburger", name: "Hamburger", portions: []portion{{"Regular", "7"}}},
	{id: "item-cheeseburger", name: "Cheeseburger", portions: []portion{{"Regular", "8"}}},
	{id: "item-lemonade", name: "Lemonade", portions: []portion{{"Small", "2.5"}, {"Large", "4"}}},
	{id: "item-tea", name: "Tea", portions: []portion{{"Cup", "1.5"}}},
	{id: "item-soup", name: "Soup of the Day", portions: []portion{{"Bowl", "4.5"}}},
	{id: "item-fries", name: "Fries", portions: []portion{{"Regular", "3"}, {"Large", "4.5"}}},
	{id: "item-salad", name: "Garden Salad", portions: []portion{{"Regular", "6"}}},
}

func main() {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "ticketpay"),
		getEnv("POSTGRES_PASSWORD", "ticketpay_secret"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("TICKETPAY_DB_NAME", "ticketpay_db"),
		getEnv("POSTGRES_SSL_MODE", "disable"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	start := time.Now()

	for i := 0; i < totalTickets; i++ {
		if err := seedTicket(ctx, pool, rng, i); err != nil {
			log.Fatalf("seed ticket %d: %v", i, err)
		}
	}

	log.Printf("seeded %d tickets in %s", totalTickets, time.Since(start).Round(time.Millisecond))
}

func seedTicket(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, index int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ticketID := deterministicUUID("ticket", index)
	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (id, number, status, currency, created_at, updated_at)
		VALUES ($1, $2, 'open', 'USD', $3, $3)
		ON CONFLICT (id) DO NOTHING`,
		ticketID, fmt.Sprintf("%04d", index+1), now,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	lineCount := 2 + rng.Intn(4)
	for l := 0; l < lineCount; l++ {
		item := menu[rng.Intn(len(menu))]
		p := item.portions[rng.Intn(len(item.portions))]

		_, err = tx.Exec(ctx, `
			INSERT INTO ticket_lines (id, ticket_id, menu_item_id, name, portion_name, portion_count, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			deterministicUUID("line", index*100+l),
			ticketID,
			item.id,
			item.name,
			p.name,
			len(item.portions),
			p.price,
			1+rng.Intn(3),
		)
		if err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
	}

	// Roughly one in five tickets carries a percentage discount.
	if rng.Intn(5) == 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO ticket_calculations (id, ticket_id, name, type, decrease, amount)
			VALUES ($1, $2, 'Happy Hour', 'percentage', TRUE, 10)
			ON CONFLICT (id) DO NOTHING`,
			deterministicUUID("calc", index), ticketID,
		)
		if err != nil {
			return fmt.Errorf("insert calculation: %w", err)
		}
	}

	return tx.Commit(ctx)
}
