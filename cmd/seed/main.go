package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/dental-scheduling/internal/db"
	"github.com/clinicdesk/dental-scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDentists(context.Background(), pool, 25); err != nil {
		log.Fatalf("seed dentists: %v", err)
	}
	if err := seedTreatments(context.Background(), pool); err != nil {
		log.Fatalf("seed treatments: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDentists(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d dentists", count)

	templates := []schedule.WorkingHours{
		{
			time.Monday:    {Open: "09:00", Close: "17:00"},
			time.Tuesday:   {Open: "09:00", Close: "17:00"},
			time.Wednesday: {Open: "09:00", Close: "17:00"},
			time.Thursday:  {Open: "09:00", Close: "17:00"},
			time.Friday:    {Open: "09:00", Close: "14:00"},
		},
		{
			time.Monday:    {Open: "08:00", Close: "12:00"},
			time.Tuesday:   {Open: "08:00", Close: "12:00"},
			time.Thursday:  {Open: "13:00", Close: "19:00"},
			time.Friday:    {Open: "13:00", Close: "19:00"},
			time.Saturday:  {Open: "09:00", Close: "13:00"},
		},
		{
			time.Tuesday:   {Open: "10:00", Close: "18:00"},
			time.Wednesday: {Open: "10:00", Close: "18:00"},
			time.Thursday:  {Open: "10:00", Close: "18:00"},
		},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		hours := templates[gofakeit.Number(0, len(templates)-1)]

		hoursJSON, err := json.Marshal(hours)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO dentists (id, name, active, working_hours, created_at, updated_at)
			VALUES ($1, $2, true, $3, now(), now())
		`, id, name, hoursJSON)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("dentists seeded")
	return nil
}

func seedTreatments(ctx context.Context, pool *pgxpool.Pool) error {
	catalog := []struct {
		name    string
		minutes int
	}{
		{"Check-up", 15},
		{"Hygiene cleaning", 30},
		{"Filling", 45},
		{"Root canal", 60},
		{"Extraction", 30},
		{"Crown fitting", 60},
		{"Whitening", 45},
	}

	log.Printf("seeding %d treatments", len(catalog))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range catalog {
		_, err := tx.Exec(ctx, `
			INSERT INTO treatments (id, name, duration_minutes, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, uuid.New(), t.name, t.minutes)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("treatments seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
