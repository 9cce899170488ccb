package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/slot-booking/internal/db"
	"github.com/telecare/slot-booking/internal/timezone"
)

// Seed physicians modelled on the epidemic-consult launch roster, each with
// a week of 30-minute slots at 14:00, 15:00 and 16:00 in their own zone.
var seedPhysicians = []struct {
	name        string
	country     string
	zone        string
	specialties []string
	languages   []string
	about       string
}{
	{
		name:        "Dr. Aisha Rahman",
		country:     "Pakistan",
		zone:        "Asia/Karachi",
		specialties: []string{"Epidemiology", "Infectious Diseases", "COVID-19"},
		languages:   []string{"English", "Urdu"},
		about:       "10+ years in outbreak response and telemedicine.",
	},
	{
		name:        "Dr. Mateo Alvarez",
		country:     "Spain",
		zone:        "Europe/Madrid",
		specialties: []string{"Infectious Diseases", "Travel Medicine", "Dengue"},
		languages:   []string{"English", "Spanish"},
		about:       "Focus on vector-borne diseases and global health.",
	},
	{
		name:        "Dr. Hana Sato",
		country:     "Japan",
		zone:        "Asia/Tokyo",
		specialties: []string{"Public Health", "Influenza", "Respiratory Infections"},
		languages:   []string{"English", "Japanese"},
		about:       "Community surveillance and prevention specialist.",
	},
}

var extraSpecialties = []string{
	"Epidemiology",
	"Infectious Diseases",
	"Travel Medicine",
	"Public Health",
	"Tropical Medicine",
	"Virology",
}

var extraZones = []string{
	"America/New_York",
	"Europe/Berlin",
	"Africa/Nairobi",
	"Asia/Singapore",
	"Australia/Sydney",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedAll(context.Background(), pool, 12); err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Println("seed complete")
}

func seedAll(ctx context.Context, pool *pgxpool.Pool, extraCount int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := func(name, country, zone string, specialties, languages []string, about string) error {
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO physicians (id, full_name, country, zone, specialties, languages, about, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		`, id, name, country, zone, specialties, languages, about)
		if err != nil {
			return err
		}

		return seedSlots(ctx, tx, id, zone)
	}

	for _, p := range seedPhysicians {
		if err := insert(p.name, p.country, p.zone, p.specialties, p.languages, p.about); err != nil {
			return err
		}
	}

	for i := 0; i < extraCount; i++ {
		name := "Dr. " + gofakeit.Name()
		zone := extraZones[gofakeit.Number(0, len(extraZones)-1)]
		specialties := []string{extraSpecialties[gofakeit.Number(0, len(extraSpecialties)-1)]}
		languages := []string{"English", gofakeit.Language()}

		if err := insert(name, gofakeit.Country(), zone, specialties, languages, gofakeit.Sentence(10)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedSlots publishes 7 days of 30-minute slots at 14:00, 15:00 and 16:00
// local to the physician's zone, stored as UTC instants.
func seedSlots(ctx context.Context, tx pgx.Tx, physicianID uuid.UUID, zone string) error {
	today, err := timezone.ToLocal(time.Now().UTC(), zone)
	if err != nil {
		return err
	}

	for d := 0; d < 7; d++ {
		day := today.AddDate(0, 0, d)
		for _, hour := range []int{14, 15, 16} {
			local := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)

			start, err := timezone.ToAbsolute(local, zone)
			if err != nil {
				return err
			}
			end := start.Add(30 * time.Minute)

			_, err = tx.Exec(ctx, `
				INSERT INTO availability (id, physician_id, start_time, end_time, claimed, created_at)
				VALUES ($1, $2, $3, $4, false, now())
			`, uuid.New(), physicianID, start.UTC(), end.UTC())
			if err != nil {
				return err
			}
		}
	}

	return nil
}
