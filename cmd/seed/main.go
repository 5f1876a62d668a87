// Command seed fills the database with demo patients, appointments, and
// call logs for local dashboard development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/internal/redislock"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

const seedPatients = 12

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	logger := logging.New("info")
	patientRepo := patients.NewPostgresRepository(pool)
	scheduler := appointments.NewService(appointments.NewPostgresRepository(pool), redislock.NewLocalLocker(), logger)
	callStore := calls.NewPostgresStore(pool)

	faker := gofakeit.New(0)
	services := appointments.ServiceTypes
	slots := appointments.SlotGrid()

	booked := 0
	for i := 0; i < seedPatients; i++ {
		phone := fmt.Sprintf("+23480%08d", faker.Number(10000000, 99999999))
		p, err := patientRepo.FindOrCreate(ctx, phone, patients.Identity{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Email:     faker.Email(),
		})
		if err != nil {
			log.Fatalf("seed patient: %v", err)
		}

		// Spread bookings across the next two weeks of open days.
		date := nextOpenDay(time.Now().AddDate(0, 0, 1+faker.Number(0, 13)))
		slot := slots[faker.Number(0, len(slots)-1)]
		service := services[faker.Number(0, len(services)-1)]
		appt, err := scheduler.Book(ctx, appointments.BookingRequest{
			PhoneNumber: p.PhoneNumber,
			Date:        date,
			Time:        slot,
			ServiceType: service,
			PatientID:   &p.ID,
		})
		if err != nil {
			// Slot collisions are expected with random picks; skip them.
			continue
		}
		booked++

		sid := "CA" + faker.UUID()
		duration := faker.Number(45, 240)
		if err := callStore.Begin(ctx, sid, p.PhoneNumber, calls.DirectionInbound, calls.StatusInProgress); err != nil {
			log.Fatalf("seed call: %v", err)
		}
		if err := callStore.Finish(ctx, sid, calls.StatusCompleted, &duration); err != nil {
			log.Fatalf("finish call: %v", err)
		}
		transcript := fmt.Sprintf("Caller: I'd like to book a %s.\n\nSarah: Appointment booked successfully! Confirmation #%d.", service, appt.ID)
		if err := callStore.UpdateTranscript(ctx, sid, transcript); err != nil {
			log.Fatalf("seed transcript: %v", err)
		}
	}

	fmt.Printf("seeded %d patients, %d appointments\n", seedPatients, booked)
}

// nextOpenDay walks forward from t to the next weekday the clinic opens.
func nextOpenDay(t time.Time) string {
	for appointments.ClinicClosed(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t.Format("2006-01-02")
}
