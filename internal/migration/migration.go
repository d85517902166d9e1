package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

type storage interface {
	BeginTransaction(ctx context.Context) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveFlights(ctx context.Context, records []travel.FlightRecord) error
	SaveHotels(ctx context.Context, records []travel.HotelRecord) error
	SavePlaces(ctx context.Context, records []travel.Record) error
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// Up seeds storage with a small Beijing dataset anchored at now.
func Up(ctx context.Context, l *logger.Logger, storage storage, now time.Time) (err error) {
	ts := func(d time.Duration) string {
		return now.Add(d).Format("2006-01-02T15:04:05")
	}
	today := now.Format(travel.DateLayout)

	places := []travel.Record{
		{
			"title":      "Day trip to the Great Wall",
			"snippet":    "Book a private driver to Mutianyu for breathtaking views.",
			"location":   "Great Wall, Beijing",
			"start_time": ts(0),
			"end_time":   ts(6 * time.Hour),
			"url":        "https://example.com/great-wall",
		},
	}

	flights := []travel.FlightRecord{
		{
			Price:          3200,
			Currency:       "CNY",
			DepartureTime:  ts(0),
			ArrivalTime:    ts(3 * time.Hour),
			Airline:        "Air China",
			FlightNumber:   "CA123",
			BookingURL:     "https://example.com/ca123",
			LoyaltyCost:    intPtr(18000),
			LoyaltyProgram: "Air China PhoenixMiles",
		},
	}

	hotels := []travel.HotelRecord{
		{
			Name:           "Grand Beijing Hotel",
			PricePerNight:  980,
			Currency:       "CNY",
			CheckIn:        today,
			CheckOut:       now.AddDate(0, 0, 3).Format(travel.DateLayout),
			Rating:         floatPtr(4.6),
			Location:       "Chaoyang District",
			BookingURL:     "https://example.com/grand-beijing",
			LoyaltyCost:    intPtr(28000),
			LoyaltyProgram: "Marriott Bonvoy",
			Notes:          nil,
		},
	}

	ctx, err = storage.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after panic %v", p)
			}

			l.LogInfo("Migration transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after error %v", rbErr.Error())
			}

			l.LogInfo("Migration transaction has been roll backed after error")

			return
		}

		if err = storage.CommitTransaction(ctx); err != nil {
			l.LogErrorf("Could not commit migration transaction, err %v", err.Error())

			return
		}

		l.LogInfo("Migration transaction has been committed")
	}()

	if err = storage.SavePlaces(ctx, places); err != nil {
		return fmt.Errorf("save places: %w", err)
	}

	if err = storage.SaveFlights(ctx, flights); err != nil {
		return fmt.Errorf("save flights: %w", err)
	}

	if err = storage.SaveHotels(ctx, hotels); err != nil {
		return fmt.Errorf("save hotels: %w", err)
	}

	return nil
}
