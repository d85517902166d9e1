package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

type Config struct {
	L *logger.Logger
}

type trxKey struct{}

// staged holds records saved inside a transaction until it is committed.
type staged struct {
	flights []travel.FlightRecord
	hotels  []travel.HotelRecord
	places  []travel.Record
}

// DB is a fixture backend. Searches return every stored record whatever the query.
type DB struct {
	mu           sync.Mutex
	l            *logger.Logger
	flights      []travel.FlightRecord
	hotels       []travel.HotelRecord
	places       []travel.Record
	transactions map[string]*staged
	nextTrxID    int64
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:            conf.L,
		transactions: make(map[string]*staged),
	}
}

func (db *DB) BeginTransaction(ctx context.Context) (context.Context, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	db.transactions[trxID] = &staged{}

	return context.WithValue(ctx, trxKey{}, trxID), nil
}

// trx must be called with db.mu held.
func (db *DB) trx(ctx context.Context) (string, *staged, error) {
	trxID, ok := ctx.Value(trxKey{}).(string)
	if !ok || trxID == "" {
		return "", nil, ErrTransactionIDNotFoundInCtx
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return "", nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trxID, trx, nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID, trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	db.flights = append(db.flights, trx.flights...)
	db.hotels = append(db.hotels, trx.hotels...)
	db.places = append(db.places, trx.places...)

	delete(db.transactions, trxID)

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID, _, err := db.trx(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trxID)

	return nil
}

func (db *DB) SaveFlights(ctx context.Context, records []travel.FlightRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.BookingURL == "" {
			return fmt.Errorf("flight %s: %w", rec.FlightNumber, ErrEmptyBookingURL)
		}
	}

	trx.flights = append(trx.flights, records...)

	return nil
}

func (db *DB) SaveHotels(ctx context.Context, records []travel.HotelRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.BookingURL == "" {
			return fmt.Errorf("hotel %q: %w", rec.Name, ErrEmptyBookingURL)
		}
	}

	trx.hotels = append(trx.hotels, records...)

	return nil
}

func (db *DB) SavePlaces(ctx context.Context, records []travel.Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	trx.places = append(trx.places, records...)

	return nil
}

func (db *DB) Search(_ context.Context, query string, _ map[string]string) ([]travel.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.l.LogDebug("Fixture search for %q", query)

	out := make([]travel.Record, 0, len(db.places))

	for _, rec := range db.places {
		cp := make(travel.Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}

		out = append(out, cp)
	}

	return out, nil
}

func (db *DB) SearchFlights(_ context.Context, _ travel.FlightQuery) ([]travel.FlightRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]travel.FlightRecord{}, db.flights...), nil
}

func (db *DB) SearchHotels(_ context.Context, _ travel.HotelQuery) ([]travel.HotelRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]travel.HotelRecord{}, db.hotels...), nil
}
