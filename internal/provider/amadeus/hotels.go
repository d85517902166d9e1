package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

const hotelOffersPath = "/v2/shopping/hotel-offers"

type HotelProvider struct {
	client *Client
	l      *logger.Logger
}

func NewHotelProvider(client *Client, l *logger.Logger) *HotelProvider {
	return &HotelProvider{client: client, l: l}
}

func hotelParams(q travel.HotelQuery) Params {
	return Params{
		"cityCode":          q.Destination,
		"checkInDate":       q.CheckIn.Format(travel.DateLayout),
		"checkOutDate":      q.CheckOut.Format(travel.DateLayout),
		"adults":            strconv.Itoa(q.Travelers),
		"roomQuantity":      "1",
		"view":              "FULL",
		"hotelIds":          joinSorted(q.Neighborhoods),
		"amenities":         joinSorted(q.Amenities),
		"loyaltyProgrammes": joinSorted(q.LoyaltyPrograms),
	}
}

// SearchHotels returns one record per offer. Entries without offers and offers without an id contribute nothing.
func (p *HotelProvider) SearchHotels(ctx context.Context, q travel.HotelQuery) ([]travel.HotelRecord, error) {
	var resp envelope

	if err := p.client.Get(ctx, hotelOffersPath, hotelParams(q), &resp); err != nil {
		return nil, fmt.Errorf("get hotel offers: %w", err)
	}

	checkIn := q.CheckIn.Format(travel.DateLayout)
	checkOut := q.CheckOut.Format(travel.DateLayout)

	var records []travel.HotelRecord

	for idx, raw := range resp.entries() {
		var entry hotelEntryDTO

		if err := json.Unmarshal(raw, &entry); err != nil {
			p.l.LogDebug("Skipping malformed hotel entry #%d: %v", idx, err)

			continue
		}

		for _, offer := range entry.Offers {
			if offer.Self == "" && offer.ID == "" {
				p.l.LogDebug("Skipping hotel offer without id for %q", entry.Hotel.Name)

				continue
			}

			records = append(records, hotelRecord(entry, offer, checkIn, checkOut))
		}
	}

	return records, nil
}

func hotelRecord(entry hotelEntryDTO, offer hotelOfferDTO, checkIn, checkOut string) travel.HotelRecord {
	currency := offer.Price.Currency
	if currency == "" {
		currency = searchCurrency
	}

	bookingURL := offer.Self
	if bookingURL == "" {
		bookingURL = offer.ID
	}

	var notes []string

	if offer.BoardType != "" {
		notes = append(notes, "Board: "+offer.BoardType)
	}

	if text := offer.Room.Description.Text; text != "" {
		notes = append(notes, text)
	}

	//nolint:exhaustruct
	rec := travel.HotelRecord{
		Name:          entry.Hotel.Name,
		PricePerNight: offer.Price.Total.value,
		Currency:      currency,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Rating:        entry.Hotel.Rating.floatPtr(),
		BookingURL:    bookingURL,
		Notes:         notes,
	}

	if geo := entry.Hotel.GeoCode; geo != nil && geo.Latitude.set && geo.Longitude.set {
		rec.Location = formatFloat(geo.Latitude.value) + ", " + formatFloat(geo.Longitude.value)
	}

	if offer.LoyaltyProgramme != nil {
		rec.LoyaltyCost = offer.LoyaltyProgramme.Points.intPtr()
		rec.LoyaltyProgram = offer.LoyaltyProgramme.Program
	}

	return rec
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
