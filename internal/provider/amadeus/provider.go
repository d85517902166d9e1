package amadeus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avstrong/tripwatch/internal/logger"
	"github.com/avstrong/tripwatch/internal/travel"
)

const (
	locationsPath    = "/v1/reference-data/locations"
	locationSubTypes = "AIRPORT,CITY"
)

// Provider serves generic, flight and hotel searches over one shared Client.
type Provider struct {
	*FlightProvider
	*HotelProvider

	client *Client
	l      *logger.Logger
}

func New(client *Client, l *logger.Logger) *Provider {
	return &Provider{
		FlightProvider: NewFlightProvider(client, l),
		HotelProvider:  NewHotelProvider(client, l),
		client:         client,
		l:              l,
	}
}

// Search looks up airports and cities matching query. Entries are returned as received.
func (p *Provider) Search(ctx context.Context, query string, filters map[string]string) ([]travel.Record, error) {
	params := Params{
		"keyword": query,
		"subType": locationSubTypes,
	}

	for k, v := range filters {
		params[k] = v
	}

	var resp envelope

	if err := p.client.Get(ctx, locationsPath, params, &resp); err != nil {
		return nil, fmt.Errorf("get locations for %q: %w", query, err)
	}

	entries := resp.entries()
	records := make([]travel.Record, 0, len(entries))

	for _, raw := range entries {
		var rec travel.Record

		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}
