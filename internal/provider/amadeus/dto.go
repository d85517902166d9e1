package amadeus

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// envelope is the top level of every search response. Entries are decoded one by one so a single
// malformed entry does not sink the whole batch.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (e envelope) entries() []json.RawMessage {
	var entries []json.RawMessage

	if err := json.Unmarshal(e.Data, &entries); err != nil {
		return nil
	}

	return entries
}

// number accepts both JSON numbers and numeric strings, as the API uses both.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err //nolint:wrapcheck
		}

		if s == "" {
			return nil
		}

		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err //nolint:wrapcheck
		}

		n.value, n.set = v, true

		return nil
	}

	if err := json.Unmarshal(b, &n.value); err != nil {
		return err //nolint:wrapcheck
	}

	n.set = true

	return nil
}

func (n number) floatPtr() *float64 {
	if !n.set {
		return nil
	}

	v := n.value

	return &v
}

func (n number) intPtr() *int {
	if !n.set {
		return nil
	}

	v := int(n.value)

	return &v
}

type price struct {
	Total    number `json:"total"`
	Currency string `json:"currency"`
}

type loyaltyProgramme struct {
	Points  number `json:"points"`
	Program string `json:"program"`
}

type flightOfferDTO struct {
	ID          string `json:"id"`
	Itineraries []struct {
		Segments []segmentDTO `json:"segments"`
	} `json:"itineraries"`
	Price            price             `json:"price"`
	Links            linksDTO          `json:"links"`
	TravelerPricings []json.RawMessage `json:"travelerPricings"`
}

type linksDTO struct {
	Self string `json:"self"`
}

type segmentDTO struct {
	Departure struct {
		At string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		At string `json:"at"`
	} `json:"arrival"`
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
}

type travelerPricingDTO struct {
	LoyaltyProgramme *loyaltyProgramme `json:"loyaltyProgramme"`
}

type hotelEntryDTO struct {
	Hotel struct {
		Name    string `json:"name"`
		Rating  number `json:"rating"`
		GeoCode *struct {
			Latitude  number `json:"latitude"`
			Longitude number `json:"longitude"`
		} `json:"geoCode"`
	} `json:"hotel"`
	Offers []hotelOfferDTO `json:"offers"`
}

type hotelOfferDTO struct {
	ID        string `json:"id"`
	Self      string `json:"self"`
	Price     price  `json:"price"`
	BoardType string `json:"boardType"`
	Room      struct {
		Description struct {
			Text string `json:"text"`
		} `json:"description"`
	} `json:"room"`
	LoyaltyProgramme *loyaltyProgramme `json:"loyaltyProgramme"`
}
