package entity

import "github.com/shopspring/decimal"

const (
	PassengerTypeAdult = "adult"
	CabinClassEconomy  = "economy"
)

// FareQuoteRequest describes a one-way, single-slice fare search
type FareQuoteRequest struct {
	Origin        string
	Destination   string
	DepartureDate string
	Adults        int
	CabinClass    string
}

// NewFareQuoteRequest fixes the passenger mix to one adult in economy
func NewFareQuoteRequest(origin, destination, departureDate string) FareQuoteRequest {
	return FareQuoteRequest{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: departureDate,
		Adults:        1,
		CabinClass:    CabinClassEconomy,
	}
}

// CacheKey identifies requests that must return the same offers
func (r FareQuoteRequest) CacheKey() string {
	return r.Origin + ":" + r.Destination + ":" + r.DepartureDate + ":" + r.CabinClass
}

// FareOffer is a single priced offer returned by the fare provider
type FareOffer struct {
	ID          string
	TotalAmount decimal.Decimal
	Currency    string
}
