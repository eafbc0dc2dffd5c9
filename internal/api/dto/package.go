package dto

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type CreatePackageRequest struct {
	SenderID           string      `json:"sender_id"`
	Origin             Coordinates `json:"origin"`
	OriginAddress      string      `json:"origin_address"`
	Destination        Coordinates `json:"destination"`
	DestinationAddress string      `json:"destination_address"`
	Size               string      `json:"size"`
	WeightKg           float64     `json:"weight_kg"`
	PriceOfferCents    int64       `json:"price_offer_cents"`
}

type CancelPackageRequest struct {
	SenderID string `json:"sender_id"`
}

type SchedulePickupRequest struct {
	CourierID string `json:"courier_id"`
}

type ConfirmPickupRequest struct {
	CourierID string `json:"courier_id"`
}

type DeliveredRequest struct {
	ProofReference string `json:"proof_reference"`
}

type FailedRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

type PackageResponse struct {
	ID                 string      `json:"id"`
	SenderID           string      `json:"sender_id"`
	Origin             Coordinates `json:"origin"`
	OriginAddress      string      `json:"origin_address,omitempty"`
	Destination        Coordinates `json:"destination"`
	DestinationAddress string      `json:"destination_address,omitempty"`
	Size               string      `json:"size"`
	WeightKg           float64     `json:"weight_kg"`
	PriceOfferCents    int64       `json:"price_offer_cents"`
	Status             string      `json:"status"`
	SelectedBidID      *string     `json:"selected_bid_id"`
	BiddingDeadline    *time.Time  `json:"bidding_deadline"`
	ExtensionsUsed     int         `json:"extensions_used"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type ListPackagesResponse struct {
	Packages []PackageResponse `json:"packages"`
}
