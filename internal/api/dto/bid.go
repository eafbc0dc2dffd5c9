package dto

import "time"

type PlaceBidRequest struct {
	CourierID  string    `json:"courier_id"`
	PriceCents int64     `json:"price_cents"`
	PickupAt   time.Time `json:"pickup_at"`
}

type WithdrawBidRequest struct {
	CourierID string `json:"courier_id"`
}

type SelectBidRequest struct {
	SenderID string `json:"sender_id"`
}

type BidResponse struct {
	ID         string    `json:"id"`
	PackageID  string    `json:"package_id"`
	CourierID  string    `json:"courier_id"`
	PriceCents int64     `json:"price_cents"`
	PickupAt   time.Time `json:"pickup_at"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ListBidsResponse struct {
	Bids []BidResponse `json:"bids"`
}
