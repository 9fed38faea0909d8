package models

// Listing is a property record served by the listing-search tool
type Listing struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	City     string   `json:"city"`
	Type     string   `json:"type"`
	Price    float64  `json:"price"`
	Bedrooms int      `json:"bedrooms"`
	Code     string   `json:"code"`
	Images   []string `json:"images,omitempty"`
}

// ListingFilter narrows a listing search. Zero values mean "no constraint".
type ListingFilter struct {
	City        string  `json:"city,omitempty"`
	Type        string  `json:"type,omitempty"`
	MaxPrice    float64 `json:"max_price,omitempty"`
	MinBedrooms int     `json:"min_bedrooms,omitempty"`
	Limit       int     `json:"limit,omitempty"`
}
