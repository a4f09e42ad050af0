package hypixel

type BazaarResponse struct {
	Success     bool                     `json:"success"`
	Cause       string                   `json:"cause"`
	LastUpdated int64                    `json:"lastUpdated"`
	Products    map[string]BazaarProduct `json:"products"`
}

type BazaarProduct struct {
	ProductID   string      `json:"product_id"`
	QuickStatus QuickStatus `json:"quick_status"`
}

type QuickStatus struct {
	ProductID      string  `json:"productId"`
	BuyPrice       float64 `json:"buyPrice"`
	SellPrice      float64 `json:"sellPrice"`
	BuyVolume      int64   `json:"buyVolume"`
	SellVolume     int64   `json:"sellVolume"`
	BuyMovingWeek  int64   `json:"buyMovingWeek"`
	SellMovingWeek int64   `json:"sellMovingWeek"`
}

type AuctionsResponse struct {
	Success       bool      `json:"success"`
	Cause         string    `json:"cause"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"totalPages"`
	TotalAuctions int       `json:"totalAuctions"`
	LastUpdated   int64     `json:"lastUpdated"`
	Auctions      []Auction `json:"auctions"`
}

type Auction struct {
	UUID             string `json:"uuid"`
	ItemName         string `json:"item_name"`
	Tier             string `json:"tier"`
	Category         string `json:"category"`
	StartingBid      int64  `json:"starting_bid"`
	HighestBidAmount int64  `json:"highest_bid_amount"`
	BIN              bool   `json:"bin"`
	Claimed          bool   `json:"claimed"`
	Start            int64  `json:"start"`
	End              int64  `json:"end"`
}
