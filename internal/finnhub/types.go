package finnhub

// Quote matches the JSON structure of Finnhub's /quote endpoint.
type Quote struct {
	Current       float64 `json:"c"`  // Current price
	PercentChange float64 `json:"dp"` // Percent change
	High          float64 `json:"h"`  // High price of the day
	Low           float64 `json:"l"`  // Low price of the day
	Open          float64 `json:"o"`  // Open price of the day
	PrevClose     float64 `json:"pc"` // Previous close price
}

// CompanyProfile matches Finnhub's /stock/profile2 endpoint.
// MarketCap is reported by the provider in millions.
type CompanyProfile struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Logo      string  `json:"logo"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"`
	Country   string  `json:"country"`
	Exchange  string  `json:"exchange"`
	Currency  string  `json:"currency"`
	IPO       string  `json:"ipo"`
}

// NewsItem is a single article from /company-news.
// Datetime is a UNIX timestamp in seconds.
type NewsItem struct {
	Headline string `json:"headline"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	Image    string `json:"image"`
	Datetime int64  `json:"datetime"`
}

// SearchResult matches /search. Entries come back in provider order.
type SearchResult struct {
	Count  int           `json:"count"`
	Result []SearchEntry `json:"result"`
}

type SearchEntry struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
}
