package model

// FirmYearRecord is one cleaned observation of a firm's annual fundamentals.
// Records are immutable once loaded.
type FirmYearRecord struct {
	FirmID         string
	Sector         string
	FiscalYear     int
	LogGrowth      float64 // log revenue growth vs prior fiscal year
	Profitability  float64 // net margin
	Leverage       float64 // debt / assets
	Valuation      float64 // price / sales
	NextYearReturn float64 // realized return over the following fiscal year
}

// Firm holds the point-in-time metadata the simulator and the market-cap
// benchmark need for a universe member.
type Firm struct {
	ID            string  `json:"id"`
	Sector        string  `json:"sector"`
	MarketCap     float64 `json:"market_cap"`
	Valuation     float64 `json:"valuation"`
	Profitability float64 `json:"profitability"`
	LatestGrowth  float64 `json:"latest_growth"`
}
