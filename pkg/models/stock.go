package models

const (
	snapshotKeyPrefix  = "stock:"
	priceChannelPrefix = "prices."
)

// Stock is a single timestamped price sample for a ticker.
type Stock struct {
	Ticker          string  `json:"ticker"`
	Price           float64 `json:"price"`
	TimestampMillis int64   `json:"timestamp"` // unix millis
}

// SnapshotKey is the Redis key holding the latest tick for a ticker.
func SnapshotKey(ticker string) string { return snapshotKeyPrefix + ticker }

// PriceChannel is the Redis pubsub channel ticks for a ticker are published on.
func PriceChannel(ticker string) string { return priceChannelPrefix + ticker }
