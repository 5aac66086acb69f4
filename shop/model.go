package shop

// Channel is the marketing channel a pageview is attributed to.
type Channel string

const (
	ChannelOrganicSearch Channel = "organic search"
	ChannelPaidSearch    Channel = "paid search"
	ChannelReferral      Channel = "referral"
	ChannelSocial        Channel = "social"
	ChannelDisplay       Channel = "display"
)

// Channels lists every channel a pageview can be attributed to.
var Channels = []Channel{
	ChannelOrganicSearch,
	ChannelPaidSearch,
	ChannelReferral,
	ChannelSocial,
	ChannelDisplay,
}

// PageType is the first path segment of a pageview URL.
type PageType string

const (
	PageTypeProducts PageType = "products"
	PageTypeProfiles PageType = "profiles"
)

// PageTypes lists the page types random pageviews are drawn from.
var PageTypes = []PageType{PageTypeProducts, PageTypeProfiles}

// Categories lists the item categories used when seeding.
var Categories = []string{"widgets", "gadgets", "doodads", "clearance"}

// Pageview is one pageview event as published to the message stream.
type Pageview struct {
	UserID     int64   `json:"user_id"`
	URL        string  `json:"url"`
	Channel    Channel `json:"channel"`
	ReceivedAt int64   `json:"received_at"`
}

// Purchase is one purchase row as written to the relational store.
type Purchase struct {
	UserID        int64 `json:"user_id"`
	ItemID        int64 `json:"item_id"`
	Quantity      int   `json:"quantity"`
	PurchasePrice Money `json:"purchase_price"`
}

// ItemPrice is one entry of the item price snapshot loaded at startup.
type ItemPrice struct {
	ItemID int64
	Price  Money
}

// Item is a seed row for the items table.
type Item struct {
	Name      string
	Category  string
	Price     Money
	Inventory int
}

// User is a seed row for the users table.
type User struct {
	Email string
	IsVIP bool
}
