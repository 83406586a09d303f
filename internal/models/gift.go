package models

// Gift is a catalog entry. The catalog is fixed; gifts are never created or
// destroyed at runtime.
type Gift struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Cost    int    `json:"cost"`
	XPValue int    `json:"xpValue"`
}

// Gifts is the full catalog, cheapest first.
var Gifts = []Gift{
	{ID: "rose", Name: "Rose", Icon: "🌹", Cost: 5, XPValue: 5},
	{ID: "heart", Name: "Heart", Icon: "❤️", Cost: 10, XPValue: 10},
	{ID: "crown", Name: "Crown", Icon: "👑", Cost: 50, XPValue: 50},
	{ID: "diamond", Name: "Diamond", Icon: "💎", Cost: 100, XPValue: 250},
	{ID: "rocket", Name: "Rocket", Icon: "🚀", Cost: 150, XPValue: 600},
}

// GiftByID looks up a catalog entry.
func GiftByID(id string) (Gift, bool) {
	for _, g := range Gifts {
		if g.ID == id {
			return g, true
		}
	}
	return Gift{}, false
}

// CharmsForGift is the reputation granted to a recipient: one charm per ten
// coins of gift cost.
func CharmsForGift(g Gift) int {
	return g.Cost / 10
}
