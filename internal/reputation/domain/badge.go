package domain

import "strings"

// Badge is display metadata for a level. It plays no part in scoring.
type Badge struct {
	Level       BadgeLevel `json:"level"`
	Rank        int        `json:"rank"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	Icon        string     `json:"icon"`
	Symbol      string     `json:"symbol"`
}

const DefaultLanguage = "fr"

var badgeCatalogue = []Badge{
	{Level: BadgeBronze, Rank: 1, Description: "Vendeur débutant", Color: "#CD7F32", Icon: "bronze_badge.png", Symbol: "⭐"},
	{Level: BadgeSilver, Rank: 2, Description: "Vendeur confirmé", Color: "#C0C0C0", Icon: "silver_badge.png", Symbol: "⭐⭐"},
	{Level: BadgeGold, Rank: 3, Description: "Vendeur expert", Color: "#FFD700", Icon: "gold_badge.png", Symbol: "👑"},
	{Level: BadgeDiamond, Rank: 4, Description: "Vendeur légendaire", Color: "#6C5CE7", Icon: "diamond_badge.png", Symbol: "⚡💎"},
}

var badgeNames = map[string]map[BadgeLevel]string{
	"fr": {
		BadgeBronze:  "Vendeur Bronze",
		BadgeSilver:  "Vendeur Argent",
		BadgeGold:    "Vendeur Or",
		BadgeDiamond: "Maître Vendeur",
	},
	"en": {
		BadgeBronze:  "Bronze Seller",
		BadgeSilver:  "Silver Seller",
		BadgeGold:    "Gold Seller",
		BadgeDiamond: "Master Seller",
	},
	"es": {
		BadgeBronze:  "Vendedor Bronce",
		BadgeSilver:  "Vendedor Plata",
		BadgeGold:    "Vendedor Oro",
		BadgeDiamond: "Vendedor Maestro",
	},
}

// BadgeFor returns the display metadata of level in lang, falling back to
// French, then to the raw level name for levels added through config.
func BadgeFor(level BadgeLevel, lang string) Badge {
	badge := Badge{Level: level, Name: string(level)}
	for _, b := range badgeCatalogue {
		if b.Level == level {
			badge = b
			break
		}
	}
	names, ok := badgeNames[normalizeLanguage(lang)]
	if !ok {
		names = badgeNames[DefaultLanguage]
	}
	if name, ok := names[level]; ok {
		badge.Name = name
	} else if badge.Name == "" {
		badge.Name = string(level)
	}
	return badge
}

// Badges lists the catalogue in rank order.
func Badges(lang string) []Badge {
	out := make([]Badge, 0, len(badgeCatalogue))
	for _, b := range badgeCatalogue {
		out = append(out, BadgeFor(b.Level, lang))
	}
	return out
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
