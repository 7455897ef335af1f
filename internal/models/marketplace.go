package models

import (
	"fmt"
	"strings"
)

// Marketplace identifies one of the external markets the scraper walks.
// The declaration order is the fixed visiting order inside a tick.
type Marketplace uint8

const (
	Deadrare Marketplace = iota
	Frameit
	Xoxno
	ElrondMarket
)

// Marketplaces returns every marketplace in visiting order.
func Marketplaces() []Marketplace {
	return []Marketplace{Deadrare, Frameit, Xoxno, ElrondMarket}
}

func (m Marketplace) String() string {
	switch m {
	case Deadrare:
		return "deadrare"
	case Frameit:
		return "frameit"
	case Xoxno:
		return "xoxno"
	case ElrondMarket:
		return "elrond"
	}
	return fmt.Sprintf("marketplace(%d)", uint8(m))
}

func (m Marketplace) Valid() bool {
	return m <= ElrondMarket
}

func ParseMarketplace(raw string) (Marketplace, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, m := range Marketplaces() {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown marketplace %q", raw)
}
