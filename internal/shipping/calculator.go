package shipping

import "strings"

// Fee table in minor units. Same-region deliveries are cheapest, then
// deliveries within the same zone, then cross-zone.
const (
	baseFeeSameRegion = 15_000
	baseFeeSameZone   = 25_000
	baseFeeCrossZone  = 35_000

	// First kilogram rides on the base fee; every started 500g beyond it
	// adds a surcharge.
	includedWeightGrams = 1_000
	surchargeStepGrams  = 500
	surchargePerStep    = 5_000
)

// Calculator computes shipping fees from origin/destination regions and
// package weight. It is a pure lookup with no external dependencies.
type Calculator struct {
	zones map[string]string
}

// NewCalculator builds a calculator from a region→zone table. Regions missing
// from the table fall into an implicit zone of their own, which prices them as
// cross-zone against everything else.
func NewCalculator(zones map[string]string) *Calculator {
	normalized := make(map[string]string, len(zones))
	for region, zone := range zones {
		normalized[normalizeRegion(region)] = zone
	}
	return &Calculator{zones: normalized}
}

// DefaultZones groups the delivery regions into three macro zones.
func DefaultZones() map[string]string {
	return map[string]string{
		"hanoi":     "north",
		"haiphong":  "north",
		"bacninh":   "north",
		"danang":    "central",
		"hue":       "central",
		"nhatrang":  "central",
		"hochiminh": "south",
		"binhduong": "south",
		"dongnai":   "south",
		"cantho":    "south",
	}
}

// Fee returns the shipping fee for a package of the given weight moving from
// the merchant's region to the buyer's region.
func (c *Calculator) Fee(originRegion, destRegion string, weightGrams int) int64 {
	origin := normalizeRegion(originRegion)
	dest := normalizeRegion(destRegion)

	var fee int64
	switch {
	case origin == dest && origin != "":
		fee = baseFeeSameRegion
	case c.sameZone(origin, dest):
		fee = baseFeeSameZone
	default:
		fee = baseFeeCrossZone
	}

	if weightGrams > includedWeightGrams {
		excess := weightGrams - includedWeightGrams
		steps := (excess + surchargeStepGrams - 1) / surchargeStepGrams
		fee += int64(steps) * surchargePerStep
	}
	return fee
}

func (c *Calculator) sameZone(origin, dest string) bool {
	originZone, ok := c.zones[origin]
	if !ok {
		return false
	}
	destZone, ok := c.zones[dest]
	if !ok {
		return false
	}
	return originZone == destZone
}

func normalizeRegion(region string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(region), " ", ""))
}
