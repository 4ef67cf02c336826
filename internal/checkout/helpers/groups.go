package helpers

import (
	"sort"

	"github.com/google/uuid"
)

// Line is one priced cart line after variant resolution.
type Line struct {
	MerchantID     uuid.UUID
	VariantID      uuid.UUID
	ColorID        *uuid.UUID
	Name           string
	Qty            int
	UnitPriceCents int64
	WeightGrams    int
}

// Group collects the lines that become one merchant order.
type Group struct {
	MerchantID uuid.UUID
	Lines      []Line
}

// SubtotalCents is the pre-discount product subtotal of the group.
func (g Group) SubtotalCents() int64 {
	var subtotal int64
	for _, line := range g.Lines {
		subtotal += line.UnitPriceCents * int64(line.Qty)
	}
	return subtotal
}

// WeightGrams is the total package weight of the group.
func (g Group) WeightGrams() int {
	var weight int
	for _, line := range g.Lines {
		weight += line.WeightGrams * line.Qty
	}
	return weight
}

// GroupByMerchant splits lines into per-merchant groups sorted by subtotal,
// descending. The first group is the target for a single-use platform order
// code, which maximizes the code's monetary effect.
func GroupByMerchant(lines []Line) []Group {
	byMerchant := make(map[uuid.UUID]*Group)
	ordered := make([]*Group, 0)
	for _, line := range lines {
		group, ok := byMerchant[line.MerchantID]
		if !ok {
			group = &Group{MerchantID: line.MerchantID}
			byMerchant[line.MerchantID] = group
			ordered = append(ordered, group)
		}
		group.Lines = append(group.Lines, line)
	}

	groups := make([]Group, 0, len(ordered))
	for _, group := range ordered {
		groups = append(groups, *group)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].SubtotalCents() > groups[j].SubtotalCents()
	})
	return groups
}
