package service

import (
	"fmt"
	"strconv"
	"strings"

	"realty/internal/model"

	"github.com/dustin/go-humanize"
)

// NoListingsFound replaces an empty result so the prompt keeps its structure
const NoListingsFound = "No listings found"

// AllDistrictsLabel names a comparison side whose district was left empty
const AllDistrictsLabel = "All districts"

// czk renders an amount truncated to whole crowns with thousands separators
func czk(amount float64) string {
	return humanize.Comma(int64(amount))
}

// listingParts renders the fields shared by rent and sell bullet lines
func listingParts(l model.Listing) []string {
	parts := []string{l.DispositionName(), l.DistrictName()}
	if l.Surface != nil {
		parts = append(parts, fmt.Sprintf("%dm²", *l.Surface))
	}
	parts = append(parts, humanize.Comma(l.Price)+" CZK")
	return parts
}

// FormatRentListings renders one bullet per rent listing
func FormatRentListings(listings []model.RentListing) string {
	if len(listings) == 0 {
		return NoListingsFound
	}

	lines := []string{"RENT LISTINGS:"}
	for _, l := range listings {
		parts := listingParts(l.Listing)
		if l.DistanceToMetroKm != nil {
			parts = append(parts, formatKm(*l.DistanceToMetroKm)+"km to metro")
		}
		lines = append(lines, "• "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatSellListings renders one bullet per sell listing with payback years when known
func FormatSellListings(listings []model.SellListing) string {
	if len(listings) == 0 {
		return NoListingsFound
	}

	lines := []string{"SALE LISTINGS:"}
	for _, l := range listings {
		parts := listingParts(l.Listing)
		if payback := l.PaybackYears(); payback != nil {
			parts = append(parts, fmt.Sprintf("payback %s yrs", strconv.FormatFloat(*payback, 'f', 1, 64)))
		}
		lines = append(lines, "• "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatHits renders semantic hits by their document text
func FormatHits(hits []model.SemanticHit) string {
	if len(hits) == 0 {
		return NoListingsFound
	}

	lines := []string{"LISTINGS:"}
	for _, h := range hits {
		lines = append(lines, "• "+h.Text)
	}
	return strings.Join(lines, "\n")
}

// Merge appends up to limit semantic hits to a structured block as example listings.
// Without hits the block is returned unchanged.
func Merge(structured string, hits []model.SemanticHit, limit int) string {
	if len(hits) == 0 || limit <= 0 {
		return structured
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	parts := []string{structured, "\nEXAMPLE LISTINGS:"}
	for _, h := range hits {
		parts = append(parts, "• "+h.Text)
	}
	return strings.Join(parts, "\n")
}

// FormatRanking renders a numbered district ranking with average prices
func FormatRanking(header string, stats []model.AggregateStat) string {
	lines := []string{header}
	if len(stats) == 0 {
		lines = append(lines, NoListingsFound)
	}
	for i, s := range stats {
		lines = append(lines, fmt.Sprintf("%d. %s: %s CZK avg (sample: %d)", i+1, s.Key, czk(s.Avg), s.Count))
	}
	return strings.Join(lines, "\n")
}

// FormatOverview renders the bulleted district overview
func FormatOverview(stats []model.AggregateStat) string {
	lines := []string{"DISTRICT OVERVIEW (avg rent):"}
	if len(stats) == 0 {
		lines = append(lines, NoListingsFound)
	}
	for _, s := range stats {
		lines = append(lines, fmt.Sprintf("• %s: %s CZK (sample: %d)", s.Key, czk(s.Avg), s.Count))
	}
	return strings.Join(lines, "\n")
}

// aggregateBlock renders avg/min/max/count under a label
func aggregateBlock(label string, s model.AggregateStat) string {
	if s.Count == 0 {
		return fmt.Sprintf("%s:\n  %s", label, NoListingsFound)
	}
	return fmt.Sprintf("%s:\n  avg: %s CZK\n  min: %s CZK\n  max: %s CZK\n  listings: %d",
		label, czk(s.Avg), czk(s.Min), czk(s.Max), s.Count)
}

// FormatMarketStats renders the global rent and sell overview
func FormatMarketStats(stats *model.MarketStats) string {
	if stats == nil || (stats.Rent.Count == 0 && stats.Sell.Count == 0) {
		return "MARKET OVERVIEW:\n" + NoListingsFound
	}
	return "MARKET OVERVIEW:\n\n" +
		aggregateBlock("RENT (monthly)", stats.Rent) + "\n\n" +
		aggregateBlock("SELL", stats.Sell)
}

// FormatComparison renders two independently labeled district blocks
func FormatComparison(cmp *model.DistrictComparison) string {
	label := func(district string) string {
		if strings.TrimSpace(district) == "" {
			return AllDistrictsLabel
		}
		return district
	}
	return "DISTRICT COMPARISON:\n\n" +
		aggregateBlock(label(cmp.First), cmp.FirstStat) + "\n\n" +
		aggregateBlock(label(cmp.Second), cmp.SecondStat)
}
