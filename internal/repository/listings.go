package repository

import (
	"context"
	"fmt"
	"strings"

	"realty/internal/model"

	"github.com/jmoiron/sqlx"
)

// FamilyDispositions are the layouts counted as family-sized
var FamilyDispositions = []string{"3+kk", "3+1", "4+kk", "4+1"}

// PriceFloors drop scraped noise: rent and sell rows priced at or below the floor
// are ignored by every read.
type PriceFloors struct {
	Rent float64
	Sell float64
}

// DefaultPriceFloors are the de-noising thresholds used when none are configured
var DefaultPriceFloors = PriceFloors{Rent: 2000, Sell: 500000}

// ListingRepository is the read-only structured query layer over rent_listings and
// sell_listings. Every method runs on its own connection scope.
type ListingRepository struct {
	db     *sqlx.DB
	floors PriceFloors
	// like is a case-insensitive substring match of one column against one argument
	like string
}

// NewListingRepository creates a repository over an open database
func NewListingRepository(db *sqlx.DB, floors PriceFloors) *ListingRepository {
	like := "%s ILIKE ?"
	if db.DriverName() != "postgres" {
		like = "casefold(%s) LIKE casefold(?)"
	}
	return &ListingRepository{db: db, floors: floors, like: like}
}

func (r *ListingRepository) matches(column string) string {
	return fmt.Sprintf(r.like, column)
}

// Floors returns the active price floors
func (r *ListingRepository) Floors() PriceFloors {
	return r.floors
}

// Close closes the database connection
func (r *ListingRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection
func (r *ListingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const listingColumns = `
	id, COALESCE(external_id, '') AS external_id, COALESCE(source, '') AS source, price,
	price_per_m2, disposition, surface, district, furnishing,
	COALESCE(garage, FALSE) AS garage, COALESCE(balcony, FALSE) AS balcony,
	COALESCE(loggia, FALSE) AS loggia, COALESCE(mhd, FALSE) AS mhd,
	latitude, longitude, distance_to_center, distance_to_metro_km, nearest_metro,
	main_image, all_images`

// filterClause builds the WHERE clause shared by rent and sell filtered reads
func (r *ListingRepository) filterClause(floor float64, filter model.ListingFilter) (string, []interface{}) {
	whereClauses := []string{"price > ?"}
	args := []interface{}{floor}

	if filter.District != nil && *filter.District != "" {
		whereClauses = append(whereClauses, r.matches("district"))
		args = append(args, "%"+*filter.District+"%")
	}
	if filter.Disposition != nil && *filter.Disposition != "" {
		whereClauses = append(whereClauses, r.matches("disposition"))
		args = append(args, "%"+*filter.Disposition+"%")
	}
	if filter.MaxPrice != nil {
		whereClauses = append(whereClauses, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}

	return strings.Join(whereClauses, " AND "), args
}

// SearchRent returns rent listings matching the filter, cheapest first
func (r *ListingRepository) SearchRent(ctx context.Context, filter model.ListingFilter) ([]model.RentListing, error) {
	where, args := r.filterClause(r.floors.Rent, filter)
	query := fmt.Sprintf(`SELECT %s FROM rent_listings WHERE %s ORDER BY price ASC, id ASC LIMIT ?`, listingColumns, where)
	args = append(args, filter.Limit)

	var listings []model.RentListing
	err := withConn(ctx, r.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &listings, conn.Rebind(query), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search rent listings: %w", err)
	}
	return listings, nil
}

// SearchSell returns sell listings matching the filter, cheapest first
func (r *ListingRepository) SearchSell(ctx context.Context, filter model.ListingFilter) ([]model.SellListing, error) {
	where, args := r.filterClause(r.floors.Sell, filter)
	query := fmt.Sprintf(`SELECT %s, predicted_rent_price FROM sell_listings WHERE %s ORDER BY price ASC, id ASC LIMIT ?`, listingColumns, where)
	args = append(args, filter.Limit)

	var listings []model.SellListing
	err := withConn(ctx, r.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &listings, conn.Rebind(query), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search sell listings: %w", err)
	}
	return listings, nil
}

// AllRentListings returns every rent listing ordered by id, the source set of the vector index
func (r *ListingRepository) AllRentListings(ctx context.Context) ([]model.RentListing, error) {
	query := fmt.Sprintf(`SELECT %s FROM rent_listings ORDER BY id ASC`, listingColumns)

	var listings []model.RentListing
	err := withConn(ctx, r.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &listings, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rent listings: %w", err)
	}
	return listings, nil
}

const aggregateColumns = `
	COALESCE(AVG(price), 0) AS avg_price,
	COALESCE(MIN(price), 0) AS min_price,
	COALESCE(MAX(price), 0) AS max_price,
	COUNT(id) AS listing_count`

// MarketStats returns global rent and sell aggregates above the price floors
func (r *ListingRepository) MarketStats(ctx context.Context) (*model.MarketStats, error) {
	stats := &model.MarketStats{}
	err := withConn(ctx, r.db, func(conn *sqlx.Conn) error {
		rentQuery := conn.Rebind(`SELECT ` + aggregateColumns + ` FROM rent_listings WHERE price > ?`)
		if err := conn.GetContext(ctx, &stats.Rent, rentQuery, r.floors.Rent); err != nil {
			return fmt.Errorf("rent aggregate: %w", err)
		}
		sellQuery := conn.Rebind(`SELECT ` + aggregateColumns + ` FROM sell_listings WHERE price > ?`)
		if err := conn.GetContext(ctx, &stats.Sell, sellQuery, r.floors.Sell); err != nil {
			return fmt.Errorf("sell aggregate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get market stats: %w", err)
	}
	return stats, nil
}

// StudentDistricts ranks districts by ascending average rent among listings priced
// between the rent floor and maxRent (both exclusive)
func (r *ListingRepository) StudentDistricts(ctx context.Context, maxRent float64, limit int) ([]model.AggregateStat, error) {
	query := `
		SELECT COALESCE(district, 'Unknown') AS group_key, ` + aggregateColumns + `
		FROM rent_listings
		WHERE price > ? AND price < ?
		GROUP BY district
		ORDER BY avg_price ASC, group_key ASC
		LIMIT ?`
	return r.groupedStats(ctx, "student districts", query, r.floors.Rent, maxRent, limit)
}

// FamilyDistricts ranks districts by the number of family-sized listings with a balcony
func (r *ListingRepository) FamilyDistricts(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	query, args, err := sqlx.In(`
		SELECT COALESCE(district, 'Unknown') AS group_key, `+aggregateColumns+`
		FROM rent_listings
		WHERE price > ? AND disposition IN (?) AND balcony = ?
		GROUP BY district
		ORDER BY listing_count DESC, group_key ASC
		LIMIT ?`, r.floors.Rent, FamilyDispositions, true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build family districts query: %w", err)
	}
	return r.groupedStats(ctx, "family districts", query, args...)
}

// InvestmentDistricts ranks districts by ascending average sell price
func (r *ListingRepository) InvestmentDistricts(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	query := `
		SELECT COALESCE(district, 'Unknown') AS group_key, ` + aggregateColumns + `
		FROM sell_listings
		WHERE price > ?
		GROUP BY district
		ORDER BY avg_price ASC, group_key ASC
		LIMIT ?`
	return r.groupedStats(ctx, "investment districts", query, r.floors.Sell, limit)
}

// DistrictOverview ranks districts by ascending average rent
func (r *ListingRepository) DistrictOverview(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	query := `
		SELECT COALESCE(district, 'Unknown') AS group_key, ` + aggregateColumns + `
		FROM rent_listings
		WHERE price > ?
		GROUP BY district
		ORDER BY avg_price ASC, group_key ASC
		LIMIT ?`
	return r.groupedStats(ctx, "district overview", query, r.floors.Rent, limit)
}

func (r *ListingRepository) groupedStats(ctx context.Context, name, query string, args ...interface{}) ([]model.AggregateStat, error) {
	var stats []model.AggregateStat
	err := withConn(ctx, r.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &stats, conn.Rebind(query), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}
	return stats, nil
}

// CompareDistricts computes the rent aggregate of each district independently.
// Districts match by case-insensitive substring, so an empty name matches every row.
func (r *ListingRepository) CompareDistricts(ctx context.Context, first, second string) (*model.DistrictComparison, error) {
	cmp := &model.DistrictComparison{First: first, Second: second}
	query := `SELECT ` + aggregateColumns + ` FROM rent_listings WHERE price > ? AND ` + r.matches("district")

	err := withConn(ctx, r.db, func(conn *sqlx.Conn) error {
		q := conn.Rebind(query)
		if err := conn.GetContext(ctx, &cmp.FirstStat, q, r.floors.Rent, "%"+first+"%"); err != nil {
			return fmt.Errorf("%s: %w", first, err)
		}
		if err := conn.GetContext(ctx, &cmp.SecondStat, q, r.floors.Rent, "%"+second+"%"); err != nil {
			return fmt.Errorf("%s: %w", second, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compare districts: %w", err)
	}
	cmp.FirstStat.Key = first
	cmp.SecondStat.Key = second
	return cmp, nil
}
