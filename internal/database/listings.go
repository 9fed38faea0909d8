package database

import (
	"context"
	"encoding/json"
	"strings"

	"omnichat/internal/constants"
	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

const insertListingQuery = `
	INSERT OR REPLACE INTO listings (id, title, city, type, price, bedrooms, code, images)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (d *Database) SaveListing(ctx context.Context, listing *models.Listing) error {
	images, err := json.Marshal(listing.Images)
	if err != nil {
		return apperrors.NewDatabaseError("marshal listing images", err)
	}

	_, err = d.db.ExecContext(ctx, insertListingQuery,
		listing.ID, listing.Title, listing.City, listing.Type,
		listing.Price, listing.Bedrooms, listing.Code, string(images),
	)
	return wrapWriteError("listing", "save listing", err)
}

// SearchListings applies the filter semantics of the listing-search tool:
// city is a case-insensitive substring, type matches exactly, price and
// bedrooms are bounds. Results are capped.
func (d *Database) SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, title, city, type, price, bedrooms, code, images FROM listings WHERE 1=1`)
	var args []interface{}

	if filter.City != "" {
		query.WriteString(` AND LOWER(city) LIKE ?`)
		args = append(args, "%"+strings.ToLower(filter.City)+"%")
	}
	if filter.Type != "" {
		query.WriteString(` AND type = ?`)
		args = append(args, filter.Type)
	}
	if filter.MaxPrice > 0 {
		query.WriteString(` AND price <= ?`)
		args = append(args, filter.MaxPrice)
	}
	if filter.MinBedrooms > 0 {
		query.WriteString(` AND bedrooms >= ?`)
		args = append(args, filter.MinBedrooms)
	}

	limit := filter.Limit
	if limit <= 0 || limit > constants.MaxListingResults {
		limit = constants.MaxListingResults
	}
	query.WriteString(` ORDER BY price ASC LIMIT ?`)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError("search listings", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var listing models.Listing
		var images string
		if err := rows.Scan(&listing.ID, &listing.Title, &listing.City, &listing.Type,
			&listing.Price, &listing.Bedrooms, &listing.Code, &images); err != nil {
			return nil, apperrors.NewDatabaseError("scan listing", err)
		}
		if err := json.Unmarshal([]byte(images), &listing.Images); err != nil {
			return nil, apperrors.NewDatabaseError("unmarshal listing images", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("search listings", err)
	}

	return listings, nil
}
