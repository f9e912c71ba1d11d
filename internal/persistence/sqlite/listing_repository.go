package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/logging"
	"github.com/example/akiya-reservations/internal/persistence"
)

// ListingRepository implements persistence.ListingRepository using SQLite.
// Houses and museums share one table keyed by kind.
type ListingRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewListingRepository creates a new SQLite listing repository.
func NewListingRepository(pool *ConnectionPool) *ListingRepository {
	return &ListingRepository{pool: pool, mapper: NewErrorMapper()}
}

type listingRow struct {
	ID            string          `db:"id"`
	Kind          string          `db:"kind"`
	Title         string          `db:"title"`
	Description   string          `db:"description"`
	Address       string          `db:"address"`
	Prefecture    string          `db:"prefecture"`
	AddressDetail string          `db:"address_detail"`
	City          string          `db:"city"`
	Lat           sql.NullFloat64 `db:"lat"`
	Lng           sql.NullFloat64 `db:"lng"`
	Price         sql.NullInt64   `db:"price"`
	Size          sql.NullFloat64 `db:"size"`
	Images        string          `db:"images"`
	Period        string          `db:"period"`
	ImageURL      string          `db:"image_url"`
	CreatedAt     string          `db:"created_at"`
	UpdatedAt     string          `db:"updated_at"`
}

const listingColumns = `id, kind, title, description, address, prefecture, address_detail, city,
	lat, lng, price, size, images, period, image_url, created_at, updated_at`

// CreateListing inserts a new house or museum.
func (r *ListingRepository) CreateListing(ctx context.Context, listing persistence.Listing) error {
	if listing.ID == "" || !validKind(listing.Kind) {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	if listing.UpdatedAt.IsZero() {
		listing.UpdatedAt = listing.CreatedAt
	}

	row, err := newListingRow(listing)
	if err != nil {
		return err
	}

	_, err = r.pool.DB().NamedExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (:id, :kind, :title, :description, :address, :prefecture, :address_detail, :city,
			:lat, :lng, :price, :size, :images, :period, :image_url, :created_at, :updated_at)`, row)
	return r.mapper.MapError(err)
}

// UpdateListing replaces every mutable field of an existing listing. The
// kind and creation time are immutable.
func (r *ListingRepository) UpdateListing(ctx context.Context, listing persistence.Listing) error {
	if listing.ID == "" || !validKind(listing.Kind) {
		return persistence.ErrConstraintViolation
	}
	if listing.UpdatedAt.IsZero() {
		listing.UpdatedAt = time.Now().UTC()
	}

	row, err := newListingRow(listing)
	if err != nil {
		return err
	}

	result, err := r.pool.DB().NamedExecContext(ctx, `
		UPDATE listings SET
			title = :title, description = :description, address = :address,
			prefecture = :prefecture, address_detail = :address_detail, city = :city,
			lat = :lat, lng = :lng, price = :price, size = :size, images = :images,
			period = :period, image_url = :image_url, updated_at = :updated_at
		WHERE id = :id AND kind = :kind`, row)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetListing retrieves a listing of the given kind by ID.
func (r *ListingRepository) GetListing(ctx context.Context, kind, id string) (persistence.Listing, error) {
	if id == "" || !validKind(kind) {
		return persistence.Listing{}, persistence.ErrNotFound
	}
	var row listingRow
	if err := r.pool.DB().GetContext(ctx, &row,
		`SELECT `+listingColumns+` FROM listings WHERE kind = ? AND id = ?`, kind, id); err != nil {
		return persistence.Listing{}, r.mapper.MapError(err)
	}
	return row.toModel(logging.FromContext(ctx)), nil
}

// ListListings returns every listing of a kind in creation order.
func (r *ListingRepository) ListListings(ctx context.Context, kind string) ([]persistence.Listing, error) {
	if !validKind(kind) {
		return nil, persistence.ErrConstraintViolation
	}
	var rows []listingRow
	if err := r.pool.DB().SelectContext(ctx, &rows,
		`SELECT `+listingColumns+` FROM listings WHERE kind = ? ORDER BY created_at ASC, id ASC`, kind); err != nil {
		return nil, r.mapper.MapError(err)
	}

	logger := logging.FromContext(ctx)
	listings := make([]persistence.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, row.toModel(logger))
	}
	return listings, nil
}

// DeleteListing removes a listing. Reservations that reference it are kept.
func (r *ListingRepository) DeleteListing(ctx context.Context, kind, id string) error {
	if id == "" || !validKind(kind) {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM listings WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func newListingRow(listing persistence.Listing) (listingRow, error) {
	images := listing.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return listingRow{}, fmt.Errorf("failed to encode images: %w", err)
	}

	row := listingRow{
		ID:            listing.ID,
		Kind:          listing.Kind,
		Title:         listing.Title,
		Description:   listing.Description,
		Address:       listing.Address,
		Prefecture:    listing.Prefecture,
		AddressDetail: listing.AddressDetail,
		City:          listing.City,
		Images:        string(encoded),
		Period:        listing.Period,
		ImageURL:      listing.ImageURL,
		CreatedAt:     formatTime(listing.CreatedAt),
		UpdatedAt:     formatTime(listing.UpdatedAt),
	}
	if listing.Lat != nil {
		row.Lat = sql.NullFloat64{Float64: *listing.Lat, Valid: true}
	}
	if listing.Lng != nil {
		row.Lng = sql.NullFloat64{Float64: *listing.Lng, Valid: true}
	}
	if listing.Price != nil {
		row.Price = sql.NullInt64{Int64: *listing.Price, Valid: true}
	}
	if listing.Size != nil {
		row.Size = sql.NullFloat64{Float64: *listing.Size, Valid: true}
	}
	return row, nil
}

// toModel never fails: a corrupt column is logged and left at its zero value
// so one bad row cannot hide the rest of the catalog.
func (row listingRow) toModel(logger *logrus.Entry) persistence.Listing {
	listing := persistence.Listing{
		ID:            row.ID,
		Kind:          row.Kind,
		Title:         row.Title,
		Description:   row.Description,
		Address:       row.Address,
		Prefecture:    row.Prefecture,
		AddressDetail: row.AddressDetail,
		City:          row.City,
		Period:        row.Period,
		ImageURL:      row.ImageURL,
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	log := logger.WithFields(logrus.Fields{"listing_id": row.ID, "kind": row.Kind})

	if strings.TrimSpace(row.Images) != "" {
		if err := json.Unmarshal([]byte(row.Images), &listing.Images); err != nil {
			log.WithError(err).Warn("failed to decode listing images")
			listing.Images = []string{}
		}
	}
	if row.Lat.Valid {
		lat := row.Lat.Float64
		listing.Lat = &lat
	}
	if row.Lng.Valid {
		lng := row.Lng.Float64
		listing.Lng = &lng
	}
	if row.Price.Valid {
		price := row.Price.Int64
		listing.Price = &price
	}
	if row.Size.Valid {
		size := row.Size.Float64
		listing.Size = &size
	}

	var err error
	if listing.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		log.WithError(err).Warn("failed to parse listing timestamp")
	}
	if listing.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		log.WithError(err).Warn("failed to parse listing timestamp")
	}
	return listing
}

func validKind(kind string) bool {
	return kind == persistence.ListingKindHouse || kind == persistence.ListingKindMuseum
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
