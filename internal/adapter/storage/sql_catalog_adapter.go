package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const activeProductsQuery = `
	SELECT p.id, p.name, p.price, p.images, p.category, p.is_new, p.is_trending,
	       p.created_at, p.artisan_id, p.artisan_name, u.full_name
	FROM products p
	LEFT JOIN users u ON u.id = p.artisan_id
	WHERE p.status = 'active'
	ORDER BY p.created_at DESC`

const insertProductQuery = `
	INSERT INTO products (id, name, description, price, category, images,
	                      artisan_id, artisan_name, is_new, is_trending, featured, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLCatalogAdapter reads the remote product table. MySQL stores images as
// a JSON array in a text column, Postgres as text[].
type SQLCatalogAdapter struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

func NewSQLCatalogAdapter(db *sql.DB, dialect Dialect, logger *zap.Logger) *SQLCatalogAdapter {
	return &SQLCatalogAdapter{db: db, dialect: dialect, logger: logger.Named("catalog_sql")}
}

// ActiveProducts returns every active row. A row that cannot be scanned is
// skipped and counted; only query and iteration errors fail the fetch.
func (a *SQLCatalogAdapter) ActiveProducts(ctx context.Context) ([]domain.RemoteRow, error) {
	rows, err := a.db.QueryContext(ctx, activeProductsQuery)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var result []domain.RemoteRow
	for rows.Next() {
		row, err := a.scanRow(rows)
		if err != nil {
			telemetry.RejectedRemoteRows.Inc()
			a.logger.Warn("skipping unreadable product row", zap.Error(err))
			continue
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return result, nil
}

func (a *SQLCatalogAdapter) scanRow(rows *sql.Rows) (domain.RemoteRow, error) {
	var (
		id, name, category            sql.NullString
		artisanID, artisanName, owner sql.NullString
		isNew, isTrending             sql.NullBool
		createdAt                     sql.NullTime
		price                         decimal.NullDecimal
		jsonImages                    sql.NullString
		arrayImages                   pq.StringArray
	)

	var images any = &jsonImages
	if a.dialect == DialectPostgres {
		images = &arrayImages
	}

	err := rows.Scan(&id, &name, &price, images, &category, &isNew, &isTrending,
		&createdAt, &artisanID, &artisanName, &owner)
	if err != nil {
		return domain.RemoteRow{}, err
	}

	row := domain.RemoteRow{
		ID:           id.String,
		Name:         name.String,
		Price:        price,
		Category:     category.String,
		IsNew:        isNew.Bool,
		IsTrending:   isTrending.Bool,
		CreatedAt:    createdAt.Time,
		ArtisanID:    artisanID.String,
		ArtisanName:  artisanName.String,
		UserFullName: owner.String,
	}
	if a.dialect == DialectPostgres {
		row.Images = []string(arrayImages)
	} else {
		row.Images = decodeImages(jsonImages.String)
	}

	return row, nil
}

// decodeImages treats an unparsable column as an empty list.
func decodeImages(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil
	}
	return images
}

func (a *SQLCatalogAdapter) InsertProduct(ctx context.Context, listing domain.Listing) (string, error) {
	id := uuid.NewString()

	var images any
	if a.dialect == DialectPostgres {
		images = pq.Array([]string{listing.Image})
	} else {
		encoded, err := json.Marshal([]string{listing.Image})
		if err != nil {
			return "", fmt.Errorf("encode images: %w", err)
		}
		images = string(encoded)
	}

	var artisanID any
	if listing.ArtisanID != "" {
		artisanID = listing.ArtisanID
	}

	_, err := a.db.ExecContext(ctx, a.rebind(insertProductQuery),
		id, listing.Name, listing.Description, listing.Price, listing.Category, images,
		artisanID, listing.ArtisanName, true, false, false, "active", time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert product: %w", err)
	}

	return id, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (a *SQLCatalogAdapter) rebind(query string) string {
	if a.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UnavailableCatalogAdapter stands in when no remote catalog is configured.
type UnavailableCatalogAdapter struct {
	reason string
}

func NewUnavailableCatalogAdapter(reason string) *UnavailableCatalogAdapter {
	return &UnavailableCatalogAdapter{reason: reason}
}

func (u *UnavailableCatalogAdapter) ActiveProducts(ctx context.Context) ([]domain.RemoteRow, error) {
	return nil, fmt.Errorf("%w: %s", port.ErrRemoteUnavailable, u.reason)
}

func (u *UnavailableCatalogAdapter) InsertProduct(ctx context.Context, listing domain.Listing) (string, error) {
	return "", fmt.Errorf("%w: %s", port.ErrRemoteUnavailable, u.reason)
}
