package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargolink/internal/domain"
)

// ProductRepository define el contrato de persistencia para envios.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) error
	GetByID(ctx context.Context, id string) (domain.Product, error)
	ListByEntrepreneur(ctx context.Context, entrepreneurID string) ([]domain.Product, error)
	ListAvailable(ctx context.Context) ([]domain.Product, error)
	ListByDeliveryPartner(ctx context.Context, partnerID string) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, id string) error
}

// PgProductRepository implementa ProductRepository usando pgxpool.
type PgProductRepository struct {
	pool *pgxpool.Pool
}

func NewPgProductRepository(pool *pgxpool.Pool) *PgProductRepository {
	return &PgProductRepository{pool: pool}
}

const productColumns = `
	id, entrepreneur_id, entrepreneur_name, product_name, quantity, weight, cost,
	from_location, to_location, status, current_location,
	delivery_partner_id, delivery_partner_name, delivery_partner_price,
	created_at, updated_at
`

func (r *PgProductRepository) Create(ctx context.Context, product domain.Product) error {
	const query = `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		product.ID,
		product.EntrepreneurID,
		product.EntrepreneurName,
		product.ProductName,
		product.Quantity,
		product.Weight,
		product.Cost,
		product.FromLocation,
		product.ToLocation,
		product.Status,
		nullable(product.CurrentLocation),
		nullable(product.DeliveryPartnerID),
		nullable(product.DeliveryPartnerName),
		nullableFloat(product.DeliveryPartnerPrice),
		product.CreatedAt,
		product.UpdatedAt,
	)
	return err
}

func (r *PgProductRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.pool.QueryRow(ctx, query, id))
}

func (r *PgProductRepository) ListByEntrepreneur(ctx context.Context, entrepreneurID string) ([]domain.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE entrepreneur_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, entrepreneurID)
}

func (r *PgProductRepository) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE status = 'Pending' AND delivery_partner_id IS NULL
		ORDER BY created_at DESC
	`
	return r.list(ctx, query)
}

func (r *PgProductRepository) ListByDeliveryPartner(ctx context.Context, partnerID string) ([]domain.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE delivery_partner_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, partnerID)
}

func (r *PgProductRepository) Update(ctx context.Context, product domain.Product) error {
	const query = `
		UPDATE products SET
			status = $2,
			current_location = $3,
			delivery_partner_id = $4,
			delivery_partner_name = $5,
			delivery_partner_price = $6,
			updated_at = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		product.ID,
		product.Status,
		nullable(product.CurrentLocation),
		nullable(product.DeliveryPartnerID),
		nullable(product.DeliveryPartnerName),
		nullableFloat(product.DeliveryPartnerPrice),
		product.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgProductRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgProductRepository) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p            domain.Product
		location     *string
		partnerID    *string
		partnerName  *string
		partnerPrice *float64
	)
	err := row.Scan(
		&p.ID,
		&p.EntrepreneurID,
		&p.EntrepreneurName,
		&p.ProductName,
		&p.Quantity,
		&p.Weight,
		&p.Cost,
		&p.FromLocation,
		&p.ToLocation,
		&p.Status,
		&location,
		&partnerID,
		&partnerName,
		&partnerPrice,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	if location != nil {
		p.CurrentLocation = *location
	}
	if partnerID != nil {
		p.DeliveryPartnerID = *partnerID
	}
	if partnerName != nil {
		p.DeliveryPartnerName = *partnerName
	}
	if partnerPrice != nil {
		p.DeliveryPartnerPrice = *partnerPrice
	}
	return p, nil
}

func nullableFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
