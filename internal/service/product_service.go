package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cargolink/internal/domain"
	"cargolink/internal/repository"
)

// ProductService maneja el ciclo de vida de envios en el marketplace.
type ProductService struct {
	logger   *zap.Logger
	products repository.ProductRepository
	users    repository.UserRepository
}

func NewProductService(logger *zap.Logger, products repository.ProductRepository, users repository.UserRepository) *ProductService {
	return &ProductService{
		logger:   logger,
		products: products,
		users:    users,
	}
}

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrPartnerAssigned    = errors.New("cannot delete product with assigned delivery partner")
)

type CreateProductInput struct {
	ProductName  string
	Quantity     string
	Weight       float64
	Cost         float64
	FromLocation string
	ToLocation   string
}

// Create publica un envio. Solo emprendedores.
func (s *ProductService) Create(ctx context.Context, callerID, callerType string, input CreateProductInput) (domain.Product, error) {
	if callerType != domain.UserTypeEntrepreneur {
		return domain.Product{}, ErrAccessDenied
	}
	if strings.TrimSpace(input.ProductName) == "" ||
		strings.TrimSpace(input.Quantity) == "" ||
		input.Weight <= 0 ||
		input.Cost <= 0 ||
		strings.TrimSpace(input.FromLocation) == "" ||
		strings.TrimSpace(input.ToLocation) == "" {
		return domain.Product{}, validationErrorf("all fields are required")
	}

	owner, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrUserNotFound
		}
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:               uuid.NewString(),
		EntrepreneurID:   owner.ID,
		EntrepreneurName: owner.Name,
		ProductName:      strings.TrimSpace(input.ProductName),
		Quantity:         strings.TrimSpace(input.Quantity),
		Weight:           input.Weight,
		Cost:             input.Cost,
		FromLocation:     strings.TrimSpace(input.FromLocation),
		ToLocation:       strings.TrimSpace(input.ToLocation),
		Status:           domain.ProductStatusPending,
		CurrentLocation:  strings.TrimSpace(input.FromLocation),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// MyProducts lista los envios publicados por el emprendedor.
func (s *ProductService) MyProducts(ctx context.Context, callerID, callerType string) ([]domain.Product, error) {
	if callerType != domain.UserTypeEntrepreneur {
		return nil, ErrAccessDenied
	}
	return s.products.ListByEntrepreneur(ctx, callerID)
}

// Get devuelve un envio. Lo ven el dueno, el partner asignado o cualquier
// caller con rol delivery (comportamiento heredado del marketplace abierto).
func (s *ProductService) Get(ctx context.Context, callerID, callerType, productID string) (domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}

	hasAccess := product.EntrepreneurID == callerID ||
		(product.DeliveryPartnerID != "" && product.DeliveryPartnerID == callerID)
	if !hasAccess && callerType != domain.UserTypeDelivery {
		return domain.Product{}, ErrAccessDenied
	}
	return product, nil
}

type UpdateProductInput struct {
	Status          string
	CurrentLocation string
}

// Update cambia estado y/o ubicacion. El emprendedor solo toca lo suyo.
func (s *ProductService) Update(ctx context.Context, callerID, callerType, productID string, input UpdateProductInput) (domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	if callerType == domain.UserTypeEntrepreneur && product.EntrepreneurID != callerID {
		return domain.Product{}, ErrAccessDenied
	}

	if input.Status != "" {
		product.Status = input.Status
	}
	if input.CurrentLocation != "" {
		product.CurrentLocation = strings.TrimSpace(input.CurrentLocation)
	}
	product.UpdatedAt = time.Now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// Delete elimina un envio sin partner asignado.
func (s *ProductService) Delete(ctx context.Context, callerID, productID string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}
	if product.EntrepreneurID != callerID {
		return ErrAccessDenied
	}
	if product.DeliveryPartnerID != "" {
		return ErrPartnerAssigned
	}
	return s.products.Delete(ctx, productID)
}

// AvailableDeliveries lista envios pendientes sin partner, para el rol delivery.
func (s *ProductService) AvailableDeliveries(ctx context.Context, callerType string) ([]domain.Product, error) {
	if callerType != domain.UserTypeDelivery {
		return nil, ErrAccessDenied
	}
	return s.products.ListAvailable(ctx)
}

// AcceptDelivery asigna el envio al delivery partner con su precio ofertado.
func (s *ProductService) AcceptDelivery(ctx context.Context, callerID, callerType, productID string, offeredPrice float64) (domain.Product, error) {
	if callerType != domain.UserTypeDelivery {
		return domain.Product{}, ErrAccessDenied
	}
	if offeredPrice <= 0 {
		return domain.Product{}, validationErrorf("valid offered price is required")
	}

	partner, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrUserNotFound
		}
		return domain.Product{}, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	if product.Status != domain.ProductStatusPending || product.DeliveryPartnerID != "" {
		return domain.Product{}, ErrProductUnavailable
	}

	product.DeliveryPartnerID = partner.ID
	product.DeliveryPartnerName = partner.Name
	product.DeliveryPartnerPrice = offeredPrice
	product.Status = domain.ProductStatusAccepted
	product.UpdatedAt = time.Now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// MyDeliveries lista los envios aceptados por el delivery partner.
func (s *ProductService) MyDeliveries(ctx context.Context, callerID, callerType string) ([]domain.Product, error) {
	if callerType != domain.UserTypeDelivery {
		return nil, ErrAccessDenied
	}
	return s.products.ListByDeliveryPartner(ctx, callerID)
}

// UpdateDeliveryStatus permite al partner asignado avanzar el estado del envio.
func (s *ProductService) UpdateDeliveryStatus(ctx context.Context, callerID, productID string, input UpdateProductInput) (domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	if product.DeliveryPartnerID == "" || product.DeliveryPartnerID != callerID {
		return domain.Product{}, ErrAccessDenied
	}
	if input.Status != "" && !domain.ValidProductStatus(input.Status) {
		return domain.Product{}, validationErrorf("invalid status")
	}

	if input.Status != "" {
		product.Status = input.Status
	}
	if input.CurrentLocation != "" {
		product.CurrentLocation = strings.TrimSpace(input.CurrentLocation)
	}
	product.UpdatedAt = time.Now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}
