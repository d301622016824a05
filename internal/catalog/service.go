package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

const searchLimit = 50

// Service defines the catalog lookups the kiosk exposes.
type Service interface {
	LookupByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) LookupByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}

	product, err := s.repo.FindActiveByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up product")
	}
	return product, nil
}

// Search resolves a kiosk search box query. A numeric query is treated
// as a scanned barcode first; an exact hit always sorts ahead of the
// fuzzy name matches.
func (s *service) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Product{}, nil
	}
	if len(query) < 2 && !isDigits(query) {
		return []models.Product{}, nil
	}

	var results []models.Product
	if isDigits(query) {
		exact, err := s.repo.FindActiveByBarcode(ctx, query)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "searching products")
		}
		if exact != nil {
			results = append(results, *exact)
		}
	}

	matches, err := s.repo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "searching products")
	}
	for _, match := range matches {
		if len(results) > 0 && match.ID == results[0].ID {
			continue
		}
		results = append(results, match)
		if len(results) >= searchLimit {
			break
		}
	}
	if results == nil {
		results = []models.Product{}
	}
	return results, nil
}

func (s *service) ListLowStock(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing low stock products")
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
