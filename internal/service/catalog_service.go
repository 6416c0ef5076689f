package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
)

type CatalogService struct {
	products repository.ProductRepository
	accounts repository.AccountRepository
	now      func() time.Time
}

func NewCatalogService(products repository.ProductRepository, accounts repository.AccountRepository) *CatalogService {
	return &CatalogService{products: products, accounts: accounts, now: time.Now}
}

type Catalog struct {
	Products   []*domain.Product `json:"products"`
	Categories []string          `json:"categories"`
	Brands     []string          `json:"brands"`
}

func (s *CatalogService) List(ctx context.Context) (*Catalog, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	return &Catalog{
		Products:   products,
		Categories: distinct(products, func(p *domain.Product) string { return p.Category }),
		Brands:     distinct(products, func(p *domain.Product) string { return p.Brand }),
	}, nil
}

func distinct(products []*domain.Product, field func(*domain.Product) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range products {
		v := field(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type ProductDetail struct {
	Product      *domain.Product `json:"product"`
	Image        string          `json:"image"`
	AvgRating    float64         `json:"avgRating"`
	TotalReviews int             `json:"totalReviews"`
	UserReview   *domain.Review  `json:"userReview,omitempty"`
}

// Detail returns the product with its rating summary. viewerID may be empty.
func (s *CatalogService) Detail(ctx context.Context, productID, viewerID string) (*ProductDetail, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{
		Product:      p,
		Image:        p.DisplayImage(),
		AvgRating:    p.AverageRating(),
		TotalReviews: p.TotalReviews(),
	}
	if viewerID != "" {
		detail.UserReview = p.ReviewBy(viewerID)
	}
	return detail, nil
}

// AddReview stores the account's review of a product, replacing an earlier one.
// It reports whether an earlier review was replaced.
func (s *CatalogService) AddReview(ctx context.Context, accountID, productID string, rating int, comment string) (bool, error) {
	comment = strings.TrimSpace(comment)
	if rating == 0 || comment == "" {
		return false, invalid("form", "Rating and comment are required")
	}
	if rating < 1 || rating > 5 {
		return false, invalid("rating", "Rating must be between 1 and 5")
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}

	replaced := p.UpsertReview(domain.Review{
		UserID:    account.ID,
		UserName:  account.DisplayName(),
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	})
	if err := s.products.SaveReviews(ctx, p); err != nil {
		return false, errors.Wrap(err, "save reviews")
	}
	return replaced, nil
}
