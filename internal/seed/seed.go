package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultStock = 100

type productRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Brand       string       `json:"brand"`
	Category    string       `json:"category"`
	Price       domain.Money `json:"price"`
	Image       string       `json:"image"`
	Description string       `json:"description"`
	Stock       *int         `json:"stock"`
}

type dataFile struct {
	Products []productRecord `json:"products"`
}

// Load reads products from either a bare JSON array or an object with a
// "products" key. Ratings and review counts in the file are ignored; they
// come from real reviews only.
func Load(r io.Reader) ([]*domain.Product, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read seed data")
	}

	var records []productRecord
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &records)
	} else {
		var file dataFile
		err = json.Unmarshal(raw, &file)
		records = file.Products
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode seed data")
	}

	seen := make(map[string]struct{}, len(records))
	products := make([]*domain.Product, 0, len(records))
	for i, rec := range records {
		p, err := rec.product()
		if err != nil {
			return nil, errors.Wrapf(err, "product #%d", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Errorf("product #%d: duplicate id %q", i+1, p.ID)
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products, nil
}

func LoadFile(path string) ([]*domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer f.Close()
	return Load(f)
}

func (r productRecord) product() (*domain.Product, error) {
	id := strings.TrimSpace(r.ID)
	name := strings.TrimSpace(r.Name)
	if id == "" || name == "" {
		return nil, errors.New("id and name are required")
	}
	if r.Price <= 0 {
		return nil, errors.Errorf("%s: price must be positive", id)
	}
	stock := defaultStock
	if r.Stock != nil {
		stock = *r.Stock
	}
	if stock < 0 {
		return nil, errors.Errorf("%s: stock cannot be negative", id)
	}
	return &domain.Product{
		ID:          id,
		Name:        name,
		Brand:       r.Brand,
		Category:    r.Category,
		Price:       r.Price,
		Image:       r.Image,
		Description: r.Description,
		Stock:       stock,
		UserReviews: []domain.Review{},
	}, nil
}

// Seeder replaces catalogue entries with the seeded version.
type Seeder struct {
	products repository.ProductRepository
	log      logrus.FieldLogger
}

func NewSeeder(products repository.ProductRepository, log logrus.FieldLogger) *Seeder {
	return &Seeder{products: products, log: log}
}

func (s *Seeder) Seed(ctx context.Context, products []*domain.Product) (int, error) {
	for i, p := range products {
		if err := s.products.UpsertProduct(ctx, p); err != nil {
			return i, errors.Wrapf(err, "seed %s", p.ID)
		}
		s.log.WithField("product_id", p.ID).Debug("product seeded")
	}
	s.log.WithField("count", len(products)).Info("catalogue seeded")
	return len(products), nil
}
