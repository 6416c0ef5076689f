package domain

import (
	"math"
	"time"
)

// DefaultProductImage is shown when a product has no image.
const DefaultProductImage = "🏏"

type Review struct {
	UserID    string    `bson:"user_id" json:"userId"`
	UserName  string    `bson:"user_name" json:"userName"`
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type Product struct {
	ID          string   `bson:"id" json:"id"`
	Name        string   `bson:"name" json:"name"`
	Brand       string   `bson:"brand" json:"brand"`
	Category    string   `bson:"category" json:"category"`
	Price       Money    `bson:"price" json:"price"`
	Rating      float64  `bson:"rating" json:"rating"`
	ReviewCount int      `bson:"reviews" json:"reviews"`
	Image       string   `bson:"image" json:"image"`
	Description string   `bson:"description" json:"description"`
	Stock       int      `bson:"stock" json:"stock"`
	UserReviews []Review `bson:"user_reviews" json:"userReviews"`
}

func (p *Product) DisplayImage() string {
	if p.Image == "" {
		return DefaultProductImage
	}
	return p.Image
}

// AverageRating is the mean of user reviews rounded to one decimal,
// or the seeded rating when nobody has reviewed yet.
func (p *Product) AverageRating() float64 {
	if len(p.UserReviews) == 0 {
		return p.Rating
	}
	sum := 0
	for _, r := range p.UserReviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(p.UserReviews))*10) / 10
}

func (p *Product) TotalReviews() int {
	if len(p.UserReviews) == 0 {
		return p.ReviewCount
	}
	return len(p.UserReviews)
}

func (p *Product) ReviewBy(userID string) *Review {
	for i := range p.UserReviews {
		if p.UserReviews[i].UserID == userID {
			return &p.UserReviews[i]
		}
	}
	return nil
}

// UpsertReview replaces the reviewer's previous review if there is one and
// refreshes Rating and ReviewCount. It reports whether a review was replaced.
func (p *Product) UpsertReview(r Review) bool {
	replaced := false
	if existing := p.ReviewBy(r.UserID); existing != nil {
		*existing = r
		replaced = true
	} else {
		p.UserReviews = append(p.UserReviews, r)
	}
	p.Rating = p.AverageRating()
	p.ReviewCount = len(p.UserReviews)
	return replaced
}
