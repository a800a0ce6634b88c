// Package testutil builds in-memory databases seeded with one brand/showroom pair.
package testutil

import (
	"testing"
	"time"

	"showroom-backend/internal/domain"
	"showroom-backend/internal/infrastructure/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type Fixture struct {
	DB            *gorm.DB
	BrandOwner    domain.User
	ShowroomOwner domain.User
	Stranger      domain.User
	Brand         domain.Brand
	Showroom      domain.Showroom
	ProductX      domain.Product
	ProductY      domain.Product
	Option        domain.CommissionOption
}

// Seed creates owners, a brand holding credits, a showroom with one commission option and two products.
func Seed(t *testing.T, db *gorm.DB, credits int) *Fixture {
	t.Helper()
	f := &Fixture{DB: db}
	f.BrandOwner = domain.User{Fullname: "Brand Owner", Email: "brand@example.com", PasswordHash: "x", Role: "member"}
	f.ShowroomOwner = domain.User{Fullname: "Showroom Owner", Email: "showroom@example.com", PasswordHash: "x", Role: "member"}
	f.Stranger = domain.User{Fullname: "Someone Else", Email: "stranger@example.com", PasswordHash: "x", Role: "member"}
	require.NoError(t, db.Create(&f.BrandOwner).Error)
	require.NoError(t, db.Create(&f.ShowroomOwner).Error)
	require.NoError(t, db.Create(&f.Stranger).Error)

	f.Brand = domain.Brand{OwnerUserID: f.BrandOwner.UserID, Name: "Atelier Nord", ContactEmail: "brand@example.com", Credits: credits}
	require.NoError(t, db.Create(&f.Brand).Error)
	f.Showroom = domain.Showroom{OwnerUserID: f.ShowroomOwner.UserID, Name: "Galerie Sud", ContactEmail: "showroom@example.com"}
	require.NoError(t, db.Create(&f.Showroom).Error)

	f.ProductX = domain.Product{BrandID: f.Brand.ID, Name: "Linen shirt"}
	f.ProductY = domain.Product{BrandID: f.Brand.ID, Name: "Wool scarf"}
	require.NoError(t, db.Create(&f.ProductX).Error)
	require.NoError(t, db.Create(&f.ProductY).Error)

	f.Option = domain.CommissionOption{
		ShowroomID:        f.Showroom.ID,
		RentCents:         15000,
		RentPeriod:        domain.RentPeriodMonth,
		CommissionPercent: decimal.NewFromInt(20),
		Description:       "Shelf + 20% on sales",
	}
	require.NoError(t, db.Create(&f.Option).Error)
	return f
}

// Partner inserts an accepted candidature for the fixture pair without touching the ledger.
func (f *Fixture) Partner(t *testing.T) domain.Candidature {
	t.Helper()
	c := domain.Candidature{
		BrandID:    f.Brand.ID,
		ShowroomID: f.Showroom.ID,
		Status:     domain.CandidatureAccepted,
		ExpiresAt:  time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	c.SetOffer(domain.OptionOffer(f.Option.ID))
	require.NoError(t, f.DB.Create(&c).Error)
	return c
}

// Reload fetches the brand's current balance columns.
func (f *Fixture) Reload(t *testing.T) domain.Brand {
	t.Helper()
	var b domain.Brand
	require.NoError(t, f.DB.First(&b, "id = ?", f.Brand.ID).Error)
	return b
}

// AsUser is a fiber middleware that puts userID in the session locals, as the session middleware would after login.
func AsUser(userID uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    role,
		})
		return c.Next()
	}
}
