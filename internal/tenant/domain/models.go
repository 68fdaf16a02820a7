// Package domain contains the seller identity used when documents are sent to the gateway.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound = errors.New("tenant_not_found")
	ErrInactive = errors.New("tenant_inactive")
)

// Tenant is a tax-registered seller.
type Tenant struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	SellerNTN    string       `gorm:"type:varchar(32);not null;uniqueIndex:ux_tenants_seller_ntn" json:"seller_ntn"`
	BusinessName string       `gorm:"type:text;not null" json:"business_name"`
	Province     string       `gorm:"type:text;not null" json:"province"`
	Address      string       `gorm:"type:text;not null" json:"address"`
	GatewayToken *string      `gorm:"type:text" json:"-"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Token returns the tenant's gateway token, or fallback when none is stored.
func (t Tenant) Token(fallback string) string {
	if t.GatewayToken != nil && strings.TrimSpace(*t.GatewayToken) != "" {
		return strings.TrimSpace(*t.GatewayToken)
	}
	return strings.TrimSpace(fallback)
}

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Tenant, error)
	FindActiveBySellerNTN(ctx context.Context, ntn string) (*Tenant, error)
	Create(ctx context.Context, tenant *Tenant) error
}
