package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultMinStockLevel = 5

type Product struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"size:36;not null;index;index:idx_products_tenant_barcode,priority:1" json:"tenant_id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Barcode       *string         `gorm:"size:100;default:null;index:idx_products_tenant_barcode,priority:2" json:"barcode"`
	Category      string          `gorm:"size:100;not null" json:"category"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"selling_price"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
	MinStockLevel int             `gorm:"not null;default:5" json:"min_stock_level"`
	IsLowStock    bool            `gorm:"-" json:"is_low_stock"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewProduct has no tenant field; the caller's tenant is always stamped.
type NewProduct struct {
	Name          string          `json:"name" binding:"required,max=255"`
	Barcode       string          `json:"barcode" binding:"omitempty,max=100"`
	Category      string          `json:"category" binding:"required,max=100"`
	CostPrice     decimal.Decimal `json:"cost_price" binding:"gte=0"`
	SellingPrice  decimal.Decimal `json:"selling_price" binding:"gt=0"`
	StockQuantity int             `json:"stock_quantity" binding:"gte=0"`
	MinStockLevel *int            `json:"min_stock_level" binding:"omitempty,gte=0"`
}

/*
caches:
	ProductList:$tenantId:$version
	ProductListVersion:$tenantId
*/

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.IsLowStock = p.StockQuantity <= p.MinStockLevel
	return nil
}

func (p *Product) AfterCreate(tx *gorm.DB) error {
	p.IsLowStock = p.StockQuantity <= p.MinStockLevel
	return nil
}

func (input *NewProduct) validate(ctx context.Context, db *gorm.DB, tenantId string) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.Barcode = strings.TrimSpace(input.Barcode)
	if err := validateInput(input); err != nil {
		return err
	}
	if input.Barcode != "" {
		err := utils.ValidateUnique[Product](ctx, db, tenantId, "barcode", input.Barcode, nil)
		if errors.Is(err, utils.ErrDuplicateValue) {
			return ErrBarcodeTaken
		}
		if err != nil {
			return fmt.Errorf("check barcode: %w", err)
		}
	}
	return nil
}

func requireTenant(tenantId string) error {
	if strings.TrimSpace(tenantId) == "" {
		return ErrTenantRequired
	}
	return nil
}

func CreateProduct(ctx context.Context, tenantId string, input *NewProduct) (*Product, error) {
	if err := requireTenant(tenantId); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, utils.NewValidationError("product payload is required")
	}
	db := config.GetDB()
	ctx = utils.SetTenantIdInContext(ctx, tenantId)

	if err := input.validate(ctx, db, tenantId); err != nil {
		return nil, err
	}

	minStock := defaultMinStockLevel
	if input.MinStockLevel != nil {
		minStock = *input.MinStockLevel
	}
	product := Product{
		TenantId:      tenantId,
		Name:          input.Name,
		Barcode:       utils.NilIfEmpty(input.Barcode),
		Category:      input.Category,
		CostPrice:     input.CostPrice,
		SellingPrice:  input.SellingPrice,
		StockQuantity: input.StockQuantity,
		MinStockLevel: minStock,
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		config.LogError(config.GetLogger(), "CreateProduct", "Create", "insert product", tenantId, err)
		return nil, fmt.Errorf("create product: %w", err)
	}

	invalidateProductCache(ctx, tenantId)
	return &product, nil
}

func GetProduct(ctx context.Context, tenantId string, id int) (*Product, error) {
	if err := requireTenant(tenantId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	ctx = utils.SetTenantIdInContext(ctx, tenantId)

	var product Product
	err := db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantId, id).Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProducts lists the tenant's catalog ordered by id, served from redis when cached.
func GetProducts(ctx context.Context, tenantId string) ([]*Product, error) {
	if err := requireTenant(tenantId); err != nil {
		return nil, err
	}
	ctx = utils.SetTenantIdInContext(ctx, tenantId)

	useCache := true
	version, err := utils.RedisListVersion[Product](ctx, tenantId)
	if err != nil {
		config.LogError(config.GetLogger(), "GetProducts", "RedisListVersion", "read product cache version", tenantId, err)
		useCache = false
	}
	if useCache {
		cached, err := utils.RetrieveRedisList[Product](ctx, tenantId, version)
		if err != nil {
			config.LogError(config.GetLogger(), "GetProducts", "RetrieveRedisList", "read product cache", tenantId, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	db := config.GetDB()
	results := make([]*Product, 0)
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Order("id").Find(&results).Error; err != nil {
		return nil, err
	}

	if useCache {
		if err := utils.StoreRedisList[Product](ctx, results, tenantId, version); err != nil {
			config.LogError(config.GetLogger(), "GetProducts", "StoreRedisList", "write product cache", tenantId, err)
		}
	}
	return results, nil
}

func invalidateProductCache(ctx context.Context, tenantId string) {
	if err := utils.RemoveRedisList[Product](ctx, tenantId); err != nil {
		config.LogError(config.GetLogger(), "Product", "invalidateProductCache", "clear product cache", tenantId, err)
	}
}
