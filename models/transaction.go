package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxSaleAttempts          = 3
	defaultTransactionsLimit = 50
	maxTransactionsLimit     = 200
)

// errStockChanged marks a conditional decrement that matched no row; the sale is retried with fresh reads.
var errStockChanged = errors.New("stock changed during sale")

type Transaction struct {
	ID            int               `gorm:"primary_key" json:"id"`
	TenantId      string            `gorm:"size:36;not null;index;index:idx_transactions_tenant_created,priority:1" json:"tenant_id"`
	UserId        int               `gorm:"not null;index" json:"user_id"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	PaymentMethod PaymentMethod     `gorm:"size:20;not null" json:"payment_method"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index:idx_transactions_tenant_created,priority:2" json:"created_at"`
	Items         []TransactionItem `gorm:"foreignKey:TransactionId" json:"items,omitempty"`
}

// TransactionItem snapshots name and price at sale time.
type TransactionItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TransactionId int             `gorm:"not null;index" json:"transaction_id"`
	TenantId      string          `gorm:"size:36;not null;index" json:"tenant_id"`
	ProductId     int             `gorm:"not null;index" json:"product_id"`
	ProductName   string          `gorm:"size:255;not null" json:"product_name"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"`
}

type NewTransactionLine struct {
	ProductId int `json:"product_id" binding:"required,gt=0"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
	// ProductName is only used to name the line in errors
	ProductName string `json:"product_name"`
}

type NewTransaction struct {
	Items         []NewTransactionLine `json:"items" binding:"required,min=1,dive"`
	PaymentMethod PaymentMethod        `json:"payment_method" binding:"required"`
}

type TransactionReceipt struct {
	TransactionId int             `json:"transaction_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	Message       string          `json:"message"`
}

func (input *NewTransaction) validate() error {
	if len(input.Items) == 0 {
		return ErrEmptyCart
	}
	if !input.PaymentMethod.IsValid() {
		return ErrInvalidPayment
	}
	return validateInput(input)
}

func (line NewTransactionLine) label() string {
	if line.ProductName != "" {
		return line.ProductName
	}
	return fmt.Sprintf("#%d", line.ProductId)
}

// CreateTransaction records a sale atomically: all lines are checked against locked stock
// before anything is written, and a failing line leaves stock and the ledger untouched.
func CreateTransaction(ctx context.Context, tenantId string, userId int, input *NewTransaction) (*TransactionReceipt, error) {
	if err := requireTenant(tenantId); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, ErrEmptyCart
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	ctx = utils.SetTenantIdInContext(ctx, tenantId)
	logger := config.GetLogger()

	var (
		transaction *Transaction
		err         error
	)
	for attempt := 1; attempt <= maxSaleAttempts; attempt++ {
		transaction, err = createTransactionOnce(ctx, db, tenantId, userId, input)
		if err == nil {
			break
		}
		if !errors.Is(err, errStockChanged) && !utils.IsRetryableTxErr(err) {
			break
		}
		logger.WithFields(logrus.Fields{
			"field":     "CreateTransaction",
			"tenant_id": tenantId,
			"attempt":   attempt,
		}).Warn("sale retried: " + err.Error())
	}
	if err != nil {
		if appErr, ok := utils.AsAppError(err); ok {
			return nil, appErr
		}
		if errors.Is(err, errStockChanged) || utils.IsRetryableTxErr(err) {
			return nil, ErrSaleConflict
		}
		config.LogError(logger, "CreateTransaction", "createTransactionOnce", "sale unit of work", tenantId, err)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	invalidateProductCache(ctx, tenantId)

	return &TransactionReceipt{
		TransactionId: transaction.ID,
		TotalAmount:   transaction.TotalAmount,
		CreatedAt:     transaction.CreatedAt,
		Message:       "Transaction completed",
	}, nil
}

func createTransactionOnce(ctx context.Context, db *gorm.DB, tenantId string, userId int, input *NewTransaction) (*Transaction, error) {
	var transaction Transaction
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products, err := lockProducts(tx, tenantId, input.Items)
		if err != nil {
			return err
		}

		available := make(map[int]int, len(products))
		for id, p := range products {
			available[id] = p.StockQuantity
		}
		deductions := make(map[int]int, len(products))
		items := make([]TransactionItem, 0, len(input.Items))
		total := decimal.Zero

		for _, line := range input.Items {
			product, ok := products[line.ProductId]
			if !ok {
				return ErrProductNotFound.
					WithMessage("product %s not found", line.label()).
					WithDetail("product_id", line.ProductId)
			}
			if available[product.ID] < line.Quantity {
				return ErrInsufficientStock.
					WithMessage("insufficient stock for %s: available %d, requested %d", product.Name, available[product.ID], line.Quantity).
					WithDetail("product_id", product.ID).
					WithDetail("product_name", product.Name).
					WithDetail("available", available[product.ID]).
					WithDetail("requested", line.Quantity)
			}
			available[product.ID] -= line.Quantity
			deductions[product.ID] += line.Quantity

			lineTotal := product.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(lineTotal)
			items = append(items, TransactionItem{
				TenantId:    tenantId,
				ProductId:   product.ID,
				ProductName: product.Name,
				UnitPrice:   product.SellingPrice,
				Quantity:    line.Quantity,
				TotalPrice:  lineTotal,
			})
		}

		for _, id := range sortedKeys(deductions) {
			qty := deductions[id]
			res := tx.Model(&Product{}).
				Where("id = ? AND tenant_id = ? AND stock_quantity >= ?", id, tenantId, qty).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return errStockChanged
			}
		}

		transaction = Transaction{
			TenantId:      tenantId,
			UserId:        userId,
			TotalAmount:   total,
			PaymentMethod: input.PaymentMethod,
			Items:         items,
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		return writeSaleEvent(ctx, tx, &transaction)
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// lockProducts reads the referenced products of the tenant with row locks taken in ascending id order.
func lockProducts(tx *gorm.DB, tenantId string, lines []NewTransactionLine) (map[int]*Product, error) {
	ids := make([]int, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductId)
	}
	ids = utils.UniqueSlice(ids)
	sort.Ints(ids)

	var rows []*Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantId, ids).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	products := make(map[int]*Product, len(rows))
	for _, p := range rows {
		products[p.ID] = p
	}
	return products, nil
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// GetTransaction returns one sale of the tenant with its items.
func GetTransaction(ctx context.Context, tenantId string, id int) (*Transaction, error) {
	if err := requireTenant(tenantId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	ctx = utils.SetTenantIdInContext(ctx, tenantId)

	var transaction Transaction
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Take(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &transaction, nil
}

// GetTransactions lists the tenant's most recent sales without items.
func GetTransactions(ctx context.Context, tenantId string, limit int) ([]*Transaction, error) {
	if err := requireTenant(tenantId); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	db := config.GetDB()
	ctx = utils.SetTenantIdInContext(ctx, tenantId)

	results := make([]*Transaction, 0)
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
