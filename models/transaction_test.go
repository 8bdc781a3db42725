package models_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/grocerypos/pos_backend/models"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func stockOf(t *testing.T, db *gorm.DB, productId int) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.Where("id = ?", productId).Take(&product).Error)
	return product.StockQuantity
}

func TestCreateTransaction_TotalsAndStock(t *testing.T) {
	db := setupTestDB(t)
	ctx := utils.SetCorrelationIdInContext(context.Background(), "corr-1")
	store := signupStore(t, "owner@corner.test", "")

	rice := createProduct(t, store.StoreId, newProduct("Rice", 10, 10))
	salt := createProduct(t, store.StoreId, newProduct("Salt", 5, 4))

	receipt, err := models.CreateTransaction(ctx, store.StoreId, store.UserId, &models.NewTransaction{
		Items: []models.NewTransactionLine{
			{ProductId: rice.ID, Quantity: 2},
			{ProductId: salt.ID, Quantity: 1},
		},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(receipt.TotalAmount), "total %s", receipt.TotalAmount)
	assert.Equal(t, "Transaction completed", receipt.Message)

	assert.Equal(t, 8, stockOf(t, db, rice.ID))
	assert.Equal(t, 3, stockOf(t, db, salt.ID))

	sale, err := models.GetTransaction(ctx, store.StoreId, receipt.TransactionId)
	require.NoError(t, err)
	assert.Equal(t, store.UserId, sale.UserId)
	assert.Equal(t, models.PaymentMethodCash, sale.PaymentMethod)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Rice", sale.Items[0].ProductName)
	assert.True(t, decimal.NewFromInt(10).Equal(sale.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(20).Equal(sale.Items[0].TotalPrice))
	assert.Equal(t, "Salt", sale.Items[1].ProductName)
	assert.True(t, decimal.NewFromInt(5).Equal(sale.Items[1].TotalPrice))

	var events []models.OutboxMessage
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTransactionCreated, events[0].EventType)
	assert.Equal(t, receipt.TransactionId, events[0].ReferenceId)
	assert.Equal(t, store.StoreId, events[0].TenantId)
	assert.Equal(t, models.OutboxPublishStatusPending, events[0].PublishStatus)
	assert.Equal(t, "corr-1", events[0].CorrelationId)

	var payload models.Transaction
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, receipt.TransactionId, payload.ID)
	assert.Len(t, payload.Items, 2)
}

func TestCreateTransaction_InsufficientStockChangesNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := signupStore(t, "owner@corner.test", "")

	rice := createProduct(t, store.StoreId, newProduct("Rice", 10, 10))
	salt := createProduct(t, store.StoreId, newProduct("Salt", 5, 1))

	sale := &models.NewTransaction{
		Items: []models.NewTransactionLine{
			{ProductId: rice.ID, Quantity: 2},
			{ProductId: salt.ID, Quantity: 3},
		},
		PaymentMethod: models.PaymentMethodCard,
	}
	// failing twice leaves the same state as failing once
	for i := 0; i < 2; i++ {
		_, err := models.CreateTransaction(ctx, store.StoreId, store.UserId, sale)
		require.ErrorIs(t, err, models.ErrInsufficientStock)

		appErr, ok := utils.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, utils.KindInsufficientStock, appErr.Kind)
		assert.Equal(t, "Salt", appErr.Details["product_name"])
		assert.Equal(t, 1, appErr.Details["available"])
		assert.Equal(t, 3, appErr.Details["requested"])
		assert.Contains(t, appErr.Message, "Salt")

		assert.Equal(t, 10, stockOf(t, db, rice.ID))
		assert.Equal(t, 1, stockOf(t, db, salt.ID))
		assert.Zero(t, countRows[models.Transaction](t, db))
		assert.Zero(t, countRows[models.TransactionItem](t, db))
		assert.Zero(t, countRows[models.OutboxMessage](t, db))
	}
}

func TestCreateTransaction_RepeatedLinesShareStock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := signupStore(t, "owner@corner.test", "")
	milk := createProduct(t, store.StoreId, newProduct("Milk", 30, 5))

	twice := &models.NewTransaction{
		Items: []models.NewTransactionLine{
			{ProductId: milk.ID, Quantity: 3},
			{ProductId: milk.ID, Quantity: 3},
		},
		PaymentMethod: models.PaymentMethodUPI,
	}
	_, err := models.CreateTransaction(ctx, store.StoreId, store.UserId, twice)
	require.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, db, milk.ID))

	twice.Items[1].Quantity = 2
	receipt, err := models.CreateTransaction(ctx, store.StoreId, store.UserId, twice)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(receipt.TotalAmount))
	assert.Zero(t, stockOf(t, db, milk.ID))

	sale, err := models.GetTransaction(ctx, store.StoreId, receipt.TransactionId)
	require.NoError(t, err)
	assert.Len(t, sale.Items, 2)
}

func TestCreateTransaction_UnknownOrForeignProduct(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	storeA := signupStore(t, "a@corner.test", "")
	storeB := signupStore(t, "b@corner.test", "")
	foreign := createProduct(t, storeB.StoreId, newProduct("Oil", 150, 10))
	own := createProduct(t, storeA.StoreId, newProduct("Rice", 10, 10))

	_, err := models.CreateTransaction(ctx, storeA.StoreId, storeA.UserId, &models.NewTransaction{
		Items: []models.NewTransactionLine{
			{ProductId: own.ID, Quantity: 1},
			{ProductId: foreign.ID, Quantity: 1, ProductName: "Oil"},
		},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.ErrorIs(t, err, models.ErrProductNotFound)
	appErr, _ := utils.AsAppError(err)
	assert.Contains(t, appErr.Message, "Oil")

	assert.Equal(t, 10, stockOf(t, db, foreign.ID))
	assert.Equal(t, 10, stockOf(t, db, own.ID))

	_, err = models.CreateTransaction(ctx, storeA.StoreId, storeA.UserId, &models.NewTransaction{
		Items:         []models.NewTransactionLine{{ProductId: 9999, Quantity: 1}},
		PaymentMethod: models.PaymentMethodCash,
	})
	require.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestCreateTransaction_RejectsBadInput(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	store := signupStore(t, "owner@corner.test", "")
	rice := createProduct(t, store.StoreId, newProduct("Rice", 10, 10))

	_, err := models.CreateTransaction(ctx, store.StoreId, store.UserId, &models.NewTransaction{PaymentMethod: models.PaymentMethodCash})
	require.ErrorIs(t, err, models.ErrEmptyCart)

	_, err = models.CreateTransaction(ctx, store.StoreId, store.UserId, &models.NewTransaction{
		Items:         []models.NewTransactionLine{{ProductId: rice.ID, Quantity: 1}},
		PaymentMethod: "cheque",
	})
	require.ErrorIs(t, err, models.ErrInvalidPayment)

	_, err = models.CreateTransaction(ctx, store.StoreId, store.UserId, &models.NewTransaction{
		Items:         []models.NewTransactionLine{{ProductId: rice.ID, Quantity: 0}},
		PaymentMethod: models.PaymentMethodCash,
	})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindValidation, appErr.Kind)

	_, err = models.CreateTransaction(ctx, "", store.UserId, &models.NewTransaction{})
	require.ErrorIs(t, err, models.ErrTenantRequired)
}

func TestPaymentMethod_CaseInsensitiveJSON(t *testing.T) {
	var input models.NewTransaction
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"product_id":1,"quantity":1}],"payment_method":" UPI "}`), &input))
	assert.Equal(t, models.PaymentMethodUPI, input.PaymentMethod)
	assert.True(t, input.PaymentMethod.IsValid())
}

func TestTransactions_TenantScopedReads(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	storeA := signupStore(t, "a@corner.test", "")
	storeB := signupStore(t, "b@corner.test", "")
	rice := createProduct(t, storeA.StoreId, newProduct("Rice", 10, 100))

	var ids []int
	for i := 0; i < 3; i++ {
		receipt, err := models.CreateTransaction(ctx, storeA.StoreId, storeA.UserId, &models.NewTransaction{
			Items:         []models.NewTransactionLine{{ProductId: rice.ID, Quantity: 1}},
			PaymentMethod: models.PaymentMethodCash,
		})
		require.NoError(t, err)
		ids = append(ids, receipt.TransactionId)
	}

	list, err := models.GetTransactions(ctx, storeA.StoreId, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)

	all, err := models.GetTransactions(ctx, storeA.StoreId, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := models.GetTransactions(ctx, storeB.StoreId, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = models.GetTransaction(ctx, storeB.StoreId, ids[0])
	require.ErrorIs(t, err, models.ErrTransactionNotFound)
}
