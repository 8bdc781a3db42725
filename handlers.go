package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grocerypos/pos_backend/metrics"
	"github.com/grocerypos/pos_backend/middlewares"
	"github.com/grocerypos/pos_backend/models"
	"github.com/grocerypos/pos_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// bindJSON decodes and validates the body, writing a 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		appErr := utils.NewValidationError("invalid request body")
		for field, tag := range utils.ProcessValidationErrors(err) {
			appErr = appErr.WithDetail(field, tag)
		}
		middlewares.RespondError(c, appErr)
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		middlewares.RespondError(c, utils.ErrorRecordNotFound)
		return 0, false
	}
	return id, true
}

func errorCode(err error) string {
	if appErr, ok := utils.AsAppError(err); ok {
		return appErr.Code
	}
	return "internal"
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, errorCode(err))
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "GroceryPOS Backend is Online"})
}

func signupHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Signup")
	defer span.End()

	var input models.NewSignup
	if !bindJSON(c, &input) {
		metrics.RecordSignup("validation_failed")
		return
	}
	result, err := models.Signup(ctx, &input)
	if err != nil {
		recordSpanError(span, err)
		metrics.RecordSignup(errorCode(err))
		middlewares.RespondError(c, err)
		return
	}
	span.SetAttributes(attribute.String("tenant_id", result.StoreId))
	metrics.RecordSignup("success")
	c.JSON(http.StatusCreated, result)
}

func loginHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Login")
	defer span.End()

	var req loginRequest
	if !bindJSON(c, &req) {
		metrics.RecordLogin("validation_failed")
		return
	}
	info, err := models.Login(ctx, req.Email, req.Password, req.RememberMe)
	if err != nil {
		recordSpanError(span, err)
		metrics.RecordLogin(errorCode(err))
		middlewares.RespondError(c, err)
		return
	}
	span.SetAttributes(attribute.String("tenant_id", info.Store.ID), attribute.Int("user_id", info.User.ID))
	metrics.RecordLogin("success")
	c.JSON(http.StatusOK, info)
}

func logoutHandler(c *gin.Context) {
	ok, err := models.Logout(c.Request.Context())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// meHandler returns the caller's profile and store.
func meHandler(c *gin.Context) {
	tenantId, userId, _ := middlewares.CurrentIdentity(c)
	ctx := c.Request.Context()
	user, err := models.GetUser(ctx, tenantId, userId)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	tenant, err := models.GetTenant(ctx, tenantId)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":                user.Info(),
		"store":               tenant.Info(),
		"subscription_status": tenant.SubscriptionStatus,
	})
}

func listProductsHandler(c *gin.Context) {
	tenantId, _, _ := middlewares.CurrentIdentity(c)
	ctx, span := tracer.Start(c.Request.Context(), "GetProducts", trace.WithAttributes(attribute.String("tenant_id", tenantId)))
	defer span.End()

	products, err := models.GetProducts(ctx, tenantId)
	if err != nil {
		recordSpanError(span, err)
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func createProductHandler(c *gin.Context) {
	tenantId, _, _ := middlewares.CurrentIdentity(c)
	ctx, span := tracer.Start(c.Request.Context(), "CreateProduct", trace.WithAttributes(attribute.String("tenant_id", tenantId)))
	defer span.End()

	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.CreateProduct(ctx, tenantId, &input)
	if err != nil {
		recordSpanError(span, err)
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func getProductHandler(c *gin.Context) {
	tenantId, _, _ := middlewares.CurrentIdentity(c)
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), tenantId, id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func createTransactionHandler(c *gin.Context) {
	tenantId, userId, _ := middlewares.CurrentIdentity(c)
	ctx, span := tracer.Start(c.Request.Context(), "CreateTransaction", trace.WithAttributes(
		attribute.String("tenant_id", tenantId),
		attribute.Int("user_id", userId),
	))
	defer span.End()

	var input models.NewTransaction
	if !bindJSON(c, &input) {
		metrics.RecordSale("validation_failed")
		return
	}
	receipt, err := models.CreateTransaction(ctx, tenantId, userId, &input)
	if err != nil {
		recordSpanError(span, err)
		metrics.RecordSale(errorCode(err))
		middlewares.RespondError(c, err)
		return
	}
	span.SetAttributes(attribute.Int("transaction_id", receipt.TransactionId))
	metrics.RecordSale("success")
	amount, _ := receipt.TotalAmount.Float64()
	metrics.RecordSaleAmount(string(input.PaymentMethod), amount)
	c.JSON(http.StatusCreated, receipt)
}

func listTransactionsHandler(c *gin.Context) {
	tenantId, _, _ := middlewares.CurrentIdentity(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	transactions, err := models.GetTransactions(c.Request.Context(), tenantId, limit)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

func getTransactionHandler(c *gin.Context) {
	tenantId, _, _ := middlewares.CurrentIdentity(c)
	id, ok := pathId(c)
	if !ok {
		return
	}
	transaction, err := models.GetTransaction(c.Request.Context(), tenantId, id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}
