package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bladi23/ImportadoraSonib/models"
	"github.com/bladi23/ImportadoraSonib/orders"
)

// writeError maps domain errors onto HTTP statuses: validation 400, missing
// resources 404, availability and concurrency conflicts 409.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		unavailable  *models.ProductUnavailableError
		insufficient *models.InsufficientStockError
	)

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})

	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrInvalidProduct),
		errors.Is(err, models.ErrInvalidOutcome),
		errors.Is(err, orders.ErrOrderEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrSessionMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.As(err, &unavailable),
		errors.As(err, &insufficient),
		errors.Is(err, models.ErrConcurrencyConflict),
		errors.Is(err, orders.ErrOrderAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
