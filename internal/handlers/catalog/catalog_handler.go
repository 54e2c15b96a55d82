// internal/handlers/catalog/catalog_handler.go
package catalog

import (
	"net/http"

	"rayslaund-service/internal/domain/catalog"
	"rayslaund-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// PriceList returns the service catalog (public endpoint)
func (h *CatalogHandler) PriceList(c *gin.Context) {
	response.Success(c, http.StatusOK, "price list retrieved", catalog.PriceList())
}
