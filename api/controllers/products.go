package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/salessavvy-storefront/api/responses"
	"github.com/angelmondragon/salessavvy-storefront/api/validators"
	"github.com/angelmondragon/salessavvy-storefront/internal/devserver"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// CatalogService is the read-only product listing.
type CatalogService interface {
	Products(ctx context.Context) []devserver.Product
	Product(ctx context.Context, id int64) (devserver.Product, bool)
}

func ProductList(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := svc.Products(r.Context())
		responses.WriteSuccess(w, responses.Body{
			"products": products,
			"count":    len(products),
		})
	}
}

// ProductDetail answers with the bare product object.
func ProductDetail(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, ok := svc.Product(r.Context(), id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Product not found with ID: %d", id)))
			return
		}
		responses.WriteJSON(w, http.StatusOK, product)
	}
}
