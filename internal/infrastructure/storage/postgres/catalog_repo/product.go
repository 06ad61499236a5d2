package catalog_repo

import (
	"yiyostore/internal/domain/catalogs/product"
	"yiyostore/internal/infrastructure/storage/postgres"
)

const productTable = "cat_product"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

var _ product.Repository = (*ProductRepo)(nil)
