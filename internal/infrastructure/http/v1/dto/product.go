package dto

import (
	"yiyostore/internal/core/types"
	"yiyostore/internal/domain/catalogs/product"
)

// --- Requests ---

type CreateProductRequest struct {
	Code        string      `json:"code,omitempty"`
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Price       types.Money `json:"price"`
}

func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Name, r.Price)
	p.Code = r.Code
	p.Description = r.Description
	if r.Category != "" {
		p.Category = product.Category(r.Category)
	}
	return p
}

type UpdateProductRequest struct {
	Name        *string      `json:"name,omitempty"`
	Description *string      `json:"description,omitempty"`
	Category    *string      `json:"category,omitempty"`
	Price       *types.Money `json:"price,omitempty"`
	Version     int          `json:"version" binding:"required,min=1"`
}

func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Category != nil {
		p.Category = product.Category(*r.Category)
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	p.SetVersion(r.Version)
}

// --- Responses ---

type ProductResponse struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Category     string      `json:"category"`
	Price        types.Money `json:"price"`
	DeletionMark bool        `json:"deletionMark"`
	Version      int         `json:"version"`
}

func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID.String(),
		Code:         p.Code,
		Name:         p.Name,
		Description:  p.Description,
		Category:     string(p.Category),
		Price:        p.Price,
		DeletionMark: p.DeletionMark,
		Version:      p.Version,
	}
}

func FromProducts(items []*product.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(items))
	for _, p := range items {
		out = append(out, FromProduct(p))
	}
	return out
}
