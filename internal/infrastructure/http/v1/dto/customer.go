package dto

import (
	"yiyostore/internal/domain/catalogs/customer"
)

// --- Requests ---

type CreateCustomerRequest struct {
	Code  string `json:"code,omitempty"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Note  string `json:"note,omitempty"`
}

func (r *CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(r.Name)
	c.Code = r.Code
	c.Email = r.Email
	c.Phone = r.Phone
	c.Note = r.Note
	return c
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Note    *string `json:"note,omitempty"`
	Version int     `json:"version" binding:"required,min=1"`
}

func (r *UpdateCustomerRequest) ApplyTo(c *customer.Customer) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Email != nil {
		c.Email = *r.Email
	}
	if r.Phone != nil {
		c.Phone = *r.Phone
	}
	if r.Note != nil {
		c.Note = *r.Note
	}
	c.SetVersion(r.Version)
}

// --- Responses ---

type CustomerResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Note         string `json:"note,omitempty"`
	DeletionMark bool   `json:"deletionMark"`
	Version      int    `json:"version"`
}

func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:           c.ID.String(),
		Code:         c.Code,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		Note:         c.Note,
		DeletionMark: c.DeletionMark,
		Version:      c.Version,
	}
}

func FromCustomers(items []*customer.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(items))
	for _, c := range items {
		out = append(out, FromCustomer(c))
	}
	return out
}
