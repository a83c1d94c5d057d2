// Package dto provides data transfer objects for checkout HTTP request and
// response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
	customValidation "github.com/ckckckcz/pulseprotect-sub000/internal/validation"
)

// CheckoutRequest contains the parameters for starting a checkout attempt.
type CheckoutRequest struct {
	PackageID   string          `json:"package_id" binding:"required"`
	PackageName string          `json:"package_name" binding:"required"`
	Period      string          `json:"period" binding:"required"`
	Amount      int64           `json:"amount" binding:"required"`
	Customer    CustomerRequest `json:"customer" binding:"required"`
}

// CustomerRequest carries the customer contact details for the payment.
type CustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// Validate checks if the checkout request is valid.
func (r *CheckoutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PackageID,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.PackageName,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.Period,
			validation.Required,
			validation.In("monthly", "yearly"),
		),
		validation.Field(&r.Amount,
			validation.Required,
			customValidation.PositiveAmount,
		),
		validation.Field(&r.Customer),
	)
}

// Validate checks if the customer details are valid.
func (r CustomerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.Email,
			validation.Required,
			customValidation.Email,
		),
		validation.Field(&r.Phone,
			customValidation.PhoneNumber,
		),
	)
}

// MapCheckoutRequestToInput converts the request to the domain checkout input.
func MapCheckoutRequestToInput(r *CheckoutRequest) *domain.CheckoutInput {
	return &domain.CheckoutInput{
		PackageID:   r.PackageID,
		PackageName: r.PackageName,
		Period:      r.Period,
		Amount:      r.Amount,
		Customer: domain.Customer{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
		},
	}
}

// NotificationRequest is the payment gateway webhook payload. Only the order
// identifier and the transaction status are interpreted; the rest of the
// payload is passed through to the outcome callbacks untouched.
type NotificationRequest struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

// Validate checks if the notification carries the fields needed for routing.
func (r *NotificationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OrderID, validation.Required),
		validation.Field(&r.TransactionStatus, validation.Required),
	)
}
