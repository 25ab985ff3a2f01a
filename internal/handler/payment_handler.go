package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sia-enrollment-engine/internal/middleware"
	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/internal/service"
	"github.com/noah-isme/sia-enrollment-engine/pkg/response"
)

type paymentService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Payment, error)
	SubmitProof(ctx context.Context, id string, req service.SubmitProofRequest, actor *models.JWTClaims) (*models.Payment, error)
	Approve(ctx context.Context, id string, req service.ApprovePaymentRequest, actor *models.JWTClaims) (*models.Payment, error)
	Reject(ctx context.Context, id string, req service.RejectPaymentRequest, actor *models.JWTClaims) (*models.Payment, error)
}

// PaymentHandler exposes the payment approval workflow.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	h.respond(c)(h.payments.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c)))
}

// SubmitProof godoc
// @Summary Submit payment proof
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.SubmitProofRequest true "Proof"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/proof [post]
func (h *PaymentHandler) SubmitProof(c *gin.Context) {
	var req service.SubmitProofRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.payments.SubmitProof(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

// Approve godoc
// @Summary Approve payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.ApprovePaymentRequest true "Amount received"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/approve [post]
func (h *PaymentHandler) Approve(c *gin.Context) {
	var req service.ApprovePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.payments.Approve(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

// Reject godoc
// @Summary Reject payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.RejectPaymentRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/reject [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	var req service.RejectPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.payments.Reject(c.Request.Context(), c.Param("id"), req, middleware.CurrentUser(c)))
}

func (h *PaymentHandler) respond(c *gin.Context) func(*models.Payment, error) {
	return func(payment *models.Payment, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, payment)
	}
}
