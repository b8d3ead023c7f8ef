package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/signflow/internal/envelope/http/dto"
	"github.com/allisson/signflow/internal/envelope/usecase"
	"github.com/allisson/signflow/internal/httputil"
)

// SigningHandler handles token-authenticated signer HTTP requests. The token
// in the URL is the sole credential; no account identity is involved.
type SigningHandler struct {
	signingUseCase usecase.SigningUseCase
	logger         *slog.Logger
}

// NewSigningHandler creates a new SigningHandler.
func NewSigningHandler(signingUseCase usecase.SigningUseCase, logger *slog.Logger) *SigningHandler {
	return &SigningHandler{
		signingUseCase: signingUseCase,
		logger:         logger,
	}
}

// token extracts the signing token from the URL parameter. Writes a 422
// response and returns false when it is empty.
func (h *SigningHandler) token(c *gin.Context) (string, bool) {
	token := c.Param("token")
	if token == "" {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("token cannot be empty"), h.logger)
		return "", false
	}
	return token, true
}

// ViewHandler resolves a signing token and returns the signer's working set.
// First views are recorded.
// GET /v1/sign/:token
// Returns 200 OK with the envelope, signer and assigned fields.
func (h *SigningHandler) ViewHandler(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}

	view, err := h.signingUseCase.ViewByToken(c.Request.Context(), token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSignerViewToResponse(view))
}

// OpenHandler records that a notification link was opened.
// POST /v1/sign/:token/open
// Returns 204 No Content.
func (h *SigningHandler) OpenHandler(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}

	if err := h.signingUseCase.OpenNotification(c.Request.Context(), token, c.ClientIP(), c.Request.UserAgent()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// StartHandler begins a signing session, triggering SMS verification when the
// signer has it enabled.
// POST /v1/sign/:token/start
// Returns 200 OK reporting whether a verification code is required.
func (h *SigningHandler) StartHandler(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}

	result, err := h.signingUseCase.StartSigning(c.Request.Context(), token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.StartSigningResponse{TwoFARequired: result.TwoFARequired})
}

// CompleteHandler records field values and the signature, finalizing the
// envelope when this was the last outstanding signer.
// POST /v1/sign/:token/complete
// Returns 200 OK with the signature proof.
func (h *SigningHandler) CompleteHandler(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}

	var req dto.CompleteSigningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	input, err := dto.ToCompleteSigningInput(token, req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	result, err := h.signingUseCase.CompleteSigning(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CompleteSigningResponse{
		SignatureProof: result.SignatureProof,
		AllCompleted:   result.AllCompleted,
	})
}

// DeclineHandler records the signer's refusal and declines the envelope.
// POST /v1/sign/:token/decline
// Returns 204 No Content.
func (h *SigningHandler) DeclineHandler(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}

	// The reason is optional and so is the body itself.
	var req dto.DeclineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
	}

	err := h.signingUseCase.Decline(c.Request.Context(), usecase.DeclineInput{
		Token:     token,
		Reason:    req.Reason,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
