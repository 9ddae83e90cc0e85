package handlers

import (
	"encoding/json"
	"errors"

	domainErrors "redeem/internal/errors"
	"redeem/internal/models"
	"redeem/internal/services/redemption"
	"redeem/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type RedemptionHandler struct {
	redemptionService redemption.Service
}

func NewRedemptionHandler(svc redemption.Service) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: svc,
	}
}

// verifyPayload is the structured request body. Scanners may also post a
// bare JSON string holding the code.
type verifyPayload struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// Verify classifies a redemption code for the calling merchant.
// The already-used case is an informational success, not a failure: it
// returns HTTP 200 with a structured error_code and the original
// consumed snapshot.
func (h *RedemptionHandler) Verify(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	code, err := extractCode(c.Body())
	if err != nil {
		return response.DomainError(c, fiber.StatusBadRequest,
			domainErrors.ErrInvalidCode.Code, "Invalid request format")
	}

	result, err := h.redemptionService.Verify(c.Context(), claims.MerchantID, code)
	if err != nil {
		return domainErrorResponse(c, err)
	}

	if result.AlreadyUsed {
		return c.JSON(fiber.Map{
			"error":      domainErrors.ErrAlreadyUsed.Message,
			"error_code": domainErrors.ErrAlreadyUsed.Code,
			"record":     result.Snapshot,
		})
	}

	return c.JSON(fiber.Map{
		"record": result.Snapshot,
	})
}

// Approve fulfils a verified redemption. Retrying after fulfilment yields
// ALREADY_FULFILLED with no second side effect.
func (h *RedemptionHandler) Approve(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	code, err := extractCode(c.Body())
	if err != nil {
		return response.DomainError(c, fiber.StatusBadRequest,
			domainErrors.ErrInvalidCode.Code, "Invalid request format")
	}

	snapshot, err := h.redemptionService.Approve(c.Context(), claims.MerchantID, claims.UserID, code)
	if err != nil {
		return domainErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"record": snapshot,
	})
}

// extractCode accepts {"type":"redemption","code":...}, {"code":...} or a
// bare JSON string.
func extractCode(body []byte) (string, error) {
	var payload verifyPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Code != "" {
		return payload.Code, nil
	}

	var bare string
	if err := json.Unmarshal(body, &bare); err == nil && bare != "" {
		return bare, nil
	}

	return "", errors.New("no code in request body")
}

func domainErrorResponse(c *fiber.Ctx, err error) error {
	var derr *domainErrors.DomainError
	if !errors.As(err, &derr) {
		return response.ServerError(c, "verification failed")
	}

	status := fiber.StatusBadRequest
	switch derr.Code {
	case domainErrors.ErrUnknownCode.Code:
		status = fiber.StatusNotFound
	case domainErrors.ErrForeignMerchant.Code:
		status = fiber.StatusForbidden
	case domainErrors.ErrAlreadyFulfilled.Code, domainErrors.ErrNotVerifiable.Code:
		status = fiber.StatusConflict
	}
	return response.DomainError(c, status, derr.Code, derr.Message)
}
