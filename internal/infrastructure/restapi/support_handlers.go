package restapi

import (
	"errors"
	"math/big"
	"net/http"

	"conviction_voting/internal/app/port"
	"conviction_voting/internal/app/service"
	"conviction_voting/internal/domain/staking"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Error string `json:"error"`
}

// SupportRequest is the body of a stake submission.
type SupportRequest struct {
	Account string `json:"account" binding:"required"`
	Amount  string `json:"amount"`
}

// SupportHandler serves the "support this proposal" form.
type SupportHandler struct {
	supportService port.SupportService
	logger         port.Logger
}

// NewSupportHandler создает новый SupportHandler.
func NewSupportHandler(ss port.SupportService, l port.Logger) *SupportHandler {
	return &SupportHandler{
		supportService: ss,
		logger:         l,
	}
}

func accountParam(c *gin.Context) (string, bool) {
	account := c.Param("account")
	if !common.IsHexAddress(account) {
		c.JSON(http.StatusBadRequest, APIError{Error: "invalid account address"})
		return "", false
	}
	return account, true
}

// GetSupportPreviewHandler returns the form state for ?amount=.
func (h *SupportHandler) GetSupportPreviewHandler(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}

	form, err := h.supportService.Preview(c.Request.Context(), account, c.Query("amount"))
	if err != nil {
		h.logger.Error("Failed to preview support", "account", account, "error", err)
		c.JSON(http.StatusBadGateway, APIError{Error: "failed to read balances"})
		return
	}
	c.JSON(http.StatusOK, form)
}

// GetSupportMaxHandler returns the form state after selecting the maximum.
func (h *SupportHandler) GetSupportMaxHandler(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}

	form, err := h.supportService.Max(c.Request.Context(), account)
	if err != nil {
		h.logger.Error("Failed to compute max support", "account", account, "error", err)
		c.JSON(http.StatusBadGateway, APIError{Error: "failed to read balances"})
		return
	}
	c.JSON(http.StatusOK, form)
}

// PostSupportHandler проверяет сумму и возвращает неподписанный вызов stakeToProposal.
func (h *SupportHandler) PostSupportHandler(c *gin.Context) {
	proposalID, ok := new(big.Int).SetString(c.Param("proposalId"), 10)
	if !ok || proposalID.Sign() < 0 {
		c.JSON(http.StatusBadRequest, APIError{Error: "invalid proposal id"})
		return
	}

	var req SupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Error: "invalid request body"})
		return
	}
	if !common.IsHexAddress(req.Account) {
		c.JSON(http.StatusBadRequest, APIError{Error: "invalid account address"})
		return
	}

	call, err := h.supportService.Submit(c.Request.Context(), req.Account, proposalID, req.Amount)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, call)
	case errors.Is(err, staking.ErrInvalidAmount), errors.Is(err, staking.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, APIError{Error: staking.ErrorMessage(err)})
	case errors.Is(err, service.ErrNothingToStake):
		c.JSON(http.StatusUnprocessableEntity, APIError{Error: "Nothing to stake"})
	default:
		h.logger.Error("Failed to submit support", "account", req.Account, "proposal_id", proposalID.String(), "error", err)
		c.JSON(http.StatusBadGateway, APIError{Error: "failed to prepare stake"})
	}
}
