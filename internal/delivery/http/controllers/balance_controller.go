package controllers

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"vaquita/internal/delivery/http/helpers"
	"vaquita/internal/delivery/http/middleware"
	"vaquita/internal/domain"
)

// BalanceView is a balance plus who owes whom. Deudor and Acreedor are empty
// when the pair is settled.
type BalanceView struct {
	*domain.Balance
	Deudor   string          `json:"deudor,omitempty"`
	Acreedor string          `json:"acreedor,omitempty"`
	Deuda    decimal.Decimal `json:"deuda"`
}

func newBalanceView(b *domain.Balance) BalanceView {
	debtor, creditor, amount := b.Debt()
	return BalanceView{Balance: b, Deudor: debtor, Acreedor: creditor, Deuda: amount}
}

// ListBalancesSuccessResponse is the 200 envelope of GET /balances.
type ListBalancesSuccessResponse struct {
	Data  helpers.Page[BalanceView] `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

type BalanceController struct {
	Logger  *slog.Logger
	Service domain.BalanceService
}

func NewBalanceController(logger *slog.Logger, svc domain.BalanceService) *BalanceController {
	return &BalanceController{
		Logger:  logger,
		Service: svc,
	}
}

// ListBalances godoc
// @Summary List the caller's balances
// @Description Returns every balance the caller is part of, most recently updated first.
// @Tags balances
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListBalancesSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthenticated"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /balances [get]
func (c *BalanceController) ListBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthenticated, "unauthenticated")
		return
	}
	params := helpers.ParsePagination(r)
	balances, total, err := c.Service.ListForUser(r.Context(), userID, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	items := make([]BalanceView, 0, len(balances))
	for _, b := range balances {
		items = append(items, newBalanceView(b))
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.Page[BalanceView]{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}
