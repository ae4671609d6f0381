package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/models"

	"github.com/bytedance/sonic"
)

// SubmitOCOOrder ставит бракет-выход: лимитная TP-нога (Price) +
// стоповая SL-нога (StopPrice). Исполнение одной ноги снимает вторую.
func (c *Client) SubmitOCOOrder(ctx context.Context, req models.OrderRequest) *models.OrderResult {
	if req.Kind == "" {
		req.Kind = models.OrderOCO
	}
	if req.Kind != models.OrderOCO {
		return models.Rejected("SubmitOCOOrder: unsupported kind %s", req.Kind)
	}
	if err := req.Validate(); err != nil {
		return models.Rejected("invalid order: %v", err)
	}

	token := time.Now().UnixNano()

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(req.Symbol))
	params.Set("side", string(req.Side))
	params.Set("quantity", formatAmount(req.Amount))
	params.Set("price", formatAmount(req.Price))
	params.Set("stopPrice", formatAmount(req.StopPrice))
	params.Set("listClientOrderId", fmt.Sprintf("oco_%d", token))
	params.Set("limitClientOrderId", fmt.Sprintf("limit_%d", token))
	params.Set("stopClientOrderId", fmt.Sprintf("stop_%d", token))
	params.Set("isIsolated", isolatedFlag(req.IsIsolated))
	if req.SideEffect != "" {
		params.Set("sideEffectType", strings.ToUpper(req.SideEffect))
	}

	rb, status, err := c.postSigned(ctx, "/sapi/v1/margin/order/oco", params)
	if err != nil {
		return models.Rejected("binance request failed: %v", err)
	}
	if status/100 != 2 {
		return rejectedFromAPI(rb, status)
	}

	var resp ocoOrderResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return models.Rejected("decode oco response: %v", err)
	}
	if resp.OrderListID == 0 {
		return rejectedFromAPI(rb, status)
	}

	return &models.OrderResult{
		Success:   true,
		OrderID:   strconv.FormatInt(resp.OrderListID, 10),
		FilledQty: req.Amount,
		Raw:       rb,
	}
}
