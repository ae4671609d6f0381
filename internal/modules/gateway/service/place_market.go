package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/belgrano9/discord-bot-sub000/internal/models"

	"github.com/bytedance/sonic"
)

// SubmitMarketOrder исполняет маркет-заявку на изолированной марже.
// Любой отказ (валидация, транспорт, реджект биржи) приходит как
// Success=false + сообщение — наверх ошибки не кидаем.
func (c *Client) SubmitMarketOrder(ctx context.Context, req models.OrderRequest) *models.OrderResult {
	if req.Kind == "" {
		req.Kind = models.OrderMarket
	}
	if req.Kind != models.OrderMarket {
		return models.Rejected("SubmitMarketOrder: unsupported kind %s", req.Kind)
	}
	if err := req.Validate(); err != nil {
		return models.Rejected("invalid order: %v", err)
	}

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(req.Symbol))
	params.Set("side", string(req.Side))
	params.Set("type", "MARKET")
	if req.UseFunds {
		// amount трактуем как сумму в квотируемой валюте
		params.Set("quoteOrderQty", formatAmount(req.Amount))
	} else {
		params.Set("quantity", formatAmount(req.Amount))
	}
	params.Set("isIsolated", isolatedFlag(req.IsIsolated))
	if req.SideEffect != "" {
		params.Set("sideEffectType", strings.ToUpper(req.SideEffect))
	}

	rb, status, err := c.postSigned(ctx, "/sapi/v1/margin/order", params)
	if err != nil {
		return models.Rejected("binance request failed: %v", err)
	}
	if status/100 != 2 {
		return rejectedFromAPI(rb, status)
	}

	var resp marginOrderResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return models.Rejected("decode margin order response: %v", err)
	}
	if resp.OrderID == 0 {
		return rejectedFromAPI(rb, status)
	}

	executedQty, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	quoteQty, _ := strconv.ParseFloat(resp.CummulativeQuoteQty, 64)

	res := &models.OrderResult{
		Success: true,
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Raw:     rb,
	}
	if len(resp.Fills) > 0 && executedQty > 0 {
		res.FilledQty = executedQty
		res.AvgFillPrice = quoteQty / executedQty
	}
	return res
}

func rejectedFromAPI(rb []byte, status int) *models.OrderResult {
	var apiErr apiError
	if err := sonic.Unmarshal(rb, &apiErr); err == nil && apiErr.Msg != "" {
		return &models.OrderResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("binance reject: code=%d msg=%s", apiErr.Code, apiErr.Msg),
			Raw:          rb,
		}
	}
	return &models.OrderResult{
		Success:      false,
		ErrorMessage: fmt.Sprintf("binance http %d: %s", status, string(rb)),
		Raw:          rb,
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isolatedFlag(isolated bool) string {
	if isolated {
		return "TRUE"
	}
	return "FALSE"
}
