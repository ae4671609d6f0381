package service

// Сырые формы ответов Binance. За пределы пакета не выходят —
// ядро видит только models.OrderResult.

type apiError struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

type marginOrderResponse struct {
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Status              string `json:"status"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"` // так в API, с опечаткой
	Fills               []struct {
		Price      string `json:"price"`
		Qty        string `json:"qty"`
		Commission string `json:"commission"`
	} `json:"fills"`
}

type ocoOrderResponse struct {
	OrderListID    int64  `json:"orderListId"`
	ListStatusType string `json:"listStatusType"`
	Orders         []struct {
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
	} `json:"orders"`
}
