package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"straddlebot/internal/domain"
	apperrors "straddlebot/pkg/errors"
)

const recvWindow = "5000"

// Exchange is the narrow capability set the strategy needs from Bybit.
// GetOpenPosition returns nil when no position is open; GetLastRealizedPnl
// returns nil when the symbol has no closed-PnL history.
type Exchange interface {
	GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetInstrumentFilters(ctx context.Context, symbol string) (*domain.InstrumentFilters, error)
	PlaceLimitOrderWithStopLoss(ctx context.Context, req LimitOrderRequest) (string, error)
	PlaceReduceOnlyLimitOrder(ctx context.Context, req ReduceOnlyOrderRequest) (string, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error)
	GetOpenPosition(ctx context.Context, symbol string) (*domain.Position, error)
	GetLastRealizedPnl(ctx context.Context, symbol string) (*domain.RealizedPnl, error)
}

type LimitOrderRequest struct {
	Symbol   string
	Side     domain.OrderSide
	Qty      string
	Price    string
	StopLoss string
}

type ReduceOnlyOrderRequest struct {
	Symbol string
	Side   domain.OrderSide
	Qty    string
	Price  string
}

type Client struct {
	apiKey     string
	secretKey  string
	testnet    bool
	httpClient *http.Client
}

var _ Exchange = (*Client)(nil)

func NewExchangeClient(apiKey, secretKey string, testnet bool) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		testnet:    testnet,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) getBaseURL() string {
	if c.testnet {
		return "https://api-testnet.bybit.com"
	}
	return "https://api.bybit.com"
}

type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type placeOrderRequest struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	ReduceOnly  bool   `json:"reduceOnly,omitempty"`
	StopLoss    string `json:"stopLoss,omitempty"`
	SlOrderType string `json:"slOrderType,omitempty"`
	SlTriggerBy string `json:"slTriggerBy,omitempty"`
	TpslMode    string `json:"tpslMode,omitempty"`
}

type cancelOrderRequest struct {
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
	OrderID  string `json:"orderId"`
}

type symbolQuery struct {
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
	Limit    int    `json:"limit,omitempty"`
}

type orderIDResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

func (c *Client) GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("category", domain.CategoryLinear)
	params.Set("symbol", symbol)

	result, err := c.makePublicRequest(ctx, "/v5/market/tickers", params)
	if err != nil {
		return decimal.Zero, err
	}

	var tickers struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &tickers); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode tickers response: %w", err)
	}
	if len(tickers.List) == 0 {
		return decimal.Zero, apperrors.NotFoundError("ticker", symbol)
	}

	price, err := decimal.NewFromString(tickers.List[0].LastPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid last price %q: %w", tickers.List[0].LastPrice, err)
	}
	return price, nil
}

func (c *Client) GetInstrumentFilters(ctx context.Context, symbol string) (*domain.InstrumentFilters, error) {
	params := url.Values{}
	params.Set("category", domain.CategoryLinear)
	params.Set("symbol", symbol)

	result, err := c.makePublicRequest(ctx, "/v5/market/instruments-info", params)
	if err != nil {
		return nil, err
	}

	var instruments struct {
		List []struct {
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				QtyStep string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &instruments); err != nil {
		return nil, fmt.Errorf("failed to decode instruments response: %w", err)
	}
	if len(instruments.List) == 0 {
		return nil, apperrors.NotFoundError("instrument", symbol)
	}

	tickSize, err := decimal.NewFromString(instruments.List[0].PriceFilter.TickSize)
	if err != nil {
		return nil, fmt.Errorf("invalid tick size: %w", err)
	}
	qtyStep, err := decimal.NewFromString(instruments.List[0].LotSizeFilter.QtyStep)
	if err != nil {
		return nil, fmt.Errorf("invalid qty step: %w", err)
	}

	return &domain.InstrumentFilters{
		Symbol:   symbol,
		TickSize: tickSize,
		QtyStep:  qtyStep,
	}, nil
}

func (c *Client) PlaceLimitOrderWithStopLoss(ctx context.Context, req LimitOrderRequest) (string, error) {
	payload := placeOrderRequest{
		Category:    domain.CategoryLinear,
		Symbol:      req.Symbol,
		Side:        string(req.Side),
		OrderType:   string(domain.OrderTypeLimit),
		Qty:         req.Qty,
		Price:       req.Price,
		TimeInForce: domain.DefaultTimeInForce,
		StopLoss:    req.StopLoss,
		SlOrderType: domain.StopLossOrderType,
		SlTriggerBy: domain.StopLossTriggerBy,
		TpslMode:    domain.TpSlModeFull,
	}
	return c.createOrder(ctx, payload)
}

func (c *Client) PlaceReduceOnlyLimitOrder(ctx context.Context, req ReduceOnlyOrderRequest) (string, error) {
	payload := placeOrderRequest{
		Category:    domain.CategoryLinear,
		Symbol:      req.Symbol,
		Side:        string(req.Side),
		OrderType:   string(domain.OrderTypeLimit),
		Qty:         req.Qty,
		Price:       req.Price,
		TimeInForce: domain.DefaultTimeInForce,
		ReduceOnly:  true,
	}
	return c.createOrder(ctx, payload)
}

func (c *Client) createOrder(ctx context.Context, payload placeOrderRequest) (string, error) {
	result, err := c.makeAuthenticatedRequest(ctx, "POST", "/v5/order/create", payload)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	var created orderIDResult
	if err := json.Unmarshal(result, &created); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	if created.OrderID == "" {
		return "", apperrors.ExternalError("bybit", "order created without an order ID")
	}
	return created.OrderID, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	payload := cancelOrderRequest{
		Category: domain.CategoryLinear,
		Symbol:   symbol,
		OrderID:  orderID,
	}

	if _, err := c.makeAuthenticatedRequest(ctx, "POST", "/v5/order/cancel", payload); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	return nil
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	query := symbolQuery{Category: domain.CategoryLinear, Symbol: symbol}

	result, err := c.makeAuthenticatedRequest(ctx, "GET", "/v5/order/realtime", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open orders: %w", err)
	}

	var orders struct {
		List []struct {
			OrderID     string `json:"orderId"`
			Symbol      string `json:"symbol"`
			Side        string `json:"side"`
			OrderType   string `json:"orderType"`
			Price       string `json:"price"`
			Qty         string `json:"qty"`
			OrderStatus string `json:"orderStatus"`
			ReduceOnly  bool   `json:"reduceOnly"`
			CreatedTime string `json:"createdTime"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode open orders response: %w", err)
	}

	open := make([]domain.OpenOrder, 0, len(orders.List))
	for _, o := range orders.List {
		open = append(open, domain.OpenOrder{
			OrderID:     o.OrderID,
			Symbol:      o.Symbol,
			Side:        domain.OrderSide(o.Side),
			OrderType:   domain.OrderType(o.OrderType),
			Price:       o.Price,
			Qty:         o.Qty,
			Status:      o.OrderStatus,
			ReduceOnly:  o.ReduceOnly,
			CreatedTime: o.CreatedTime,
		})
	}
	return open, nil
}

func (c *Client) GetOpenPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	query := symbolQuery{Category: domain.CategoryLinear, Symbol: symbol}

	result, err := c.makeAuthenticatedRequest(ctx, "GET", "/v5/position/list", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}

	var positions struct {
		List []struct {
			Symbol   string `json:"symbol"`
			Side     string `json:"side"`
			Size     string `json:"size"`
			AvgPrice string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &positions); err != nil {
		return nil, fmt.Errorf("failed to decode position response: %w", err)
	}
	if len(positions.List) == 0 {
		return nil, nil
	}

	first := positions.List[0]
	size, err := decimal.NewFromString(first.Size)
	if err != nil {
		return nil, fmt.Errorf("invalid position size %q: %w", first.Size, err)
	}
	if size.IsZero() {
		return nil, nil
	}

	entry, err := decimal.NewFromString(first.AvgPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid entry price %q: %w", first.AvgPrice, err)
	}

	return &domain.Position{
		Symbol:     first.Symbol,
		Side:       domain.OrderSide(first.Side),
		Size:       size,
		EntryPrice: entry,
	}, nil
}

func (c *Client) GetLastRealizedPnl(ctx context.Context, symbol string) (*domain.RealizedPnl, error) {
	query := symbolQuery{Category: domain.CategoryLinear, Symbol: symbol, Limit: 1}

	result, err := c.makeAuthenticatedRequest(ctx, "GET", "/v5/position/closed-pnl", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch closed pnl: %w", err)
	}

	var closed struct {
		List []struct {
			Symbol    string `json:"symbol"`
			ClosedPnl string `json:"closedPnl"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &closed); err != nil {
		return nil, fmt.Errorf("failed to decode closed pnl response: %w", err)
	}
	if len(closed.List) == 0 {
		return nil, nil
	}

	pnl, err := decimal.NewFromString(closed.List[0].ClosedPnl)
	if err != nil {
		return nil, fmt.Errorf("invalid closed pnl %q: %w", closed.List[0].ClosedPnl, err)
	}

	return &domain.RealizedPnl{
		Symbol:    closed.List[0].Symbol,
		ClosedPnl: pnl,
	}, nil
}

func (c *Client) makePublicRequest(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	requestURL := c.getBaseURL() + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, endpoint)
}

func (c *Client) makeAuthenticatedRequest(ctx context.Context, method, endpoint string, payload interface{}) (json.RawMessage, error) {
	timestamp := time.Now().UnixMilli()

	var body io.Reader
	var queryString string

	if method == "GET" || method == "DELETE" {
		params, err := structToURLValues(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to convert payload to query params: %w", err)
		}
		queryString = params.Encode()
	} else {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
		queryString = string(jsonData)
	}

	signature := c.createSignature(strconv.FormatInt(timestamp, 10) + c.apiKey + recvWindow + queryString)

	var requestURL string
	if method == "GET" || method == "DELETE" {
		requestURL = c.getBaseURL() + endpoint + "?" + queryString
	} else {
		requestURL = c.getBaseURL() + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-SIGN", signature)
	req.Header.Set("X-BAPI-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)

	if method == "POST" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, endpoint)
}

func (c *Client) decodeResponse(resp *http.Response, endpoint string) (json.RawMessage, error) {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bybit API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.RetCode != 0 {
		return nil, apperrors.ExchangeError(endpoint, apiResp.RetCode, apiResp.RetMsg)
	}
	return apiResp.Result, nil
}

func (c *Client) createSignature(queryString string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(queryString))
	return hex.EncodeToString(h.Sum(nil))
}

func structToURLValues(v interface{}) (url.Values, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	values := url.Values{}
	for key, val := range m {
		if val != nil {
			switch v := val.(type) {
			case string:
				if v != "" {
					values.Set(key, v)
				}
			case float64:
				values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
			case bool:
				values.Set(key, strconv.FormatBool(v))
			default:
				values.Set(key, fmt.Sprintf("%v", v))
			}
		}
	}

	return values, nil
}
