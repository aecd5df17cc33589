// Package lambdaadapter подключает adapter к AWS Lambda за API Gateway.
//
// Поддерживаются оба формата событий: REST API (payload v1) и HTTP API
// (payload v2). Ошибки никогда не уходят в runtime: всё, что случилось
// внутри, превращается в HTTP ответ, а error всегда nil.
package lambdaadapter

import (
	"context"
	"encoding/base64"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/Haleralex/edgeapi/internal/adapters/http/adapter"
	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
	"github.com/Haleralex/edgeapi/internal/pkg/logger"
)

// Handler обслуживает события API Gateway одним набором routes.
type Handler struct {
	handle adapter.Handler
}

// New создаёт Handler. route - метка для логов и метрик.
func New(a *adapter.Adapter, route string, routes common.Routes) *Handler {
	return &Handler{handle: a.Wrap(route, routes)}
}

// ============================================
// REST API (payload v1)
// ============================================

// ProxyV1 обрабатывает events.APIGatewayProxyRequest.
func (h *Handler) ProxyV1(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = withCorrelationID(ctx, req.RequestContext.RequestID)

	resp := h.handle(ctx, FromProxyV1(req))

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

// FromProxyV1 собирает adapter.Inbound из события v1.
// Multi-value поля приоритетнее одиночных.
func FromProxyV1(req events.APIGatewayProxyRequest) adapter.Inbound {
	headers := make(map[string][]string, len(req.Headers)+len(req.MultiValueHeaders))
	for k, v := range req.MultiValueHeaders {
		headers[k] = v
	}
	for k, v := range req.Headers {
		if _, ok := req.MultiValueHeaders[k]; !ok {
			headers[k] = []string{v}
		}
	}

	query := make(map[string][]string, len(req.QueryStringParameters)+len(req.MultiValueQueryStringParameters))
	for k, v := range req.MultiValueQueryStringParameters {
		query[k] = v
	}
	for k, v := range req.QueryStringParameters {
		if _, ok := req.MultiValueQueryStringParameters[k]; !ok {
			query[k] = []string{v}
		}
	}

	body, length := eventBody(req.Body, req.IsBase64Encoded)

	return adapter.Inbound{
		Method:        req.HTTPMethod,
		Path:          req.Path,
		Headers:       headers,
		Query:         query,
		PathParams:    req.PathParameters,
		Body:          body,
		ContentLength: length,
		Raw:           req,
	}
}

// ============================================
// HTTP API (payload v2)
// ============================================

// HTTPV2 обрабатывает events.APIGatewayV2HTTPRequest.
func (h *Handler) HTTPV2(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	ctx = withCorrelationID(ctx, req.RequestContext.RequestID)

	resp := h.handle(ctx, FromHTTPV2(req))

	return events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

// FromHTTPV2 собирает adapter.Inbound из события v2.
// В v2 повторяющиеся заголовки и параметры уже склеены через запятую,
// поэтому query берётся из RawQueryString: там %2C ещё не раскодирован.
func FromHTTPV2(req events.APIGatewayV2HTTPRequest) adapter.Inbound {
	headers := make(map[string][]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		headers[k] = []string{v}
	}
	if len(req.Cookies) > 0 {
		headers["cookie"] = []string{strings.Join(req.Cookies, "; ")}
	}

	query := httpV2Query(req)

	path := req.RawPath
	if path == "" {
		path = req.RequestContext.HTTP.Path
	}

	body, length := eventBody(req.Body, req.IsBase64Encoded)

	return adapter.Inbound{
		Method:        req.RequestContext.HTTP.Method,
		Path:          path,
		Headers:       headers,
		Query:         query,
		PathParams:    req.PathParameters,
		Body:          body,
		ContentLength: length,
		Raw:           req,
	}
}

// ============================================
// Helpers
// ============================================

// httpV2Query разбирает RawQueryString. Без него (или если он битый)
// остаётся QueryStringParameters, где запятая неотличима от %2C.
func httpV2Query(req events.APIGatewayV2HTTPRequest) map[string][]string {
	if req.RawQueryString != "" {
		if parsed, err := url.ParseQuery(req.RawQueryString); err == nil {
			return parsed
		}
	}

	query := make(map[string][]string, len(req.QueryStringParameters))
	for k, v := range req.QueryStringParameters {
		query[k] = strings.Split(v, ",")
	}
	return query
}

// eventBody возвращает тело события и его длину. Для битого base64
// возвращается reader с ошибкой: adapter ответит 400.
func eventBody(raw string, isBase64 bool) (io.Reader, int64) {
	if raw == "" {
		return nil, 0
	}
	if !isBase64 {
		return strings.NewReader(raw), int64(len(raw))
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return errReader{err: err}, -1
	}
	return strings.NewReader(string(decoded)), int64(len(decoded))
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// withCorrelationID кладёт в context ID вызова Lambda, а если его нет -
// ID запроса API Gateway.
func withCorrelationID(ctx context.Context, gatewayRequestID string) context.Context {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return logger.WithCorrelationID(ctx, lc.AwsRequestID)
	}
	if gatewayRequestID != "" {
		return logger.WithCorrelationID(ctx, gatewayRequestID)
	}
	return ctx
}
