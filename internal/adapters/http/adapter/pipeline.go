package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
	"github.com/Haleralex/edgeapi/internal/pkg/logger"
)

// ============================================
// Stages
// ============================================

// Stage - состояние запроса в конвейере.
type Stage int

const (
	StageReceived Stage = iota
	StageMethodValidated
	StageBodyParsed
	StageQueryNormalized
	StageHandlerInvoked
	StageResponseValidated
	StageSent
)

var stageNames = [...]string{
	"received",
	"method_validated",
	"body_parsed",
	"query_normalized",
	"handler_invoked",
	"response_validated",
	"sent",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// RequestIDHeader - заголовок для Request ID (в нижнем регистре, как все
// заголовки после нормализации).
const RequestIDHeader = "x-request-id"

const tracerName = "github.com/Haleralex/edgeapi/internal/adapters/http/adapter"

// ============================================
// Adapter
// ============================================

// Handler - обёрнутый набор routes, готовый к вызову транспортом.
type Handler func(ctx context.Context, in Inbound) *common.Response

// Adapter - конвейер обработки запроса. Без изменяемого состояния,
// безопасен для конкурентного использования.
type Adapter struct {
	cfg    Config
	cors   corsPolicy
	logger *slog.Logger
	tracer trace.Tracer
}

// New создаёт Adapter. Tracer берётся из глобального TracerProvider.
func New(cfg Config, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		cfg:    cfg,
		cors:   newCORSPolicy(cfg.CORS),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Config возвращает копию конфигурации.
func (a *Adapter) Config() Config { return a.cfg }

// Wrap связывает routes ресурса с конвейером. route - метка для логов,
// метрик и span (например, "projects.item").
func (a *Adapter) Wrap(route string, routes common.Routes) Handler {
	frozen := make(common.Routes, len(routes))
	for m, h := range routes {
		frozen[m] = h
	}
	return func(ctx context.Context, in Inbound) *common.Response {
		return a.Handle(ctx, route, frozen, in)
	}
}

// run - состояние одного прохода конвейера.
type run struct {
	route  string
	method string
	stage  Stage
	cors   map[string]string
	base   map[string]string
	err    error
}

// Handle проводит запрос через все стадии. Всегда возвращает ответ.
func (a *Adapter) Handle(ctx context.Context, route string, routes common.Routes, in Inbound) (resp *common.Response) {
	start := time.Now()
	requestsInFlight.Inc()
	defer requestsInFlight.Dec()

	headers := NormalizeHeaders(in.Headers)
	requestID := headers[RequestIDHeader]
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = logger.WithRequestID(ctx, requestID)

	ctx, span := a.tracer.Start(ctx, route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", in.Method),
			attribute.String("url.path", in.Path),
			attribute.String("edgeapi.route", route),
		),
	)
	defer span.End()

	cors := a.cors.headers(headers["origin"])
	r := &run{
		route:  route,
		method: strings.ToUpper(in.Method),
		stage:  StageReceived,
		cors:   cors,
		base:   mergeHeaders(cors, map[string]string{RequestIDHeader: requestID}),
	}

	defer func() {
		if rec := recover(); rec != nil {
			// Конвейер сам не должен паниковать; это последний рубеж.
			r.err = &PanicError{Value: rec}
			resp = errorResponse(http.StatusInternalServerError, common.ErrorEnvelope{
				Error:   "Internal server error",
				Details: errorMessage(rec),
			}, r.base)
		}
		a.finish(ctx, span, r, in, resp, time.Since(start))
	}()

	return a.process(ctx, r, routes, headers, in)
}

func (a *Adapter) process(ctx context.Context, r *run, routes common.Routes, headers map[string]string, in Inbound) *common.Response {
	// Received -> MethodValidated
	method, ok := common.ParseMethod(in.Method)
	if ok && method == common.MethodOptions {
		r.stage = StageMethodValidated
		return &common.Response{StatusCode: http.StatusNoContent, Headers: mergeHeaders(r.cors)}
	}
	handler := routes[method]
	if !ok || handler == nil {
		base := mergeHeaders(r.base, map[string]string{"allow": allowHeader(routes)})
		return errorResponse(http.StatusMethodNotAllowed, common.ErrorEnvelope{Error: "Method not allowed"}, base)
	}
	r.stage = StageMethodValidated

	// MethodValidated -> BodyParsed
	body, bodyErr := ParseBody(method, in.Body, headers, in.ContentLength, a.cfg)
	if bodyErr != nil {
		r.err = bodyErr
		return errorResponse(bodyErr.Status(), common.ErrorEnvelope{Error: bodyErr.Message, Details: bodyErr.Details}, r.base)
	}
	if len(body.Raw) > 0 {
		requestBodyBytes.WithLabelValues(r.route).Observe(float64(len(body.Raw)))
	}
	r.stage = StageBodyParsed

	// BodyParsed -> QueryNormalized
	query := NormalizeQuery(in.Query, a.cfg.MultiValueQueryParams)
	r.stage = StageQueryNormalized

	req := common.NewRequest(common.RequestParts{
		Method:     method,
		Path:       in.Path,
		RawBody:    body.Raw,
		Body:       body.Value,
		Query:      query,
		Headers:    headers,
		PathParams: in.PathParams,
		RequestID:  logger.GetRequestID(ctx),
		Raw:        in.Raw,
	})

	// QueryNormalized -> HandlerInvoked
	result, err := a.invoke(ctx, r.route, handler, req)
	r.stage = StageHandlerInvoked
	if err != nil {
		r.err = err
		result = a.resultFromError(ctx, err)
	}

	// HandlerInvoked -> ResponseValidated
	resp, err := BuildResponse(result, r.base)
	if err != nil {
		r.err = err
		var statusErr *InvalidStatusError
		if errors.As(err, &statusErr) {
			a.logger.LogAttrs(ctx, slog.LevelWarn, "Handler returned invalid status code",
				slog.String("route", r.route),
				slog.Int("status", statusErr.Status),
			)
			return errorResponse(http.StatusInternalServerError, common.ErrorEnvelope{
				Error:   "Internal server error",
				Details: err.Error(),
			}, r.base)
		}
		return errorResponse(http.StatusInternalServerError, common.ErrorEnvelope{
			Error:   "InvalidResponse",
			Details: err.Error(),
		}, r.base)
	}
	r.stage = StageResponseValidated

	return resp
}

// PanicError - паника handler, превращённая в ошибку.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return "panic: " + errorMessage(e.Value)
}

// invoke вызывает handler и перехватывает его панику.
func (a *Adapter) invoke(ctx context.Context, route string, h common.HandlerFunc, req *common.Request) (res common.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			handlerPanicsTotal.WithLabelValues(route).Inc()
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return h(ctx, req)
}

// resultFromError выбирает статус для ошибки, которую handler не обработал сам.
func (a *Adapter) resultFromError(ctx context.Context, err error) common.Result {
	var (
		bodyErr   *BodyError
		valErrs   domainerrors.ValidationErrors
		valErr    domainerrors.ValidationError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &bodyErr):
		return common.FailWithDetails(bodyErr.Status(), bodyErr.Message, bodyErr.Details)
	case domainerrors.IsNotFound(err):
		return common.Fail(http.StatusNotFound, "Resource not found")
	case errors.As(err, &valErrs) && len(valErrs) > 0:
		return common.Fail(http.StatusUnprocessableEntity, valErrs[0].Message)
	case errors.As(err, &valErr):
		return common.Fail(http.StatusUnprocessableEntity, valErr.Message)
	case errors.Is(err, common.ErrEmptyBody):
		return common.Fail(http.StatusBadRequest, "Request body is required")
	case errors.Is(err, domainerrors.ErrEmptyPatch):
		return common.Fail(http.StatusBadRequest, domainerrors.ErrEmptyPatch.Error())
	case errors.Is(err, domainerrors.ErrInvalidEntityID):
		return common.Fail(http.StatusBadRequest, "Invalid id")
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return common.FailWithDetails(http.StatusBadRequest, "Invalid request body", err.Error())
	}

	serialized := a.serializeForLog(err)
	attrs := []slog.Attr{
		slog.String("error_name", serialized.Name),
		slog.String("error", serialized.Message),
	}
	if serialized.Meta != nil {
		attrs = append(attrs, slog.Any("error_meta", serialized.Meta))
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) && len(panicErr.Stack) > 0 {
		attrs = append(attrs, slog.String("stack", string(panicErr.Stack)))
	}
	a.logger.LogAttrs(ctx, slog.LevelError, "Handler failed", attrs...)

	return common.FailWithDetails(http.StatusInternalServerError, "Internal server error", serialized.Message)
}

func (a *Adapter) serializeForLog(err error) SerializedError {
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return SerializeError(panicErr.Value)
	}
	return SerializeError(err)
}

// finish пишет лог, метрики и закрывает span. Переводит запрос в Sent.
func (a *Adapter) finish(ctx context.Context, span trace.Span, r *run, in Inbound, resp *common.Response, elapsed time.Duration) {
	last := r.stage
	r.stage = StageSent

	status := http.StatusInternalServerError
	if resp != nil {
		status = resp.StatusCode
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.String("edgeapi.stage", last.String()),
	)
	if status >= http.StatusInternalServerError {
		msg := http.StatusText(status)
		if r.err != nil {
			msg = r.err.Error()
			span.RecordError(r.err)
		}
		span.SetStatus(codes.Error, msg)
	}

	observeRequest(r.route, r.method, strconv.Itoa(status), last, elapsed)

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	} else if status >= http.StatusBadRequest {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("route", r.route),
		slog.String("method", in.Method),
		slog.String("path", in.Path),
		slog.Int("status", status),
		slog.String("stage", last.String()),
		slog.Duration("duration", elapsed),
	}
	if r.err != nil && level != slog.LevelInfo {
		attrs = append(attrs, slog.String("error", r.err.Error()))
	}
	a.logger.LogAttrs(ctx, level, "Request handled", attrs...)
}

func allowHeader(routes common.Routes) string {
	methods := make([]string, 0, len(routes)+1)
	for m := range routes {
		methods = append(methods, string(m))
	}
	if !slices.Contains(methods, string(common.MethodOptions)) {
		methods = append(methods, string(common.MethodOptions))
	}
	slices.Sort(methods)
	return strings.Join(methods, ", ")
}
