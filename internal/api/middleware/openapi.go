// openapi.go — проверка запросов /api/ по контракту OpenAPI (kin-openapi).
// Схемы тел, обязательные поля, перечисления и типы параметров
// проверяются до вызова handler; ошибки отдаются как VALIDATION_ERROR.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/woo-publications/internal/api/errors"
)

// MaxValidatedBody — предел размера JSON-тела, которое читает валидатор.
const MaxValidatedBody = 1 << 20

// OpenAPIValidator создаёт middleware проверки запросов по документу doc.
// Проверяются только пути с префиксом /api/; запросы без маршрута в
// документе передаются дальше (chi ответит 404/405). Тела
// application/octet-stream не читаются: части файла идут в хранилище потоком.
func OpenAPIValidator(doc *openapi3.T) (func(http.Handler) http.Handler, error) {
	// Маршрут ищется по пути запроса без учёта servers.
	doc.Servers = nil
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("маршрутизатор OpenAPI: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			streamed := isStreamedBody(route.Operation)
			if !streamed && r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, MaxValidatedBody)
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
					ExcludeRequestBody: streamed,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				apierrors.ValidationError(w, validationMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// isStreamedBody — тело операции принимается только как application/octet-stream.
func isStreamedBody(op *openapi3.Operation) bool {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return false
	}
	content := op.RequestBody.Value.Content
	return len(content) == 1 && content.Get("application/octet-stream") != nil
}

// validationMessage сокращает ошибку kin-openapi до места и причины,
// без дампа схемы и значения.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return "Запрос не соответствует контракту API: " + err.Error()
	}

	var where string
	switch {
	case reqErr.Parameter != nil:
		where = fmt.Sprintf("параметр %s", reqErr.Parameter.Name)
	case reqErr.RequestBody != nil:
		where = "тело запроса"
	default:
		where = "запрос"
	}

	reason := reqErr.Reason
	var schemaErr *openapi3.SchemaError
	switch {
	case errors.As(reqErr.Err, &schemaErr):
		reason = schemaErr.Reason
		if p := schemaErr.JSONPointer(); len(p) > 0 {
			where += " /" + strings.Join(p, "/")
		}
	case reqErr.Err != nil:
		reason = reqErr.Err.Error()
	}
	if reason == "" {
		reason = "некорректное значение"
	}
	return fmt.Sprintf("Некорректный запрос: %s: %s", where, reason)
}
