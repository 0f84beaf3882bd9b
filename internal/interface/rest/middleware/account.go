package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"flightsurety-service/internal/domain/entity"
)

// AccountHeader carries the caller identity established by the authentication layer.
const AccountHeader = "X-Account"

type callerCtxKey struct{}

var tracer = otel.Tracer("account")

// IdentifyAccount places a well-formed X-Account caller in the request
// context. Requests without one continue anonymously.
func IdentifyAccount(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Account.Middleware.IdentifyAccount")
		defer span.End()

		header := strings.TrimSpace(c.Request().Header.Get(AccountHeader))
		if header != "" {
			account, err := entity.ParseAccount(header)
			if err != nil {
				span.RecordError(err)
			} else {
				ctx = context.WithValue(ctx, callerCtxKey{}, account)
				span.SetAttributes(attribute.String("Caller", account.Hex()))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// Caller returns the identified caller, if any.
func Caller(ctx context.Context) (entity.Account, bool) {
	account, ok := ctx.Value(callerCtxKey{}).(entity.Account)
	return account, ok
}
