package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	accountIDHeader = "X-Account-ID"
	accountIDLocal  = "account_id"
	maxAccountIDLen = 128
)

// Origin resolves the calling account from the X-Account-ID header. Callers
// are trusted: the header is taken as given once it is well formed. It is
// mandatory for mutations and optional for reads.
func Origin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := strings.TrimSpace(c.Get(accountIDHeader))
		if account == "" {
			switch c.Method() {
			case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
				return c.Next()
			}
			return fiber.NewError(http.StatusUnauthorized, "missing X-Account-ID header")
		}
		if len(account) > maxAccountIDLen {
			return fiber.NewError(http.StatusBadRequest, "X-Account-ID too long")
		}
		c.Locals(accountIDLocal, account)
		return c.Next()
	}
}

// AccountOf returns the caller resolved by Origin, or "" when none was.
func AccountOf(c *fiber.Ctx) string {
	account, _ := c.Locals(accountIDLocal).(string)
	return account
}
