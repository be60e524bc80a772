package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/assetledger/internal/assets"
)

// RegisterAssetRoutes wires asset, balance and transfer endpoints.
func RegisterAssetRoutes(r fiber.Router, h *assets.Handler) {
	r.Post("/assets", h.Create)
	r.Get("/assets/:assetId", h.Get)
	r.Delete("/assets/:assetId", h.Destroy)
	r.Put("/assets/:assetId/metadata", h.SetMetadata)
	r.Post("/assets/:assetId/issue", h.Issue)
	r.Post("/assets/:assetId/burn", h.Burn)
	r.Post("/assets/:assetId/transfers", h.Transfer)
	r.Get("/assets/:assetId/accounts", h.Accounts)
	r.Get("/assets/:assetId/balances/:accountId", h.Balance)
}
