// Package assets exposes the ledger over HTTP.
package assets

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/holiman/uint256"

	"github.com/congo-pay/assetledger/internal/ledger"
	"github.com/congo-pay/assetledger/internal/middleware"
)

// FailureRecorder counts rejected operations.
type FailureRecorder interface {
	OperationFailed(operation, reason string)
}

// Handler exposes asset and balance endpoints.
type Handler struct {
	ledger   *ledger.Ledger
	failures FailureRecorder
}

// NewHandler constructs an asset handler. failures may be nil.
func NewHandler(l *ledger.Ledger, failures FailureRecorder) *Handler {
	return &Handler{ledger: l, failures: failures}
}

type createRequest struct {
	Asset        string `json:"asset"`
	TokenAddress string `json:"token_address"`
}

type metadataRequest struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type amountRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type metadataResponse struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type assetResponse struct {
	Asset    string           `json:"asset"`
	Supply   string           `json:"supply"`
	Accounts uint32           `json:"accounts"`
	Metadata metadataResponse `json:"metadata"`
}

type balanceResponse struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}

// Create registers an asset, either by explicit id or as a bridged token.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	asset := ledger.AssetID(strings.TrimSpace(req.Asset))
	if req.TokenAddress != "" {
		if asset != "" {
			return fiber.NewError(http.StatusBadRequest, "asset and token_address are mutually exclusive")
		}
		token, err := ledger.TokenAsset(req.TokenAddress)
		if err != nil {
			return h.fail("create", err)
		}
		asset = token
	}

	if err := h.ledger.Create(c.UserContext(), asset); err != nil {
		return h.fail("create", err)
	}
	return c.Status(http.StatusCreated).JSON(assetResponse{Asset: string(asset), Supply: "0"})
}

// Get returns the supply, account count and metadata of an asset.
func (h *Handler) Get(c *fiber.Ctx) error {
	asset := ledger.AssetID(c.Params("assetId"))
	rec, err := h.ledger.Asset(c.UserContext(), asset)
	if err != nil {
		return h.fail("get", err)
	}
	md, err := h.ledger.Metadata(c.UserContext(), asset)
	if err != nil {
		return h.fail("get", err)
	}
	return c.JSON(assetResponse{
		Asset:    string(asset),
		Supply:   rec.Supply.Dec(),
		Accounts: rec.Accounts,
		Metadata: metadataResponse{Name: string(md.Name), Symbol: string(md.Symbol), Decimals: md.Decimals},
	})
}

// Destroy removes an empty asset.
func (h *Handler) Destroy(c *fiber.Ctx) error {
	if err := h.ledger.Destroy(c.UserContext(), ledger.AssetID(c.Params("assetId"))); err != nil {
		return h.fail("destroy", err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetMetadata replaces the metadata of an asset.
func (h *Handler) SetMetadata(c *fiber.Ctx) error {
	var req metadataRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	asset := ledger.AssetID(c.Params("assetId"))
	if err := h.ledger.SetMetadata(c.UserContext(), asset, []byte(req.Name), []byte(req.Symbol), req.Decimals); err != nil {
		return h.fail("set_metadata", err)
	}
	return c.JSON(metadataResponse(req))
}

// Issue mints new units into an account.
func (h *Handler) Issue(c *fiber.Ctx) error {
	return h.adjust(c, "issue", h.ledger.Issue)
}

// Burn destroys units held by an account.
func (h *Handler) Burn(c *fiber.Ctx) error {
	return h.adjust(c, "burn", h.ledger.Burn)
}

func (h *Handler) adjust(c *fiber.Ctx, op string, apply func(ctx context.Context, asset ledger.AssetID, account ledger.AccountID, amount *uint256.Int) error) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account := strings.TrimSpace(req.Account)
	if account == "" {
		return fiber.NewError(http.StatusBadRequest, "account is required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	asset := ledger.AssetID(c.Params("assetId"))
	if err := apply(c.UserContext(), asset, ledger.AccountID(account), amount); err != nil {
		return h.fail(op, err)
	}
	return h.writeBalance(c, asset, ledger.AccountID(account))
}

// Transfer moves units from the calling account to another account.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	from := middleware.AccountOf(c)
	if from == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing caller")
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		return fiber.NewError(http.StatusBadRequest, "to is required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}

	asset := ledger.AssetID(c.Params("assetId"))
	if err := h.ledger.Transfer(c.UserContext(), asset, ledger.AccountID(from), ledger.AccountID(to), amount); err != nil {
		return h.fail("transfer", err)
	}
	return h.writeBalance(c, asset, ledger.AccountID(from))
}

// Accounts lists the non-zero balances of an asset.
func (h *Handler) Accounts(c *fiber.Ctx) error {
	asset := ledger.AssetID(c.Params("assetId"))
	if _, err := h.ledger.Asset(c.UserContext(), asset); err != nil {
		return h.fail("accounts", err)
	}
	entries, err := h.ledger.Accounts(c.UserContext(), asset)
	if err != nil {
		return h.fail("accounts", err)
	}
	out := make([]balanceResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, balanceResponse{Asset: string(asset), Account: string(entry.Account), Balance: entry.Balance.Dec()})
	}
	return c.JSON(fiber.Map{"asset": asset, "accounts": out})
}

// Balance returns one account's balance; zero for unknown accounts and assets.
func (h *Handler) Balance(c *fiber.Ctx) error {
	return h.writeBalance(c, ledger.AssetID(c.Params("assetId")), ledger.AccountID(c.Params("accountId")))
}

func (h *Handler) writeBalance(c *fiber.Ctx, asset ledger.AssetID, account ledger.AccountID) error {
	balance, err := h.ledger.Balance(c.UserContext(), asset, account)
	if err != nil {
		return h.fail("balance", err)
	}
	return c.JSON(balanceResponse{Asset: string(asset), Account: string(account), Balance: balance.Dec()})
}

// parseAmount accepts a base-10 string so values above 2^53 survive JSON.
func parseAmount(raw string) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "amount must be a base-10 integer below 2^256")
	}
	return amount, nil
}

// fail maps ledger errors onto HTTP errors and counts the rejection.
func (h *Handler) fail(op string, err error) error {
	status, reason := classify(err)
	if h.failures != nil {
		h.failures.OperationFailed(op, reason)
	}
	if status == http.StatusInternalServerError {
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrUnknownAsset):
		return http.StatusNotFound, "unknown_asset"
	case errors.Is(err, ledger.ErrInUse):
		return http.StatusConflict, "in_use"
	case errors.Is(err, ledger.ErrOverflow):
		return http.StatusUnprocessableEntity, "overflow"
	case errors.Is(err, ledger.ErrUnderflow):
		return http.StatusUnprocessableEntity, "underflow"
	case errors.Is(err, ledger.ErrNoFunds):
		return http.StatusUnprocessableEntity, "no_funds"
	case errors.Is(err, ledger.ErrBadMetadata):
		return http.StatusUnprocessableEntity, "bad_metadata"
	case errors.Is(err, ledger.ErrInvalidAsset):
		return http.StatusBadRequest, "invalid_asset"
	case errors.Is(err, ledger.ErrInternalInconsistency):
		return http.StatusInternalServerError, "inconsistency"
	default:
		return http.StatusInternalServerError, "storage"
	}
}
