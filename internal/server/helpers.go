package server

import (
	"errors"
	"log/slog"

	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPageSize    = 20
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// statusFor maps an error from the service layer to its HTTP status.
// Storage integrity violations surface as 409.
func statusFor(err error) int {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeNotFound:
			return fiber.StatusNotFound
		case models.CodeValidation:
			return fiber.StatusBadRequest
		case models.CodeUnauthorized:
			return fiber.StatusUnauthorized
		case models.CodeForbidden:
			return fiber.StatusForbidden
		case models.CodeConflict:
			return fiber.StatusConflict
		}
		return fiber.StatusInternalServerError
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case database.IsIntegrityViolation(err):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes err with the status chosen by statusFor. Integrity
// violations are wrapped in a conflict error and unknown errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	switch status {
	case fiber.StatusConflict:
		if !models.HasCode(err, models.CodeConflict) {
			err = models.NewConflictError(conflictMessage(err), err)
		}
	case fiber.StatusNotFound:
		if !models.HasCode(err, models.CodeNotFound) {
			err = &models.AppError{Code: models.CodeNotFound, Message: "Not found"}
		}
	case fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		if !models.HasCode(err, models.CodeInternal) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func conflictMessage(err error) string {
	switch {
	case database.IsUniqueViolation(err):
		if name := database.ConstraintName(err); name != "" {
			return "Duplicate value violates " + name
		}
		return "Duplicate value"
	case database.IsForeignKeyViolation(err):
		return "Record is still referenced"
	}
	return "Integrity constraint violated"
}
