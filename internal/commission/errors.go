package commission

import (
	"errors"
	"log"

	"dealership-backend/internal/rules"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation             = errors.New("geçersiz veri")
	ErrInvalidTransition      = errors.New("bu durumda işlem yapılamaz")
	ErrConcurrentModification = errors.New("komisyon başka bir işlem tarafından değiştirildi")
	ErrAlreadyPaid            = errors.New("komisyon zaten ödenmiş")
	ErrNotFound               = errors.New("komisyon bulunamadı")
	ErrDuplicate              = errors.New("bu satış ve satış temsilcisi için komisyon zaten var")
	ErrForbidden              = errors.New("bu işlem için yetkiniz yok")
)

// Hata kodları arayüze döner; UI yenile-tekrar dene / senkronize et /
// girişi düzelt ayrımını bu kodla yapar.
const (
	CodeValidation             = "validation_error"
	CodeInvalidTransition      = "invalid_transition"
	CodeConcurrentModification = "concurrent_modification"
	CodeAlreadyPaid            = "already_paid"
	CodeNoApplicableRule       = "no_applicable_rule"
	CodeNotFound               = "not_found"
	CodeDuplicate              = "duplicate_commission"
	CodeForbidden              = "forbidden"
)

// HTTPError maps engine errors to a status and a stable code. ok is false for
// errors the engine does not own.
func HTTPError(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, rules.ErrNegativeAmount):
		return fiber.StatusBadRequest, CodeValidation, true
	case errors.Is(err, ErrInvalidTransition):
		return fiber.StatusConflict, CodeInvalidTransition, true
	case errors.Is(err, ErrConcurrentModification):
		return fiber.StatusConflict, CodeConcurrentModification, true
	case errors.Is(err, ErrAlreadyPaid):
		return fiber.StatusOK, CodeAlreadyPaid, true
	case errors.Is(err, rules.ErrNoApplicableRule):
		return fiber.StatusUnprocessableEntity, CodeNoApplicableRule, true
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound, CodeNotFound, true
	case errors.Is(err, ErrDuplicate):
		return fiber.StatusConflict, CodeDuplicate, true
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden, CodeForbidden, true
	}
	return 0, "", false
}

// ErrorHandler is the fiber error handler for the whole API: engine errors
// get their stable code, fiber errors keep their status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if status, code, ok := HTTPError(err); ok {
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
			"code":  code,
		})
	}
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	log.Println("Unexpected error:", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Beklenmeyen sunucu hatası",
	})
}
