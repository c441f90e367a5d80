package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"compras/internal/core"
	"compras/internal/ledger"
)

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// statusFor maps ledger errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case isInputError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func isInputError(err error) bool {
	return core.IsValidation(err) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidQuantityFormat)
}

// messageFor is the text shown to the user for err
func messageFor(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyBarcode):
		return "Informe o código de barras."
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrNegativePrice):
		return "Preço inválido. Use um valor como 12,34."
	case errors.Is(err, core.ErrInvalidQuantity), errors.Is(err, core.ErrInvalidQuantityFormat):
		return "Quantidade inválida. Use um número inteiro maior que zero."
	case errors.Is(err, core.ErrInvalidPeriod):
		return "Mês inválido. Use o formato AAAA-MM."
	case errors.Is(err, core.ErrInvalidID):
		return "Registro inválido."
	case errors.Is(err, core.ErrNotFound):
		return "Registro não encontrado."
	default:
		return "Erro ao acessar o banco de dados."
	}
}

var templateFuncs = template.FuncMap{
	"money":    core.FormatMoney,
	"subtotal": ledger.Subtotal,
	"abs": func(d decimal.Decimal) decimal.Decimal {
		return d.Abs()
	},
	"price": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
}
