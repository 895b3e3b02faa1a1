package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/dto"
)

var validate = validator.New()

func init() {
	// decimal.Decimal se valida como número (gt=0, gte=0).
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Nombres de campo como en el JSON.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// entryIndex toma el primer índice de slice de la ruta del campo: "entries[3].actual_quantity" -> 3.
var entryIndex = regexp.MustCompile(`\[(\d+)\]`)

// bindBody parsea el JSON y corre las reglas validate. Si falla escribe la respuesta 400 y
// devuelve ok=false; el llamador debe retornar sin escribir otra respuesta.
func bindBody(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
	}
	return checkStruct(c, req)
}

// bindQuery igual que bindBody para parámetros de query.
func bindQuery(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.QueryParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos: " + err.Error()})
	}
	return checkStruct(c, req)
}

func checkStruct(c *fiber.Ctx, req interface{}) (bool, error) {
	err := validate.Struct(req)
	if err == nil {
		return true, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	body := dto.ErrorResponse{
		Code:    "VALIDATION",
		Message: fmt.Sprintf("campo %s no cumple la regla %s", field, fieldRule(fe)),
	}
	if m := entryIndex.FindStringSubmatch(field); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			body.Entry = &n
		}
	}
	return false, c.Status(fiber.StatusBadRequest).JSON(body)
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}
