package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"hotelapi/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON body into dst and validates it. An empty body decodes
// as {} so required-field checks still report which fields are missing.
func Decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		return apperr.Validation("No se pudo leer el cuerpo de la solicitud")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Validation("Datos JSON inválidos")
	}
	return Validate(dst)
}

// Validate runs struct validation and folds the result into a single
// validation error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.Validation(err.Error())
	}

	var missing, other []string
	for _, fe := range ve {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			missing = append(missing, name)
		case "oneof":
			other = append(other, fmt.Sprintf("%s debe ser uno de: %s", name, strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "min", "gte":
			other = append(other, fmt.Sprintf("%s debe ser mayor o igual a %s", name, fe.Param()))
		case "max", "lte":
			other = append(other, fmt.Sprintf("%s debe ser menor o igual a %s", name, fe.Param()))
		case "gt":
			other = append(other, fmt.Sprintf("%s debe ser mayor a %s", name, fe.Param()))
		default:
			other = append(other, fmt.Sprintf("%s es inválido", name))
		}
	}
	if len(missing) > 0 {
		return apperr.Validationf("Campos requeridos faltantes: %s", strings.Join(missing, ", "))
	}
	return apperr.Validation(strings.Join(other, "; "))
}

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("ID inválido: %s", raw)
	}
	return id, nil
}

// QueryInt64 returns the named query parameter or nil when absent or empty.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validationf("Parámetro %s inválido: %s", name, raw)
	}
	return &v, nil
}

// QueryInt returns the named query parameter, def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validationf("Parámetro %s inválido: %s", name, raw)
	}
	return v, nil
}

// QueryBool accepts true/1/yes (any case).
func QueryBool(r *http.Request, name string) bool {
	return ParseBool(r.URL.Query().Get(name))
}

func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// QueryDate parses a YYYY-MM-DD query parameter in loc.
func QueryDate(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, apperr.Validationf("Formato de fecha inválido en %s. Use YYYY-MM-DD", name)
	}
	return &t, nil
}
