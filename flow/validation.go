package flow

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Client-side validation messages. A form failing these never reaches the network.
const (
	MsgInvalidEmail      = "Ingresa un correo válido."
	MsgEmptyPassword     = "Ingresa tu contraseña."
	MsgInvalidOTP        = "El código debe tener 6 dígitos."
	MsgPasswordMismatch  = "Las contraseñas no coinciden."
	MsgWeakPassword      = "La contraseña es muy débil (Requiere Mayúscula, Minúscula, Número y Símbolo)"
	MsgMissingResetToken = "Token inválido o faltante."
)

const passwordSymbols = "@$!%*?&.#_-"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return v
}

// StrongPassword reports whether password is at least 8 characters drawn from
// letters, digits and @$!%*?&.#_- with at least one of each of uppercase,
// lowercase, digit and symbol.
func StrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, char := range password {
		switch {
		case char > unicode.MaxASCII:
			return false
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case strings.ContainsRune(passwordSymbols, char):
			hasSymbol = true
		default:
			return false
		}
	}
	return hasUpper && hasLower && hasNumber && hasSymbol
}

func checkEmail(email string) string {
	if validate.Var(email, "required,email") != nil {
		return MsgInvalidEmail
	}
	return ""
}

func checkPassword(password string) string {
	if validate.Var(password, "required") != nil {
		return MsgEmptyPassword
	}
	return ""
}

func checkOTP(code string) string {
	if validate.Var(code, "required,len=6,number") != nil {
		return MsgInvalidOTP
	}
	return ""
}

func firstProblem(problems ...string) string {
	for _, p := range problems {
		if p != "" {
			return p
		}
	}
	return ""
}
