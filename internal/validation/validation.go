// Package validation содержит клиентские проверки форм до отправки запроса.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

// FieldError описывает ошибку одного поля формы.
type FieldError struct {
	Field   string
	Message string
}

// Error описывает ошибку клиентской валидации. Запрос к бэкенду при ней не выполняется.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func newError(field, msg string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: msg}}}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegistrationForm содержит поля формы регистрации, включая подтверждение пароля.
type RegistrationForm struct {
	Login           string `validate:"required"`
	Email           string `validate:"required,email"`
	Name            string `validate:"required"`
	Password        string `validate:"required,min=6"`
	PasswordConfirm string `validate:"eqfield=Password"`
	Phone           string
	Role            string `validate:"omitempty,oneof=buyer manager admin"`
}

// Request возвращает данные регистрации без подтверждения пароля.
func (f RegistrationForm) Request() model.RegisterRequest {
	return model.RegisterRequest{
		Login:    f.Login,
		Email:    f.Email,
		Name:     f.Name,
		Password: f.Password,
		Phone:    f.Phone,
		Role:     model.Role(f.Role),
	}
}

type credentials struct {
	Login    string `validate:"required"`
	Password string `validate:"required"`
}

type registerRequired struct {
	Login    string `validate:"required"`
	Email    string `validate:"required"`
	Name     string `validate:"required"`
	Password string `validate:"required"`
}

type profileUpdate struct {
	Name  *string `validate:"omitnil,min=1"`
	Email *string `validate:"omitnil,email"`
}

// Registration проверяет форму регистрации.
func Registration(f RegistrationForm) error {
	return check(f)
}

// Credentials проверяет наличие логина и пароля.
func Credentials(c model.Credentials) error {
	return check(credentials{Login: c.Login, Password: c.Password})
}

// RegisterRequest проверяет только наличие обязательных полей запроса регистрации.
// Формат email и длину пароля проверяет форма (Registration) и бэкенд.
func RegisterRequest(r model.RegisterRequest) error {
	return check(registerRequired{Login: r.Login, Email: r.Email, Name: r.Name, Password: r.Password})
}

// Shipment проверяет параметры груза, обязательные для формирования заявки.
func Shipment(d model.ShipmentDetails) error {
	return check(d)
}

// Profile проверяет форму редактирования профиля.
func Profile(p model.ProfileUpdate) error {
	if p.Empty() {
		return newError("Profile", "нет изменений для сохранения")
	}
	return check(profileUpdate{Name: p.Name, Email: p.Email})
}

// PositiveID проверяет, что идентификатор задан.
func PositiveID(field string, id int64) error {
	if id <= 0 {
		return newError(field, fmt.Sprintf("поле %s обязательно", field))
	}
	return nil
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &Error{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("поле %s обязательно", fe.Field())
	case "email":
		return "некорректный email"
	case "eqfield":
		return "Пароли не совпадают"
	case "min":
		if fe.Field() == "Password" {
			return fmt.Sprintf("Пароль должен содержать минимум %s символов", fe.Param())
		}
		return fmt.Sprintf("поле %s слишком короткое", fe.Field())
	case "gt":
		return fmt.Sprintf("поле %s должно быть больше нуля", fe.Field())
	case "oneof":
		return fmt.Sprintf("недопустимое значение поля %s", fe.Field())
	default:
		return fmt.Sprintf("поле %s заполнено неверно", fe.Field())
	}
}
