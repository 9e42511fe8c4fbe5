package service

import (
	"errors"
	"html/template"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors returned by the services. Handlers map them to flash
// messages with errors.Is.
var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCannotDeleteAdmin  = errors.New("admin accounts cannot be deleted")
	ErrOwnerNotFound      = errors.New("recipe owner no longer exists")
)

// ValidationError carries the translation keys of every failed rule.
type ValidationError struct {
	MessageIDs []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.MessageIDs, ", ")
}

// Translation keys reported by ValidationError.
const (
	MsgUsernameLength = "pages.register.toasts.usernameLength"
	MsgPasswordLength = "pages.register.toasts.passwordLength"
	MsgPasswordPolicy = "pages.register.toasts.passwordPolicy"
	MsgFieldsRequired = "pages.recipe.toasts.fieldsRequired"
)

var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSymbol  = regexp.MustCompile(`[@$!%*?&]`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("password_policy", passwordPolicy); err != nil {
		panic(err)
	}
	return v
}

func passwordPolicy(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	return passwordCharset.MatchString(p) &&
		passwordLower.MatchString(p) &&
		passwordUpper.MatchString(p) &&
		passwordDigit.MatchString(p) &&
		passwordSymbol.MatchString(p)
}

// normalizeUsername trims and escapes the username the way it is stored.
func normalizeUsername(username string) string {
	return template.HTMLEscapeString(strings.TrimSpace(username))
}

// validateRegistration returns the normalized username, or a
// *ValidationError listing every rule that failed.
func validateRegistration(username, password string) (string, error) {
	var ids []string

	trimmed := strings.TrimSpace(username)
	if validate.Var(trimmed, "required") != nil {
		ids = append(ids, MsgUsernameLength)
	} else {
		username = normalizeUsername(trimmed)
		if validate.Var(username, "min=3") != nil {
			ids = append(ids, MsgUsernameLength)
		}
	}

	if validate.Var(password, "min=6") != nil {
		ids = append(ids, MsgPasswordLength)
	}
	if validate.Var(password, "password_policy") != nil {
		ids = append(ids, MsgPasswordPolicy)
	}

	if len(ids) > 0 {
		return "", &ValidationError{MessageIDs: ids}
	}
	return username, nil
}

// RecipeForm is the bound body of the create and edit forms.
type RecipeForm struct {
	RecipeName  string `form:"recipeName" validate:"required"`
	Ingredients string `form:"ingredients" validate:"required"`
}

func (f *RecipeForm) normalize() error {
	f.RecipeName = strings.TrimSpace(f.RecipeName)
	f.Ingredients = strings.TrimSpace(f.Ingredients)
	if validate.Struct(f) != nil {
		return &ValidationError{MessageIDs: []string{MsgFieldsRequired}}
	}
	return nil
}
