package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"fileshare/internal/linkname"
)

// FormValidator adapts go-playground/validator to echo.Validator.
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator returns an echo.Validator that reports fields by their
// form names and understands the linkname tag.
func NewFormValidator() *FormValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("linkname", func(fl validator.FieldLevel) bool {
		return linkname.Valid(fl.Field().String())
	})
	return &FormValidator{validate: v}
}

// Validate returns a readable error listing each failing field.
func (fv *FormValidator) Validate(i interface{}) error {
	err := fv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "linkname":
			msgs = append(msgs, fmt.Sprintf("%s may only contain letters, digits, '.', '_' and '-'", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// uploadForm is the multipart form accepted by POST /upload.
type uploadForm struct {
	CustomLink   string `form:"custom_link" validate:"required,linkname"`
	IsPublic     string `form:"is_public"`
	FilePassword string `form:"file_password"`
}

func (f uploadForm) public() bool {
	switch strings.ToLower(f.IsPublic) {
	case "true", "on", "1":
		return true
	}
	return false
}
