package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"elms-backend/config"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterJSONFieldNames makes binding errors report JSON field names instead of Go ones.
func RegisterJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	}
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func RespondWithValidationError(c *gin.Context, verr *ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": verr.Fields,
	})
}

// RespondWithBindError renders a ShouldBind* failure as a per-field error list.
func RespondWithBindError(c *gin.Context, err error) {
	RespondWithValidationError(c, BindErrorFields(err))
}

func BindErrorFields(err error) *ValidationError {
	verr := &ValidationError{}

	var fieldErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), describeTag(fe))
		}
	case errors.As(err, &typeErr):
		verr.Add(typeErr.Field, fmt.Sprintf("must be of type %s", typeErr.Type.String()))
	case errors.As(err, &syntaxErr):
		verr.Add("body", "malformed JSON")
	default:
		verr.Add("body", err.Error())
	}
	return verr
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed the " + fe.Tag() + " check"
	}
}

// RespondWithServiceError maps a service error onto the HTTP error taxonomy.
func RespondWithServiceError(c *gin.Context, err error, notFoundMessage string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		RespondWithValidationError(c, verr)
	case errors.Is(err, gorm.ErrRecordNotFound):
		RespondWithError(c, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		RespondWithError(c, http.StatusConflict, "A conflicting record already exists")
	default:
		config.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
		RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}
