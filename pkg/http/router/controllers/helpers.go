package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"go.uber.org/zap"
)

type envelope map[string]any

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	trans         ut.Translator
)

func getValidator() (*validator.Validate, ut.Translator) {
	validatorOnce.Do(func() {
		validate = validator.New()
		english := en.New()
		uni := ut.New(english, english)
		trans, _ = uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	})
	return validate, trans
}

// validateRequest returns nil or one error listing every violated rule in plain English.
func validateRequest(req any) error {
	v, trans := getValidator()
	if err := v.Struct(req); err != nil {
		vv := translateError(err, trans)
		vvString := []string{}
		for _, e := range vv {
			vvString = append(vvString, e.Error())
		}
		return fmt.Errorf("validation error: %v", vvString)
	}
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}

func parseFloatParam(query map[string][]string, key string, dst *float64) error {
	values := query[key]
	if len(values) == 0 || values[0] == "" {
		return fmt.Errorf("%s is required and must be a valid float", key)
	}
	v, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return fmt.Errorf("%s is required and must be a valid float", key)
	}
	*dst = v
	return nil
}

func (api *routingAPI) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func (api *routingAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := envelope{"error": errorBody{Code: http.StatusText(status), Message: message}}
	if err := api.writeJSON(w, status, env, nil); err != nil {
		api.log.Error("write error response", zap.Error(err), zap.String("path", r.URL.Path))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *routingAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("internal server error", zap.Error(err),
		zap.String("method", r.Method), zap.String("path", r.URL.Path))
	api.errorResponse(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

func (api *routingAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// statusCode maps the code of a util.Error to an HTTP status.
func statusCode(err error) int {
	var uerr *util.Error
	if !errors.As(err, &uerr) {
		return http.StatusInternalServerError
	}
	switch uerr.Code() {
	case util.ErrBadParamInput:
		return http.StatusBadRequest
	case util.ErrNotFound:
		return http.StatusNotFound
	case util.ErrConflict:
		return http.StatusConflict
	case util.ErrUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (api *routingAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	switch status := statusCode(err); status {
	case http.StatusInternalServerError:
		api.ServerErrorResponse(w, r, err)
	default:
		api.errorResponse(w, r, status, err.Error())
	}
}
