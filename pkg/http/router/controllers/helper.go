package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/graphcut/pkg/util"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 20

type envelope map[string]interface{}

// requestValidator validates request dtos and translates the errors to english.
type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() *requestValidator {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	return &requestValidator{validate: validate, trans: trans}
}

func (v *requestValidator) Struct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	vv := translateError(err, v.trans)
	vvString := []string{}
	for _, e := range vv {
		vvString = append(vvString, e.Error())
	}
	return fmt.Errorf("validation error: %v", vvString)
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

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		default:
			return fmt.Errorf("body contains badly-formed JSON: %v", err)
		}
	}
	if dec.More() {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
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

func errorEnvelope(status int, message string) envelope {
	return envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}}
}

// statusOf maps the util.Error code of err to an http status and a client message.
func statusOf(err error) (int, string) {
	var ierr *util.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError, util.MessageInternalServerError
	}
	switch ierr.Code() {
	case util.ErrBadParamInput:
		return http.StatusBadRequest, ierr.Error()
	case util.ErrUnprocessable:
		return http.StatusUnprocessableEntity, ierr.Error()
	case util.ErrNotFound:
		return http.StatusNotFound, ierr.Error()
	default:
		return http.StatusInternalServerError, util.MessageInternalServerError
	}
}

func (api *solverAPI) logError(r *http.Request, err error) {
	api.log.Error("request failed", zap.String("method", r.Method), zap.String("uri", r.URL.RequestURI()),
		zap.Error(err))
}

func (api *solverAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := writeJSON(w, status, errorEnvelope(status, message), nil); err != nil {
		api.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *solverAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.logError(r, err)
	api.errorResponse(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

func (api *solverAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (api *solverAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)
	if status == http.StatusInternalServerError {
		api.logError(r, err)
	}
	api.errorResponse(w, r, status, message)
}
