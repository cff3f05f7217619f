package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"labdevices/pkg/device"
)

// Error numbers reported in the response envelope.
const (
	ErrNumNotImplemented = 0x400
	ErrNumInvalidValue   = 0x401
	ErrNumNotConnected   = 0x407
	ErrNumDriver         = 0x500
)

var (
	errNotImplemented = errors.New("not implemented for this device")
	errInvalidValue   = errors.New("invalid value")
)

// Global transaction counter
var txCounter atomic.Int32

type baseResponse struct {
	ClientTransactionID int    `json:"ClientTransactionID"`
	ServerTransactionID int    `json:"ServerTransactionID"`
	ErrorNumber         int    `json:"ErrorNumber"`
	ErrorMessage        string `json:"ErrorMessage"`
	Value               any    `json:"Value,omitempty"`
}

// Helper to read and parse the request body as URL-encoded data.
func parseBodyParams(r *http.Request) (url.Values, error) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	// Reset the body so it can be read again later.
	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return url.ParseQuery(string(bodyBytes))
}

func requestParams(r *http.Request) url.Values {
	if r.Method == http.MethodPut {
		// PUT requests have the parameters in the body.
		params, _ := parseBodyParams(r)
		return params
	}
	return r.URL.Query()
}

// getClientTxID obtains the client transaction ID. Parameter names are case
// insensitive and a missing ID is 0.
func getClientTxID(params url.Values) (int, error) {
	for param, value := range params {
		if strings.ToLower(param) == "clienttransactionid" {
			id, err := strconv.Atoi(value[0])
			if err != nil || id < 0 {
				return 0, errors.New("ClientTransactionID must be a non-negative integer")
			}
			return id, nil
		}
	}
	return 0, nil
}

// param returns a case insensitive request parameter.
func param(r *http.Request, field string) (string, error) {
	for name, value := range requestParams(r) {
		if strings.EqualFold(name, field) {
			return value[0], nil
		}
	}
	return "", fmt.Errorf("%w: missing %s", errInvalidValue, field)
}

func errorNumber(err error) int {
	switch {
	case errors.Is(err, device.ErrNotConnected):
		return ErrNumNotConnected
	case errors.Is(err, errNotImplemented):
		return ErrNumNotImplemented
	case errors.Is(err, device.ErrOutOfRange), errors.Is(err, errInvalidValue):
		return ErrNumInvalidValue
	default:
		return ErrNumDriver
	}
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, response baseResponse) {
	txID, err := getClientTxID(requestParams(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response.ClientTransactionID = txID
	response.ServerTransactionID = int(txCounter.Add(1))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleResponse(w http.ResponseWriter, r *http.Request, value any) {
	writeEnvelope(w, r, baseResponse{Value: value})
}

func handleError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeEnvelope(w, r, baseResponse{ErrorNumber: code, ErrorMessage: message})
}

// handle adapts fn to an envelope response. Driver errors are reported in
// the envelope with HTTP status 200.
func handle(fn func(r *http.Request) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, err := fn(r)
		if err != nil {
			handleError(w, r, errorNumber(err), err.Error())
			return
		}
		handleResponse(w, r, value)
	})
}
