// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of transaction request bodies. JSON and
// form-encoded bodies are both accepted.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var (
	errEmptyBody    = errors.New("request body is empty")
	errNotAnObject  = errors.New("request body must be a JSON object")
	errBodyTooLarge = errors.New("request body too large")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TransactionRequest carries the fields exactly as the user typed them.
// Only Type is checked here; amount, category and date are validated by
// the service.
type TransactionRequest struct {
	Type        string `json:"type" validate:"required,oneof=Income Expense"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// ValidateType runs the struct tags. Only create requests need it since
// an update never changes the type.
func (req TransactionRequest) ValidateType() error {
	return validate.Struct(req)
}

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once and stores it for subsequent
// parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var maxErr *http.MaxBytesError
	if errors.As(p.err, &maxErr) {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.err = errEmptyBody
		return p.err
	}

	switch trimmed[0] {
	case '{':
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON: %w", err)
		}
		return p.err
	case '[':
		p.err = errNotAnObject
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the value of key as text, untrimmed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// Transaction builds the request DTO from the parsed body.
func (p *RequestBodyParser) Transaction() TransactionRequest {
	return TransactionRequest{
		Type:        p.Get("type"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
	}
}

// ParseTransactionRequest reads and parses the body of r.
func ParseTransactionRequest(w http.ResponseWriter, r *http.Request) (TransactionRequest, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return TransactionRequest{}, err
	}
	return p.Transaction(), nil
}

// stringValue converts a decoded JSON value to the text a user would have
// typed. Numbers keep their shortest representation.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
