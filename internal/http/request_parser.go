// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Handlers accept JSON objects and, for simple fields, form-encoded bodies.

package http

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

	"github.com/shopspring/decimal"

	"scorecard/internal/core"
)

// maxBodyBytes bounds request bodies. Profiles may carry an inline logo.
const maxBodyBytes = 2 << 20

// ErrNotJSON is returned by Decode for non-JSON bodies.
var ErrNotJSON = errors.New("request body must be a JSON object")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
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

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON: %w", err)
		}
		return p.err
	}
	if body[0] == '[' {
		p.err = ErrNotJSON
		return p.err
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(body))
	return p.err
}

// Decode unmarshals a JSON body into v, rejecting unknown fields.
func (p *RequestBodyParser) Decode(v any) error {
	if err := p.Parse(); err != nil {
		return err
	}
	if p.jsonData == nil {
		if len(bytes.TrimSpace(p.body)) == 0 {
			return nil
		}
		return ErrNotJSON
	}
	dec := json.NewDecoder(bytes.NewReader(p.body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// Has reports whether key is present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetAmount parses key as a money or percentage value. JSON numbers and
// strings such as "$50,000.00" are both accepted.
func (p *RequestBodyParser) GetAmount(key string) (float64, error) {
	if !p.Has(key) {
		return 0, fmt.Errorf("%w: %s is required", core.ErrInvalidAmount, key)
	}
	var raw any
	if p.jsonData != nil {
		raw = p.jsonData[key]
	} else {
		raw = p.formData.Get(key)
	}
	v, err := amountValue(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// amountValue reads a decoded JSON or form value as an amount. JSON numbers,
// including exponent forms such as 5e4, bypass the currency parser.
func amountValue(v any) (float64, error) {
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return 0, core.ErrInvalidAmount
		}
		return d.InexactFloat64(), nil
	case float64:
		return val, nil
	case string:
		return core.ParseFloat(sanitizeInput(val))
	default:
		return 0, core.ErrInvalidAmount
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathValue returns a sanitized path wildcard.
func pathValue(r *http.Request, name string) string {
	return sanitizeInput(r.PathValue(name))
}
