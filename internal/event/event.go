// Package event decodes and validates the invocation payload.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/ppiankov/restockwatch/internal/privacy"
	"github.com/ppiankov/restockwatch/internal/source"
)

// Payload field names.
const (
	FieldSubject           = "subject"
	FieldConsumerKey       = "consumer_key"
	FieldConsumerSecret    = "consumer_secret"
	FieldAccessToken       = "access_token"
	FieldAccessTokenSecret = "access_token_secret"
	FieldScreenName        = "screen_name"
	FieldSearchTerms       = "search_terms"
	FieldSpecialUnicode    = "special_unicode"
)

// RequiredFields lists every required field in the order they are checked.
var RequiredFields = []string{
	FieldSubject,
	FieldConsumerKey,
	FieldConsumerSecret,
	FieldAccessToken,
	FieldAccessTokenSecret,
	FieldScreenName,
	FieldSearchTerms,
	FieldSpecialUnicode,
}

var listFields = []string{FieldSearchTerms, FieldSpecialUnicode}

// Request is one invocation's input.
type Request struct {
	Subject           string   `json:"subject"`
	ConsumerKey       string   `json:"consumer_key"`
	ConsumerSecret    string   `json:"consumer_secret"`
	AccessToken       string   `json:"access_token"`
	AccessTokenSecret string   `json:"access_token_secret"`
	ScreenName        string   `json:"screen_name"`
	SearchTerms       []string `json:"search_terms"`
	SpecialUnicode    []rune   `json:"special_unicode"`
}

// ValidationError reports a missing or malformed payload field.
type ValidationError struct {
	Field  string
	Reason string
}

const (
	reasonMissing = "is missing required input"
	reasonNotList = "must be a list"
	reasonInvalid = "has an invalid value"
	reasonObject  = "must be a JSON object"
)

func (e *ValidationError) Error() string {
	switch {
	case e.Field == "":
		return "event payload " + e.Reason
	case e.Reason == reasonMissing:
		return fmt.Sprintf("event payload %s - %s", e.Reason, e.Field)
	default:
		return fmt.Sprintf("event payload field %s %s", e.Field, e.Reason)
	}
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: reasonMissing}
}

func notList(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: reasonNotList}
}

// Validate checks that every required field is present, in RequiredFields
// order, and that the list fields hold JSON arrays.
func Validate(fields map[string]json.RawMessage) error {
	for _, name := range RequiredFields {
		if _, ok := fields[name]; !ok {
			return missing(name)
		}
	}
	for _, name := range listFields {
		if !isArray(fields[name]) {
			return notList(name)
		}
	}
	return nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Parse validates raw and decodes it into a Request.
func Parse(raw []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &ValidationError{Reason: reasonObject}
	}

	if err := Validate(fields); err != nil {
		return nil, err
	}

	var req Request
	var codePoints []float64
	targets := []struct {
		name string
		dst  any
	}{
		{FieldSubject, &req.Subject},
		{FieldConsumerKey, &req.ConsumerKey},
		{FieldConsumerSecret, &req.ConsumerSecret},
		{FieldAccessToken, &req.AccessToken},
		{FieldAccessTokenSecret, &req.AccessTokenSecret},
		{FieldScreenName, &req.ScreenName},
		{FieldSearchTerms, &req.SearchTerms},
		{FieldSpecialUnicode, &codePoints},
	}
	for _, target := range targets {
		if err := json.Unmarshal(fields[target.name], target.dst); err != nil {
			return nil, &ValidationError{Field: target.name, Reason: reasonInvalid}
		}
	}

	runes, err := toRunes(codePoints)
	if err != nil {
		return nil, &ValidationError{Field: FieldSpecialUnicode, Reason: reasonInvalid}
	}
	req.SpecialUnicode = runes

	return &req, nil
}

// toRunes converts JSON numbers to code points. Whole-number floats such as
// 233.0 are accepted; fractions and values outside the unicode range are not.
func toRunes(values []float64) ([]rune, error) {
	runes := make([]rune, 0, len(values))
	for _, v := range values {
		if v != math.Trunc(v) || v < 0 || v > unicode.MaxRune {
			return nil, fmt.Errorf("invalid code point %v", v)
		}
		runes = append(runes, rune(v))
	}
	return runes, nil
}

// Credentials returns the feed credentials carried by the request.
func (r *Request) Credentials() source.Credentials {
	return source.Credentials{
		ConsumerKey:       r.ConsumerKey,
		ConsumerSecret:    r.ConsumerSecret,
		AccessToken:       r.AccessToken,
		AccessTokenSecret: r.AccessTokenSecret,
	}
}

// MarshalZerologObject logs the request with credentials masked.
func (r *Request) MarshalZerologObject(e *zerolog.Event) {
	e.Str("screen_name", r.ScreenName).
		Str("subject", r.Subject).
		Strs("search_terms", r.SearchTerms).
		Int("special_unicode", len(r.SpecialUnicode)).
		Str("consumer_key", privacy.Mask(r.ConsumerKey)).
		Str("access_token", privacy.Mask(r.AccessToken))
}
