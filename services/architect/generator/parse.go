// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingPayload means the JSON parsed but lacked typescript_code or
// html_template.
var ErrMissingPayload = errors.New("JSON missing required code fields")

// ParseError reports output that could not be turned into a Payload.
type ParseError struct {
	// Raw is the reply as received, before any slicing.
	Raw string

	// Err is the cause: the JSON decode error or ErrMissingPayload.
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Payload is the JSON object the model is asked to produce.
type Payload struct {
	Name     string `json:"component_name"`
	Behavior string `json:"typescript_code"`
	Markup   string `json:"html_template"`
	Style    string `json:"scss_styles"`
}

var fenceMarker = regexp.MustCompile("```[a-zA-Z]*")

// ParseArtifact recovers a Payload from a model reply.
//
// Description:
//
//	Slices the reply from the first '{' to the last '}' so surrounding prose
//	is dropped, then decodes strictly. When that fails, code-fence markers are
//	stripped and decoding is tried once more. Literal \" sequences left by
//	double-escaping models are unescaped once in the three file payloads.
//
// Outputs:
//
//	Payload - The decoded fields. Name may be empty.
//	error - *ParseError when both decodes fail or a required payload is empty.
func ParseArtifact(raw string) (Payload, error) {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		text = text[start : end+1]
	}

	var p Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		cleaned := strings.TrimSpace(fenceMarker.ReplaceAllString(text, ""))
		p = Payload{}
		if err2 := json.Unmarshal([]byte(cleaned), &p); err2 != nil {
			return Payload{}, &ParseError{Raw: raw, Err: err2}
		}
	}

	p.Behavior = unescapeQuotes(p.Behavior)
	p.Markup = unescapeQuotes(p.Markup)
	p.Style = unescapeQuotes(p.Style)

	if p.Behavior == "" || p.Markup == "" {
		return Payload{}, &ParseError{Raw: raw, Err: ErrMissingPayload}
	}
	return p, nil
}

func unescapeQuotes(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}

var firstWord = regexp.MustCompile(`[A-Za-z0-9]+`)

// FallbackName derives a component name from the prompt's first
// alphanumeric token, e.g. "build a login form" -> "BuildComponent".
func FallbackName(prompt string) string {
	word := firstWord.FindString(prompt)
	if word == "" {
		return "GeneratedComponent"
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:]) + "Component"
}

// JSONErrorMessage is the synthetic validation error for an unparseable reply.
func JSONErrorMessage(cause error) string {
	return fmt.Sprintf("JSON Error: %v. Focus on providing ONLY a JSON object with keys: "+
		"component_name, typescript_code, html_template, scss_styles.", cause)
}
