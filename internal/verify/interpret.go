package verify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. The match is greedy: it spans from the first
// '{' to the last '}'.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// Interpret converts raw model output into a Result. When no JSON object can be
// recovered the returned Result is a rejection carrying the parse error text,
// together with a *ResponseParseError.
func Interpret(text string) (Result, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		perr := &ResponseParseError{Text: text, Err: err}
		return Rejection(perr.Error()), perr
	}

	// autoApproved is recomputed below, never decoded
	var resp struct {
		IsValid    bool    `json:"isValid"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		perr := &ResponseParseError{Text: text, Err: fmt.Errorf("%w (response: %s)", err, jsonStr)}
		return Rejection(perr.Error()), perr
	}

	result := Result{
		IsValid:    resp.IsValid,
		Confidence: clampConfidence(resp.Confidence),
		Reason:     resp.Reason,
	}
	return result.withAutoApproval(), nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
