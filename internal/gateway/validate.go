package gateway

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/muurk/imagegen/internal/protocol"
)

// Validation messages returned in the detail field.
const (
	MsgPromptRequired   = "프롬프트는 필수입니다"
	MsgSearchNumNumeric = "Search Num은 숫자여야 합니다"
	MsgInvalidSettings  = "유효하지 않은 설정값입니다."
	MsgInvalidJSON      = "요청 본문이 올바른 JSON이 아닙니다."
)

// ValidationError is a rejected request field. It maps to 400 validation_error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validated is a request that passed validation.
type Validated struct {
	Prompt    string
	Settings  protocol.Settings
	QuerySend bool
}

// UpstreamPayload is what the image search API receives. It carries both
// spellings of each option because deployed versions of that API disagree.
type UpstreamPayload struct {
	Prompt         string `json:"prompt"`
	ModelType      string `json:"model_type"`
	IndexType      string `json:"index_type"`
	SearchNum      int    `json:"search_num"`
	QuerySend      bool   `json:"querySend"`
	ModelTypeCamel string `json:"modelType"`
	IndexTypeCamel string `json:"indexType"`
	SearchNumCamel int    `json:"searchNum"`
}

// Payload renders v for the upstream.
func (v Validated) Payload() UpstreamPayload {
	return UpstreamPayload{
		Prompt:         v.Prompt,
		ModelType:      v.Settings.ModelType,
		IndexType:      v.Settings.IndexType,
		SearchNum:      v.Settings.SearchNum,
		QuerySend:      v.QuerySend,
		ModelTypeCamel: v.Settings.ModelType,
		IndexTypeCamel: v.Settings.IndexType,
		SearchNumCamel: v.Settings.SearchNum,
	}
}

// ValidateRequest checks a decoded POST /create body. camelCase keys win
// over snake_case ones; absent options take the defaults.
func ValidateRequest(raw map[string]any) (Validated, error) {
	var v Validated

	prompt, _ := raw["prompt"].(string)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return v, &ValidationError{Field: "prompt", Message: MsgPromptRequired}
	}
	if utf8.RuneCountInString(prompt) > protocol.MaxPromptLength {
		return v, &ValidationError{
			Field:   "prompt",
			Message: fmt.Sprintf("프롬프트가 너무 깁니다 (최대 %d자)", protocol.MaxPromptLength),
		}
	}
	v.Prompt = prompt

	v.Settings = protocol.DefaultSettings()
	if s, ok := pick(raw, "modelType", "model_type").(string); ok {
		v.Settings.ModelType = s
	}
	if s, ok := pick(raw, "indexType", "index_type").(string); ok {
		v.Settings.IndexType = s
	}

	if n := pick(raw, "searchNum", "search_num"); n != nil {
		num, err := parseSearchNum(n)
		if err != nil {
			return v, err
		}
		v.Settings.SearchNum = num
	}

	v.QuerySend = true
	if b, ok := raw["querySend"].(bool); ok {
		v.QuerySend = b
	}
	return v, nil
}

// pick returns the first key present in raw.
func pick(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if val, ok := raw[k]; ok && val != nil {
			return val
		}
	}
	return nil
}

// parseSearchNum accepts a JSON number or a numeric string.
func parseSearchNum(val any) (int, error) {
	var n int
	switch x := val.(type) {
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, &ValidationError{Field: "searchNum", Message: MsgSearchNumNumeric}
		}
		n = int(x)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, &ValidationError{Field: "searchNum", Message: MsgSearchNumNumeric}
		}
		n = parsed
	default:
		return 0, &ValidationError{Field: "searchNum", Message: MsgSearchNumNumeric}
	}

	if n < protocol.MinSearchNum || n > protocol.MaxSearchNum {
		return 0, &ValidationError{
			Field:   "searchNum",
			Message: fmt.Sprintf("Search Num은 %d~%d 사이여야 합니다", protocol.MinSearchNum, protocol.MaxSearchNum),
		}
	}
	return n, nil
}
