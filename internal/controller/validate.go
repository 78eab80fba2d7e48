package controller

import (
	"strconv"
	"strings"

	"github.com/muurk/imagegen/internal/protocol"
)

// Validation messages shown before any request is made.
const (
	MsgPromptRequired   = "프롬프트를 입력해주세요."
	MsgSearchNumInvalid = "검색 개수는 1-10 사이의 숫자여야 합니다."
)

// FormInput is the raw form as typed by the user
type FormInput struct {
	Prompt    string
	ModelType string
	IndexType string
	SearchNum string
}

// ValidationError rejects a form locally
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateInput turns a form into a request. The prompt is trimmed and must
// not be empty; the search count must be a whole number in [1,10].
func ValidateInput(in FormInput) (protocol.GenerationRequest, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return protocol.GenerationRequest{}, &ValidationError{Field: "prompt", Message: MsgPromptRequired}
	}

	n, err := strconv.Atoi(strings.TrimSpace(in.SearchNum))
	if err != nil || n < protocol.MinSearchNum || n > protocol.MaxSearchNum {
		return protocol.GenerationRequest{}, &ValidationError{Field: "searchNum", Message: MsgSearchNumInvalid}
	}

	return protocol.GenerationRequest{
		Prompt:    prompt,
		ModelType: in.ModelType,
		IndexType: in.IndexType,
		SearchNum: n,
		QuerySend: true,
	}, nil
}
