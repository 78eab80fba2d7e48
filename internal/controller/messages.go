package controller

import (
	"fmt"

	"github.com/muurk/imagegen/internal/apiclient"
)

// Failure messages for a generation.
const (
	MsgGenerateFailed      = "이미지 생성 중 오류가 발생했습니다."
	MsgInvalidInput        = "입력값이 유효하지 않습니다."
	MsgUpstreamUnreachable = "외부 API 서버에 연결할 수 없습니다. 네트워크를 확인해주세요."
)

// ErrorMessage picks the single line shown for a failed generation.
func ErrorMessage(err error) string {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return MsgGenerateFailed
	}

	if se := apiErr.Response; se != nil {
		switch se.Kind {
		case apiclient.KindValidation:
			return orDefault(se.Detail, MsgInvalidInput)
		case apiclient.KindConnection:
			return MsgUpstreamUnreachable
		case apiclient.KindAPI:
			code := se.StatusCode
			if code == 0 {
				code = apiErr.Status
			}
			return fmt.Sprintf("외부 API 오류 (%d): %s", code, se.Detail)
		default:
			return orDefault(se.Detail, MsgGenerateFailed)
		}
	}

	// No payload: the client never got an answer
	switch apiErr.Type {
	case apiclient.ErrTypeTimeout, apiclient.ErrTypeNetwork:
		return apiErr.Message
	}
	return MsgGenerateFailed
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
