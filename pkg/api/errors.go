package api

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultErrorMessage is used when a failed response carries no usable detail.
const DefaultErrorMessage = "Request failed"

// ErrorKind classifies a RequestError.
type ErrorKind int

const (
	// KindTransport means the request never produced a response.
	KindTransport ErrorKind = iota
	// KindStatus means the backend answered with a non-2xx status.
	KindStatus
	// KindDecode means a 2xx body could not be parsed.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError is the single error shape returned by every Client operation.
// Error returns Message unchanged so it can be shown to the user as is.
type RequestError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// detailMessage extracts the backend's error detail from a JSON body.
// FastAPI validation failures send a list of objects with a msg field,
// those are joined.
func detailMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return DefaultErrorMessage
	}

	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String && detail.String() != "":
		return detail.String()
	case detail.IsArray():
		var msgs []string
		for _, m := range detail.Get("#.msg").Array() {
			if s := m.String(); s != "" {
				msgs = append(msgs, s)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	return DefaultErrorMessage
}
