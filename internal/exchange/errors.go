package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient: rate limit, таймаут, 5xx. Ретраится клиентом.
	ErrTransient = errors.New("transient exchange error")
	// ErrRejected: биржа отказала, повтор не поможет.
	ErrRejected          = errors.New("order rejected")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidPrecision  = errors.New("invalid precision")
	// ErrDataUnavailable: пустые свечи, нет тикера, нет инструмента.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrPersistence: не смогли записать состояние. Фатально.
	ErrPersistence = errors.New("state persistence failed")
)

// APIError: ошибка с кодом OKX.
type APIError struct {
	Op   string
	Code string
	Msg  string
	Err  error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: code=%s msg=%s: %v", e.Op, e.Code, e.Msg, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is: нехватка средств и кривая точность: тоже отказ.
func (e *APIError) Is(target error) bool {
	if target == ErrRejected {
		return e.Err == ErrInsufficientFunds || e.Err == ErrInvalidPrecision || e.Err == ErrRejected
	}
	return false
}

// коды OKX, после которых имеет смысл повторить запрос
var transientCodes = map[string]struct{}{
	"50001": {}, // service temporarily unavailable
	"50004": {}, // endpoint request timeout
	"50011": {}, // rate limit
	"50013": {}, // system busy
	"50026": {}, // system error
	"50061": {}, // order rate limit
}

var insufficientCodes = map[string]struct{}{
	"51008": {},
	"51119": {},
	"51131": {},
}

var precisionCodes = map[string]struct{}{
	"51000": {}, // parameter error (px/sz)
	"51006": {},
	"51020": {},
	"51121": {},
	"51122": {},
}

// Classify сопоставляет код OKX с классом ошибки.
func Classify(code string) error {
	if _, ok := transientCodes[code]; ok {
		return ErrTransient
	}
	if _, ok := insufficientCodes[code]; ok {
		return ErrInsufficientFunds
	}
	if _, ok := precisionCodes[code]; ok {
		return ErrInvalidPrecision
	}
	return ErrRejected
}

func NewAPIError(op, code, msg string) *APIError {
	return &APIError{Op: op, Code: code, Msg: msg, Err: Classify(code)}
}

func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
func IsRejected(err error) bool  { return errors.Is(err, ErrRejected) }
