package usecase

import "fmt"

type ErrorCode string

const (
	ErrorUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrorWeatherUnavailable ErrorCode = "WEATHER_UNAVAILABLE"
	ErrorCityNotFound       ErrorCode = "CITY_NOT_FOUND"
	ErrorInternal           ErrorCode = "INTERNAL_ERROR"
)

const (
	apologyCityNotFound = "Sorry, I couldn't find weather information for this city. Please verify the city name."
	apologyGeneric      = "Sorry, there was a problem getting the weather information. Please try again later."
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage is the apology shown to end users for this error.
func (e *Error) UserMessage() string {
	if e != nil && e.Code == ErrorCityNotFound {
		return apologyCityNotFound
	}
	return apologyGeneric
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
