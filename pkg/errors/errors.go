package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code       uint16
	Name       string
	HTTPStatus int
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	HTTPStatus() int
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) HTTPStatus() int {
	return e.code.HTTPStatus
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type SaleMetadata struct {
	SaleKey string `json:"sale_key"`
}

type UnauthorizedMetadata struct {
	SaleKey string `json:"sale_key"`
	Caller  string `json:"caller"`
	Owner   string `json:"owner"`
}

type InsufficientFundsMetadata struct {
	SaleKey  string `json:"sale_key"`
	Price    string `json:"price"`
	Attached string `json:"attached"`
}

type InvalidDepositMetadata struct {
	Deposit string `json:"deposit"`
}

type InvalidAmountMetadata struct {
	Amount string `json:"amount"`
}

type SettlementMetadata struct {
	SettlementId string `json:"settlement_id"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", http.StatusInternalServerError}
var SALE_NOT_FOUND = Code[SaleMetadata]{1, "SALE_NOT_FOUND", http.StatusNotFound}
var SALE_ALREADY_EXISTS = Code[SaleMetadata]{2, "SALE_ALREADY_EXISTS", http.StatusConflict}
var UNAUTHORIZED = Code[UnauthorizedMetadata]{3, "UNAUTHORIZED", http.StatusForbidden}
var SELF_TRADE = Code[SaleMetadata]{4, "SELF_TRADE", http.StatusBadRequest}
var ZERO_PAYMENT = Code[SaleMetadata]{5, "ZERO_PAYMENT", http.StatusBadRequest}

var INSUFFICIENT_FUNDS = Code[InsufficientFundsMetadata]{
	6,
	"INSUFFICIENT_FUNDS",
	http.StatusBadRequest,
}

var INVALID_DEPOSIT = Code[InvalidDepositMetadata]{7, "INVALID_DEPOSIT", http.StatusBadRequest}
var INVALID_AMOUNT = Code[InvalidAmountMetadata]{8, "INVALID_AMOUNT", http.StatusBadRequest}

var SETTLEMENT_NOT_FOUND = Code[SettlementMetadata]{
	9,
	"SETTLEMENT_NOT_FOUND",
	http.StatusNotFound,
}
