// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	// StructuralError 表示调用方的 Visit 实现与数据树结构不一致。
	StructuralError ErrorType = 0
	// FormatError 表示数据本身损坏或版本不兼容。
	FormatError ErrorType = 1
	// ContentionError 表示遍历过程中遇到了被占用的锁或借用。
	ContentionError ErrorType = 2
	// ExternalError 表示底层 IO 或调用方自定义错误。
	ExternalError ErrorType = 3
)

var ErrorTypeName = map[ErrorType]string{
	StructuralError: "structural_error",
	FormatError:     "format_error",
	ContentionError: "contention_error",
	ExternalError:   "external_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Region / node related
	ErrRegionAlreadyExists = newVisitError("region already exists", 100, StructuralError)
	ErrRegionDoesNotExist  = newVisitError("region does not exist", 101, StructuralError)
	ErrFieldAlreadyExists  = newVisitError("field already exists", 102, StructuralError)
	ErrFieldDoesNotExist   = newVisitError("field does not exist", 103, StructuralError)
	ErrInvalidCurrentNode  = newVisitError("invalid current node", 104, StructuralError)
	ErrNoActiveNode        = newVisitError("no active node", 105, StructuralError)

	// Encoding / version related
	ErrUnknownFieldType      = newVisitError("unknown field type", 200, FormatError)
	ErrFieldTypeDoesNotMatch = newVisitError("field type does not match", 201, FormatError)
	ErrTypeMismatch          = newVisitError("type mismatch", 202, FormatError)
	ErrNotSupportedFormat    = newVisitError("not supported format", 203, FormatError)
	ErrInvalidName           = newVisitError("invalid name", 204, FormatError)
	ErrUnexpectedRcNullIndex = newVisitError("unexpected rc null index", 205, FormatError)

	// Resource contention related
	ErrRefCellAlreadyMutableBorrowed = newVisitError("ref cell already mutable borrowed", 300, ContentionError)
	ErrPoisonedMutex                 = newVisitError("attempt to lock poisoned mutex", 301, ContentionError)

	// IO related
	ErrIo          = newVisitError("io error", 400, ExternalError)
	ErrCompression = newVisitError("compression error", 401, ExternalError)

	// User defined, composite types with invalid discriminants and similar
	ErrUser = newVisitError("user defined error", 500, ExternalError)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to visitError
	errUnexpected = newVisitError("unexpected error", (1<<16)-1, ExternalError)
)

type errorOption func(*visitError)

func WithDetail(detail string) errorOption {
	return func(err *visitError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *visitError) {
		err.errType = etype
	}
}

type visitError struct {
	msg     string
	detail  string
	errCode int32
	errType ErrorType
}

func newVisitError(msg string, code int32, etype ErrorType, options ...errorOption) visitError {
	err := visitError{
		msg:     msg,
		detail:  msg,
		errCode: code,
		errType: etype,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e visitError) code() int32 {
	return e.errCode
}

func (e visitError) Error() string {
	return e.msg
}

func (e visitError) Detail() string {
	return e.detail
}

func (e visitError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(visitError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

// Combine 将多个错误合并为一个，nil 会被过滤；全部为 nil 时返回 nil。
func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
