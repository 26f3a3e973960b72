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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码，nil 返回 0。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	if specificErr, ok := cause.(visitError); ok {
		return specificErr.code()
	}
	var caused causedError
	if errors.As(err, &caused) {
		return caused.code()
	}
	return errUnexpected.code()
}

// GetErrorType 返回错误所属的分类，未知错误归为 ExternalError。
func GetErrorType(err error) ErrorType {
	if merr, ok := errors.Cause(err).(visitError); ok {
		return merr.errType
	}
	var caused causedError
	if errors.As(err, &caused) {
		return caused.errType
	}
	return ExternalError
}

// IsStructural 判断错误是否由 Visit 实现与数据树结构不一致引起。
func IsStructural(err error) bool {
	return err != nil && GetErrorType(err) == StructuralError
}

// IsIoErr 判断错误是否来自底层读写。
func IsIoErr(err error) bool {
	return errors.Is(err, ErrIo)
}

// Region 相关错误封装。
func WrapErrRegionAlreadyExists(name string, msg ...string) error {
	err := wrapFields(ErrRegionAlreadyExists, value("region", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrRegionDoesNotExist(name string, msg ...string) error {
	err := wrapFields(ErrRegionDoesNotExist, value("region", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidCurrentNode(node any, msg ...string) error {
	err := wrapFields(ErrInvalidCurrentNode, value("node", node))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrNoActiveNode(msg ...string) error {
	err := error(ErrNoActiveNode)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Field 相关错误封装。
func WrapErrFieldAlreadyExists(name string, msg ...string) error {
	err := wrapFields(ErrFieldAlreadyExists, value("field", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrFieldDoesNotExist(name string, msg ...string) error {
	err := wrapFields(ErrFieldDoesNotExist, value("field", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrFieldTypeDoesNotMatch(name string, expected, actual any, msg ...string) error {
	err := wrapFields(ErrFieldTypeDoesNotMatch,
		value("field", name),
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// 编码相关错误封装。
func WrapErrUnknownFieldType(tag uint8, msg ...string) error {
	err := wrapFields(ErrUnknownFieldType, value("tag", tag))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeMismatch(id uint64, expected, actual any, msg ...string) error {
	err := wrapFields(ErrTypeMismatch,
		value("id", id),
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrNotSupportedFormat(magic any, msg ...string) error {
	err := wrapFields(ErrNotSupportedFormat, value("magic", magic))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidName(name string, reason string) error {
	return wrapFieldsWithDesc(ErrInvalidName, reason, value("name", name))
}

func WrapErrUnexpectedRcNullIndex(name string, msg ...string) error {
	err := wrapFields(ErrUnexpectedRcNullIndex, value("region", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// 锁与借用相关错误封装。
func WrapErrRefCellAlreadyMutableBorrowed(name string, msg ...string) error {
	err := wrapFields(ErrRefCellAlreadyMutableBorrowed, value("field", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPoisonedMutex(name string, msg ...string) error {
	err := wrapFields(ErrPoisonedMutex, value("field", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// WrapErrIo 为底层 IO 错误打上 ErrIo 标记，保留原始 cause。
func WrapErrIo(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return wrapCause(ErrIo, cause, value("op", op))
}

func WrapErrCompression(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return wrapCause(ErrCompression, cause, value("op", op))
}

// WrapErrUser 用于自定义 Visit 实现报告的错误，例如非法的判别值。
func WrapErrUser(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrUser, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// causedError 在保留错误码的同时保留底层 cause，使 errors.Is 对两者都成立。
type causedError struct {
	visitError
	cause error
}

func (e causedError) Error() string {
	return e.msg + ": " + e.cause.Error()
}

func (e causedError) Unwrap() error {
	return e.cause
}

func wrapCause(target visitError, cause error, fields ...errorField) error {
	for i := range fields {
		target.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	target.detail = target.msg
	return causedError{visitError: target, cause: cause}
}

func wrapFields(err visitError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err visitError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
