package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误分类 ──
// 业务错误统一归入以下四类，Handler 层据此映射 HTTP 状态码

var (
	ErrValidation = errors.New("参数校验失败")
	ErrConflict   = errors.New("状态冲突")
	ErrForbidden  = errors.New("无权限执行该操作")
	ErrNotFound   = errors.New("资源不存在")
)

// Error 带分类的业务错误
type Error struct {
	Kind    error
	Message string
}

// New 创建一个归属于 kind 分类的业务错误
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Unwrap 使 errors.Is(err, ErrConflict) 等分类判断成立
func (e *Error) Unwrap() error { return e.Kind }

// AlreadyClaimedError 申请已被他人认领，携带当前持有人
type AlreadyClaimedError struct {
	Holder     string
	HolderName string
}

// ErrAlreadyClaimed 用于 errors.Is 判断
var ErrAlreadyClaimed = New(ErrConflict, "申请已被认领")

func (e *AlreadyClaimedError) Error() string {
	name := e.HolderName
	if name == "" {
		name = e.Holder
	}
	return fmt.Sprintf("申请已被 %s 认领", name)
}

func (e *AlreadyClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed || target == ErrConflict
}

// Kind 返回错误所属分类，无分类时返回 nil
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrConflict, ErrForbidden, ErrNotFound} {
		if errors.Is(err, k) {
			return k
		}
	}
	if errors.Is(err, ErrOptimisticLock) {
		return ErrConflict
	}
	return nil
}
