package errors

import (
	stdErrors "errors"

	"studentdb/domain"
)

// Normalize 将领域层/基础设施层的错误规范化为 AppError。
//
// 注意：
//   - 如果传入的 err 已经是 IError，则原样返回；
//   - 未识别的错误保持原样，不强行包装，交由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	var repoErr *domain.RepositoryError
	if stdErrors.As(err, &repoErr) {
		switch {
		case stdErrors.Is(repoErr, domain.ErrEntityNotFound):
			return WrapError(err, ErrCodeNotFound, repoErr.Message)
		case stdErrors.Is(repoErr, domain.ErrRepositoryFailed):
			return WrapError(err, ErrCodeStorage, repoErr.Message)
		}
	}

	return err
}
