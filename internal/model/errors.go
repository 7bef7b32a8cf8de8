package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownItem 商品 id 不在目录中
	ErrUnknownItem = errors.New("unknown item")
	// ErrUnknownUser 只读查询的用户不存在（推荐与标签点击不会返回它）
	ErrUnknownUser = errors.New("unknown user")
	// ErrNotInitialized 目录或用户库尚未成功加载
	ErrNotInitialized = errors.New("recommender not initialized")
)

// DataFormatError 表示目录或画像源数据整体不可用，初始化应当失败
type DataFormatError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	msg := fmt.Sprintf("data format error in %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// IsDataFormatError 判断错误链中是否有 DataFormatError
func IsDataFormatError(err error) bool {
	var dfe *DataFormatError
	return errors.As(err, &dfe)
}
