package bingx

import "errors"

var (
	// ErrAPI 接口返回 code != 0
	ErrAPI = errors.New("bingx api error")
	// ErrNoData 接口返回成功但没有数据
	ErrNoData = errors.New("bingx api returned no data")
)

// ErrTrailingData 一帧里 JSON 之后还有多余内容
var ErrTrailingData = errors.New("trailing data after json value")
