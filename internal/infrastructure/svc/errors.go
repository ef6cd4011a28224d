package svc

import "errors"

// ErrNoSymbols 错误：既没有配置交易对，自动发现也没有结果
var ErrNoSymbols = errors.New("no symbols to monitor")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
