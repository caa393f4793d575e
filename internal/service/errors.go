package service

import "errors"

// 业务层错误，handler 据此映射 HTTP 状态码。
// 越权访问一律表现为"不存在"，不向调用方泄露跨租户资源的存在性。
var (
	ErrNotFound             = errors.New("资源不存在或无权访问")
	ErrAgentDisabled        = errors.New("智能体已停用")
	ErrInvalidInput         = errors.New("请求参数不合法")
	ErrUnsupportedMediaType = errors.New("不支持的文件类型")
)
