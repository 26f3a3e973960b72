package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule  = "module"
	FieldNameSession = "session"
	FieldNameRegion  = "region"
	FieldNamePath    = "path"
	FieldNameMode    = "mode"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldSession 返回一个包含会话标识的 zap 字段。
func FieldSession(session string) zap.Field {
	return zap.String(FieldNameSession, session)
}

func FieldRegion(region string) zap.Field {
	return zap.String(FieldNameRegion, region)
}

func FieldPath(path string) zap.Field {
	return zap.String(FieldNamePath, path)
}

// FieldMode 标注当前是读还是写。
func FieldMode(mode string) zap.Field {
	return zap.String(FieldNameMode, mode)
}
