package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// moduleLog 带 module 字段的子 logger，每次取用以跟随全局配置
func moduleLog(module string) *zerolog.Logger {
	l := log.With().Str("module", module).Logger()
	return &l
}
