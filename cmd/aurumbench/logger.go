package main

import (
	"github.com/ivancb/aurumecs"
	"github.com/ivancb/aurumecs/ecs/telemetry"
	"go.uber.org/zap"
)

func newECSLogger(l *zap.Logger) ecs.Logger {
	return telemetry.NewZapLogger(l)
}
