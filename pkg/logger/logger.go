package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerParams struct {
	fx.In
	Lc        fx.Lifecycle
	AppConfig *config.AppConfig
	Telemetry telemetry.Telemetry `optional:"true"`
}

// NewLogger builds the process logger. With telemetry enabled every record is
// also emitted to the OpenTelemetry log pipeline, tagged with the service name.
func NewLogger(p LoggerParams) *zap.Logger {
	cfg := buildConfig(p.AppConfig.LogLevel)
	if p.Telemetry == nil || p.Telemetry.GetLogger() == nil {
		return buildOrExample(cfg)
	}

	loggerCtx, cancel := context.WithCancel(context.Background())
	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})

	lg, err := cfg.Build(
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return &telemetryCore{
				Core:  core,
				telem: p.Telemetry,
				ctx:   loggerCtx,
				attrsBase: []attribute.KeyValue{
					attribute.String("service.name", p.AppConfig.ServiceName),
				},
			}
		}),
		zap.AddCaller(),
	)
	if err != nil {
		return buildOrExample(cfg)
	}
	lg.Debug("Forwarding logs to OpenTelemetry", zap.String("endpoint", p.AppConfig.OtlpEndpoint))
	return lg
}

func buildOrExample(cfg zap.Config) *zap.Logger {
	lg, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return lg
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// buildConfig picks the development encoder for interactive levels and the
// production (JSON) encoder once the operator only wants warnings.
func buildConfig(levelName string) zap.Config {
	level := parseLevel(levelName)

	var cfg zap.Config
	if level > zapcore.InfoLevel {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg
}

// telemetryCore decorates a zapcore.Core to emit both through the original core
// and into OpenTelemetry, converting each zap.Field into an attribute.
type telemetryCore struct {
	zapcore.Core
	telem     telemetry.Telemetry
	ctx       context.Context
	attrsBase []attribute.KeyValue
}

func (t *telemetryCore) With(fields []zapcore.Field) zapcore.Core {
	return &telemetryCore{
		Core:      t.Core.With(fields),
		telem:     t.telem,
		ctx:       t.ctx,
		attrsBase: t.attrsBase,
	}
}

func (t *telemetryCore) Check(ent zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if t.Enabled(ent.Level) {
		return checked.AddCore(ent, t)
	}
	return checked
}

func (t *telemetryCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if err := t.Core.Write(ent, fields); err != nil {
		return err
	}

	rec := log.Record{}
	rec.SetTimestamp(ent.Time)
	rec.SetBody(log.StringValue(ent.Message))
	rec.SetSeverityText(ent.Level.String())

	attrs := make([]attribute.KeyValue, 0, len(fields)+len(t.attrsBase))
	attrs = append(attrs, t.attrsBase...)
	for _, f := range fields {
		attrs = append(attrs, fieldToAttribute(f))
	}

	for _, attr := range attrs {
		rec.AddAttributes(log.KeyValueFromAttribute(attr))
	}

	t.telem.GetLogger().Emit(t.ctx, rec)
	return nil
}

func fieldToAttribute(f zapcore.Field) attribute.KeyValue {
	switch f.Type {
	case zapcore.BoolType:
		return attribute.Bool(f.Key, f.Integer != 0)
	case zapcore.Float64Type, zapcore.Float32Type:
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		if v, ok := enc.Fields[f.Key].(float64); ok {
			return attribute.Float64(f.Key, v)
		}
		if v, ok := enc.Fields[f.Key].(float32); ok {
			return attribute.Float64(f.Key, float64(v))
		}
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type,
		zapcore.DurationType:
		return attribute.Int64(f.Key, f.Integer)
	case zapcore.StringType:
		return attribute.String(f.Key, f.String)
	case zapcore.ErrorType:
		if errVal, ok := f.Interface.(error); ok {
			return attribute.String(f.Key, errVal.Error())
		}
	}
	if f.Interface != nil {
		return attribute.String(f.Key, fmt.Sprint(f.Interface))
	}
	return attribute.String(f.Key, f.String)
}
