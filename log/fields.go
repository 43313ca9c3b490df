package log

import (
	"net/netip"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ByteField logs data as a string when printable, raw bytes otherwise.
func ByteField(key string, data []byte) zap.Field {
	if utf8.Valid(data) {
		return zap.ByteString(key, data)
	} else {
		return zap.Binary(key, data)
	}
}

func Addr(ip netip.Addr) zap.Field {
	return zap.Stringer("ip", ip)
}

func Stage(stage string) zap.Field {
	return zap.String("stage", stage)
}

type elapsed struct {
	t   time.Time
	key string
}

func (v *elapsed) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddDuration(v.key, time.Since(v.t))
	return nil
}

// Elapsed captures time.Now and, when finally logged, records the time
// passed since.
func Elapsed(key string) zap.Field {
	return zap.Inline(&elapsed{
		t:   time.Now(),
		key: key,
	})
}
