// Package wave кодирует волну ЭКГ для NATS: отсчеты float32 little-endian подряд.
package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrLength - длина сообщения не кратна 4 байтам
var ErrLength = errors.New("wave payload length is not a multiple of 4")

// Encode упаковывает отсчеты в float32 little-endian
func Encode(values []float64) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

// Decode распаковывает float32 little-endian отсчеты
func Decode(data []byte) ([]float64, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrLength, len(data))
	}

	values := make([]float64, len(data)/4)
	for i := range values {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		values[i] = float64(math.Float32frombits(bits))
	}
	return values, nil
}

// Subject собирает тему волны сессии из шаблона подписки (ecg.wave.* -> ecg.wave.<id>)
func Subject(pattern, sessionID string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(pattern, ".*"), ".>")
	return base + "." + sessionID
}
