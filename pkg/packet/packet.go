// Package packet декодирует кадры датчика ЭКГ в отсчеты АЦП.
//
// Поддерживаются два формата:
//   - ble: уведомление BLE из 4 байт с двумя 16-битными отсчетами
//     [lo1 hi1 lo0 hi0]; отсчет 0 (байты 2,3) идет раньше отсчета 1 (байты 0,1);
//   - packed11: пары 11-битных отсчетов в 3 байтах
//     [A7..A0] [A10 A9 A8 0 0 B10 B9 B8] [B7..B0], последний непарный
//     отсчет занимает 2 байта.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Format - формат кадра
type Format string

const (
	FormatBLE      Format = "ble"
	FormatPacked11 Format = "packed11"
)

const (
	bleFrameSize = 4
	packedPair   = 3
	max11Bit     = 0x7FF
)

var (
	ErrUnknownFormat = errors.New("unknown frame format")
	ErrFrameLength   = errors.New("invalid frame length")
	ErrSampleRange   = errors.New("sample does not fit in 11 bits")
)

// ParseFormat разбирает имя формата из конфигурации или metadata
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatBLE, "":
		return FormatBLE, nil
	case FormatPacked11:
		return FormatPacked11, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Decode декодирует буфер в отсчеты в порядке подачи в детектор
func Decode(format Format, buf []byte) ([]float64, error) {
	switch format {
	case FormatBLE:
		return DecodeBLE(buf)
	case FormatPacked11:
		return DecodePacked11(buf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Encode кодирует отсчеты в буфер указанного формата
func Encode(format Format, samples []uint16) ([]byte, error) {
	switch format {
	case FormatBLE:
		return EncodeBLE(samples)
	case FormatPacked11:
		return EncodePacked11(samples)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeBLE декодирует один или несколько склеенных 4-байтовых кадров
func DecodeBLE(buf []byte) ([]float64, error) {
	if len(buf) == 0 || len(buf)%bleFrameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes, expected multiple of %d", ErrFrameLength, len(buf), bleFrameSize)
	}

	out := make([]float64, 0, len(buf)/2)
	for i := 0; i < len(buf); i += bleFrameSize {
		frame := buf[i : i+bleFrameSize]
		out = append(out,
			float64(binary.LittleEndian.Uint16(frame[2:4])),
			float64(binary.LittleEndian.Uint16(frame[0:2])),
		)
	}
	return out, nil
}

// EncodeBLE упаковывает четное количество отсчетов в BLE кадры
func EncodeBLE(samples []uint16) ([]byte, error) {
	if len(samples) == 0 || len(samples)%2 != 0 {
		return nil, fmt.Errorf("%w: %d samples, expected even count", ErrFrameLength, len(samples))
	}

	out := make([]byte, len(samples)*2)
	for i := 0; i < len(samples); i += 2 {
		frame := out[i*2 : i*2+bleFrameSize]
		binary.LittleEndian.PutUint16(frame[2:4], samples[i])
		binary.LittleEndian.PutUint16(frame[0:2], samples[i+1])
	}
	return out, nil
}

// DecodePacked11 распаковывает сжатую запись с 11-битными отсчетами
func DecodePacked11(buf []byte) ([]float64, error) {
	if len(buf) == 0 || len(buf)%packedPair == 1 {
		return nil, fmt.Errorf("%w: %d bytes of packed11 data", ErrFrameLength, len(buf))
	}

	out := make([]float64, 0, len(buf)*2/3+1)
	i := 0
	for ; i+packedPair <= len(buf); i += packedPair {
		shared := uint16(buf[i+1])
		a := (shared>>5)<<8 | uint16(buf[i])
		b := (shared&0x07)<<8 | uint16(buf[i+2])
		out = append(out, float64(a), float64(b))
	}
	if rest := len(buf) - i; rest == 2 {
		a := (uint16(buf[i+1])>>5)<<8 | uint16(buf[i])
		out = append(out, float64(a))
	}
	return out, nil
}

// EncodePacked11 сжимает 11-битные отсчеты
func EncodePacked11(samples []uint16) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrFrameLength)
	}

	out := make([]byte, 0, len(samples)*3/2+1)
	for i := 0; i < len(samples); i += 2 {
		a := samples[i]
		if a > max11Bit {
			return nil, fmt.Errorf("%w: %d", ErrSampleRange, a)
		}
		if i+1 == len(samples) {
			out = append(out, byte(a), byte(a>>8)<<5)
			break
		}

		b := samples[i+1]
		if b > max11Bit {
			return nil, fmt.Errorf("%w: %d", ErrSampleRange, b)
		}
		out = append(out, byte(a), byte(a>>8)<<5|byte(b>>8), byte(b))
	}
	return out, nil
}

// FrameSize возвращает размер минимального кадра формата в байтах
func FrameSize(format Format) int {
	if format == FormatPacked11 {
		return packedPair
	}
	return bleFrameSize
}
