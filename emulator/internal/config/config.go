package config

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

// Режимы отправки и источники сигнала
const (
	ModeGRPC = "grpc"
	ModeNATS = "nats"
	ModeFile = "file"

	SourceSynthetic = "synthetic"
	SourceCSV       = "csv"
)

var ErrInvalidConfig = errors.New("invalid emulator configuration")

// Config - параметры эмулятора датчика ЭКГ
type Config struct {
	Emulator EmulatorConfig
	Signal   SignalConfig
	Output   OutputConfig
}

// EmulatorConfig - темп и длительность потока
type EmulatorConfig struct {
	Duration     time.Duration // 0 - до конца записи или до остановки
	BatchSamples int           // Отсчетов в одном сообщении
	Realtime     bool          // Выдерживать темп частоты дискретизации
	Loop         bool          // Повторять запись CSV по кругу
}

// SignalConfig - источник сигнала
type SignalConfig struct {
	Source     string // synthetic | csv
	CSVFile    string
	SampleRate float64
	BPM        float64
	Noise      float64
	Seed       int64
}

// OutputConfig - куда отправлять отсчеты
type OutputConfig struct {
	Mode        string // grpc | nats | file
	ServerAddr  string
	NATSURL     string
	WaveSubject string
	SessionID   string
	FrameFormat string // ble | packed11
	FilePath    string
}

// Load разбирает параметры командной строки
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("emulator", flag.ContinueOnError)

	mode := fs.String("mode", ModeGRPC, "Способ отправки: grpc, nats или file")
	server := fs.String("server", "localhost:50051", "Адрес gRPC сервера приемника")
	natsURL := fs.String("nats", "nats://127.0.0.1:4222", "Адрес NATS")
	subject := fs.String("subject", "ecg.wave.*", "Тема волны, '*' заменяется на ID сессии")
	session := fs.String("session", "emulator-1", "ID сессии")
	format := fs.String("format", "ble", "Формат кадра: ble или packed11")
	out := fs.String("out", "ecg_record.csv", "Файл записи в режиме file")

	source := fs.String("source", SourceSynthetic, "Источник сигнала: synthetic или csv")
	csvFile := fs.String("csv", "ecg.csv", "Файл записи (time,value)")
	rate := fs.Float64("fs", 360, "Частота дискретизации, Гц")
	bpm := fs.Float64("bpm", 75, "ЧСС синтетического сигнала")
	noise := fs.Float64("noise", 0, "СКО шума синтетического сигнала")
	seed := fs.Int64("seed", 1, "Seed генератора шума")

	duration := fs.String("duration", "0s", "Длительность работы, 0 - без ограничения")
	batch := fs.Int("batch", 36, "Отсчетов в сообщении")
	realtime := fs.Bool("realtime", true, "Отправлять в темпе частоты дискретизации")
	loop := fs.Bool("loop", false, "Повторять запись CSV")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	dur, err := time.ParseDuration(*duration)
	if err != nil {
		return nil, fmt.Errorf("%w: duration: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		Emulator: EmulatorConfig{
			Duration:     dur,
			BatchSamples: *batch,
			Realtime:     *realtime,
			Loop:         *loop,
		},
		Signal: SignalConfig{
			Source:     *source,
			CSVFile:    *csvFile,
			SampleRate: *rate,
			BPM:        *bpm,
			Noise:      *noise,
			Seed:       *seed,
		},
		Output: OutputConfig{
			Mode:        *mode,
			ServerAddr:  *server,
			NATSURL:     *natsURL,
			WaveSubject: *subject,
			SessionID:   *session,
			FrameFormat: *format,
			FilePath:    *out,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	switch c.Output.Mode {
	case ModeGRPC, ModeNATS:
	case ModeFile:
		if c.Output.FilePath == "" {
			return fmt.Errorf("%w: empty output file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Output.Mode)
	}

	switch c.Signal.Source {
	case SourceSynthetic, SourceCSV:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Signal.Source)
	}

	if c.Output.SessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidConfig)
	}
	if !(c.Signal.SampleRate > 0) {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, c.Signal.SampleRate)
	}
	// BLE кадр несет ровно два отсчета
	if c.Emulator.BatchSamples <= 0 || c.Emulator.BatchSamples%2 != 0 {
		return fmt.Errorf("%w: batch must be a positive even number, got %d", ErrInvalidConfig, c.Emulator.BatchSamples)
	}
	if c.Emulator.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}
