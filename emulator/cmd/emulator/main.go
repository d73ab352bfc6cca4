package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Krimson/ecg-monitory/emulator/internal/config"
	"github.com/Krimson/ecg-monitory/emulator/internal/csvreader"
	"github.com/Krimson/ecg-monitory/emulator/internal/emulator"
	"github.com/Krimson/ecg-monitory/emulator/internal/senders"
	"github.com/Krimson/ecg-monitory/emulator/internal/source"
	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
	"github.com/Krimson/ecg-monitory/pkg/packet"
	"github.com/Krimson/ecg-monitory/pkg/wave"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	format, err := packet.ParseFormat(cfg.Output.FrameFormat)
	if err != nil {
		log.Fatalf("Ошибка формата кадра: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Обработка сигналов для graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received shutdown signal...")
		cancel()
	}()

	// Источник сигнала
	var src source.Source
	sampleRate := cfg.Signal.SampleRate
	switch cfg.Signal.Source {
	case config.SourceCSV:
		points, err := csvreader.ReadCSVFile(cfg.Signal.CSVFile)
		if err != nil {
			log.Fatalf("Failed to read ECG data: %v", err)
		}
		if rate, ok := csvreader.EstimateSampleRate(points); ok {
			log.Printf("Loaded %d records, estimated sample rate %.1f Hz (sending at %.0f Hz)", len(points), rate, sampleRate)
		}
		src, err = source.NewReplay(csvreader.Values(points), cfg.Emulator.Loop)
		if err != nil {
			log.Fatalf("Failed to create replay source: %v", err)
		}
	default:
		simCfg := ecgsim.DefaultConfig()
		simCfg.SampleRate = sampleRate
		simCfg.BPM = cfg.Signal.BPM
		simCfg.Noise = cfg.Signal.Noise
		simCfg.Seed = cfg.Signal.Seed
		if format == packet.FormatPacked11 {
			// 11-битный АЦП
			simCfg.Baseline = 1024
			simCfg.Amplitude = 700
		}
		src, err = source.NewSynthetic(simCfg)
		if err != nil {
			log.Fatalf("Failed to create synthetic source: %v", err)
		}
	}

	// Отправитель
	var sender senders.DataSender
	switch cfg.Output.Mode {
	case config.ModeNATS:
		nc, err := wave.Connect(cfg.Output.NATSURL, "ecg-emulator")
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Drain()
		natsSender := senders.NewNATSSender(nc, cfg.Output.WaveSubject, cfg.Output.SessionID)
		log.Printf("Publishing wave to %s", natsSender.Subject())
		sender = natsSender
	case config.ModeFile:
		sender, err = senders.NewFileSender(cfg.Output.FilePath, format, sampleRate)
		if err != nil {
			log.Fatalf("Failed to create file sender: %v", err)
		}
		log.Printf("Writing record to %s", cfg.Output.FilePath)
	default:
		sender, err = senders.NewGRPCSender(ctx, cfg.Output.ServerAddr, cfg.Output.SessionID, format)
		if err != nil {
			log.Fatalf("Failed to create gRPC client: %v", err)
		}
		log.Printf("Streaming %s frames to %s, session %s", format, cfg.Output.ServerAddr, cfg.Output.SessionID)
	}

	// Создание и запуск эмулятора
	emu := emulator.NewEmulator(src, sender, cfg.Emulator, sampleRate)
	sent, err := emu.Run(ctx)
	if err != nil {
		log.Printf("Ошибка работы эмулятора: %v", err)
	}

	if err := sender.Close(); err != nil {
		log.Printf("Failed to close sender: %v", err)
	}
	m := sender.Metrics()
	log.Printf("Sent %d samples in %d messages (%d failed, %d bytes), acked samples: %d",
		sent, m.TotalSent, m.TotalFailed, m.BytesTransferred, m.AckedSamples)
	log.Println("Application stopped gracefully")
}
