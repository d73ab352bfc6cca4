// Package csvreader читает записи ЭКГ в формате CSV (time,value).
package csvreader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrNoData = errors.New("csv has no data records")

type DataPoint struct {
	TimeSec float64
	Value   float64
}

// ReadCSVFile читает файл записи
func ReadCSVFile(filename string) ([]DataPoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file %s: %w", filename, err)
	}
	defer file.Close()

	points, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return points, nil
}

// ReadCSV читает записи time,value. Первая строка считается заголовком, если она не число.
func ReadCSV(r io.Reader) ([]DataPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][0]), 64); err != nil {
			records = records[1:] // Skip header
		}
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	dataPoints := make([]DataPoint, 0, len(records))
	for i, record := range records {
		if len(record) < 2 {
			return nil, fmt.Errorf("invalid record at line %d: expected 2 columns", i+2)
		}

		timeSec, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid time format at line %d: %w", i+2, err)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value format at line %d: %w", i+2, err)
		}

		dataPoints = append(dataPoints, DataPoint{
			TimeSec: timeSec,
			Value:   value,
		})
	}

	return dataPoints, nil
}

// Values возвращает значения отсчетов
func Values(points []DataPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// EstimateSampleRate оценивает частоту дискретизации по столбцу времени
func EstimateSampleRate(points []DataPoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	span := points[len(points)-1].TimeSec - points[0].TimeSec
	if !(span > 0) {
		return 0, false
	}
	return float64(len(points)-1) / span, true
}
