package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// csvHeader is the required header of a CSV cloudlet trace.
var csvHeader = []string{"cloudlet_id", "arrival_time", "length", "pes_required", "file_size", "output_size"}

// LoadCSV parses a typed cloudlet table and produces its items verbatim.
// maxItems caps the stream; zero means unlimited.
func LoadCSV(path string, maxItems int) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cloudlet trace: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var items []Item
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		item, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}

	if err := validate(items); err != nil {
		return nil, err
	}
	return NewSource(items), nil
}

func checkHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("csv header has %d columns, want %d", len(header), len(csvHeader))
	}
	for i, want := range csvHeader {
		if header[i] != want {
			return fmt.Errorf("csv header column %d is %q, want %q", i, header[i], want)
		}
	}
	return nil
}

func parseCSVRecord(record []string) (Item, error) {
	if len(record) != len(csvHeader) {
		return Item{}, fmt.Errorf("row has %d columns, want %d", len(record), len(csvHeader))
	}
	id, err := strconv.Atoi(record[0])
	if err != nil {
		return Item{}, fmt.Errorf("cloudlet_id: %w", err)
	}
	arrival, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return Item{}, fmt.Errorf("arrival_time: %w", err)
	}
	length, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return Item{}, fmt.Errorf("length: %w", err)
	}
	pes, err := strconv.Atoi(record[3])
	if err != nil {
		return Item{}, fmt.Errorf("pes_required: %w", err)
	}
	fileSize, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil {
		return Item{}, fmt.Errorf("file_size: %w", err)
	}
	outSize, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return Item{}, fmt.Errorf("output_size: %w", err)
	}
	return Item{
		ID:           id,
		ArrivalTime:  arrival,
		LengthMI:     length,
		PEs:          pes,
		FileSizeKB:   fileSize,
		OutputSizeKB: outSize,
	}, nil
}
