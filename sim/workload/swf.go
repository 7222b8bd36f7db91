package workload

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// SWF field indices (Standard Workload Format, 18 whitespace-separated
// columns). Only the columns the simulator needs are named.
const (
	swfFieldJobID          = 0
	swfFieldSubmitTime     = 1
	swfFieldRunTime        = 3
	swfFieldAllocatedProcs = 4
	swfFieldRequestedProcs = 7
	swfMinFields           = 8
)

// SWFOptions controls SWF replay.
type SWFOptions struct {
	// MaxItems caps the number of produced cloudlets; zero means unlimited.
	MaxItems int
	// ReaderMips converts runtime seconds to a length in MI.
	ReaderMips float64
	// MaxCloudletPEs bounds pes_required per cloudlet. Jobs above the bound
	// are split into siblings when SplitLarge is set, dropped otherwise.
	MaxCloudletPEs int
	SplitLarge     bool
}

// LoadSWF parses an SWF workload trace. Each record becomes a cloudlet at
// its submit-time offset with length = runtime × ReaderMips, rounded.
func LoadSWF(path string, opts SWFOptions) (*Source, error) {
	if opts.ReaderMips <= 0 {
		return nil, fmt.Errorf("swf reader mips must be positive, got %v", opts.ReaderMips)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open swf trace: %w", err)
	}
	defer file.Close()

	var items []Item
	dropped := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		rec, ok, err := parseSWFLine(text, opts.ReaderMips)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}

		if rec.PEs > opts.MaxCloudletPEs && opts.MaxCloudletPEs > 0 {
			if !opts.SplitLarge {
				dropped++
				continue
			}
			items = append(items, splitItem(rec, opts.MaxCloudletPEs)...)
		} else {
			items = append(items, rec)
		}
		if opts.MaxItems > 0 && len(items) >= opts.MaxItems {
			items = items[:opts.MaxItems]
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read swf trace: %w", err)
	}
	if dropped > 0 {
		logrus.Warnf("swf: dropped %d jobs exceeding %d pes", dropped, opts.MaxCloudletPEs)
	}

	if err := validate(items); err != nil {
		return nil, err
	}
	return NewSource(items), nil
}

// parseSWFLine parses one SWF record. Records with unknown (-1) runtime or
// zero work are skipped, not errors: archive traces routinely contain them.
func parseSWFLine(text string, readerMips float64) (Item, bool, error) {
	fields := strings.Fields(text)
	if len(fields) < swfMinFields {
		return Item{}, false, fmt.Errorf("record has %d fields, want at least %d", len(fields), swfMinFields)
	}
	jobID, err := strconv.Atoi(fields[swfFieldJobID])
	if err != nil {
		return Item{}, false, fmt.Errorf("job id: %w", err)
	}
	submit, err := strconv.ParseFloat(fields[swfFieldSubmitTime], 64)
	if err != nil {
		return Item{}, false, fmt.Errorf("submit time: %w", err)
	}
	runtime, err := strconv.ParseFloat(fields[swfFieldRunTime], 64)
	if err != nil {
		return Item{}, false, fmt.Errorf("run time: %w", err)
	}
	procs, err := strconv.Atoi(fields[swfFieldAllocatedProcs])
	if err != nil {
		return Item{}, false, fmt.Errorf("allocated processors: %w", err)
	}
	if procs <= 0 {
		procs, err = strconv.Atoi(fields[swfFieldRequestedProcs])
		if err != nil {
			return Item{}, false, fmt.Errorf("requested processors: %w", err)
		}
	}
	if runtime <= 0 || procs <= 0 {
		return Item{}, false, nil
	}
	length := int64(math.Round(runtime * readerMips))
	if length <= 0 {
		return Item{}, false, nil
	}
	return Item{
		ID:          jobID,
		ArrivalTime: submit,
		LengthMI:    length,
		PEs:         procs,
	}, true, nil
}

// splitItem breaks an oversized job into sibling cloudlets, each within the
// PE bound, sharing the original job id as their id prefix.
func splitItem(rec Item, maxPEs int) []Item {
	var siblings []Item
	remaining := rec.PEs
	for j := 0; remaining > 0; j++ {
		pes := remaining
		if pes > maxPEs {
			pes = maxPEs
		}
		siblings = append(siblings, Item{
			ID:           rec.ID*1000 + j,
			ArrivalTime:  rec.ArrivalTime,
			LengthMI:     rec.LengthMI,
			PEs:          pes,
			FileSizeKB:   rec.FileSizeKB,
			OutputSizeKB: rec.OutputSizeKB,
		})
		remaining -= pes
	}
	return siblings
}
