// Package importer extracts schedule rows from uploaded workbooks.
package importer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"progman-api/internal/datecalc"
	"progman-api/internal/dto"
)

// DefaultMaxHeaderScan is how many leading rows of a sheet are searched for the header
const DefaultMaxHeaderScan = 50

// ErrNoHeader is returned when no sheet has a recognizable header row
var ErrNoHeader = errors.New("no sheet with an item column and a start or duration column")

// Column keys of Result.Columns
const (
	ColumnItem     = "item"
	ColumnStart    = "start"
	ColumnEnd      = "end"
	ColumnDuration = "duration"
	ColumnOwner    = "owner"
	ColumnCategory = "category"
)

var headerNames = map[string][]string{
	ColumnItem:     {"item", "task", "項目", "タスク", "工程", "作業"},
	ColumnStart:    {"start", "start date", "startdate", "開始日", "開始"},
	ColumnEnd:      {"end", "end date", "enddate", "終了日", "終了"},
	ColumnDuration: {"duration", "days", "日数", "期間", "工期"},
	ColumnOwner:    {"owner", "assignee", "担当", "担当者"},
	ColumnCategory: {"category", "カテゴリ", "区分"},
}

// Options control parsing
type Options struct {
	// BaseYear completes dates written as M/D. Zero means the current year.
	BaseYear      int
	MaxHeaderScan int
}

// Result is the sheet that produced the most rows
type Result struct {
	Sheet   string
	Columns map[string]int
	Rows    []dto.ImportRow
	Skipped int
}

// Parse reads a workbook and returns the rows of its best sheet
func Parse(r io.Reader, opts Options) (*Result, error) {
	if opts.MaxHeaderScan <= 0 {
		opts.MaxHeaderScan = DefaultMaxHeaderScan
	}
	if opts.BaseYear == 0 {
		opts.BaseYear = time.Now().Year()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var best *Result
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		res := parseSheet(rows, opts)
		if res == nil {
			continue
		}
		res.Sheet = sheet
		if best == nil || len(res.Rows) > len(best.Rows) {
			best = res
		}
	}
	if best == nil {
		return nil, ErrNoHeader
	}
	return best, nil
}

func parseSheet(rows [][]string, opts Options) *Result {
	headerIdx, columns := findHeader(rows, opts.MaxHeaderScan)
	if headerIdx < 0 {
		return nil
	}

	res := &Result{Columns: columns, Rows: []dto.ImportRow{}}
	for _, row := range rows[headerIdx+1:] {
		item := cell(row, columns, ColumnItem)
		if item == "" {
			res.Skipped++
			continue
		}

		start := parseDate(cell(row, columns, ColumnStart), opts.BaseYear)
		duration := parseDuration(cell(row, columns, ColumnDuration))
		if duration == nil && start != nil {
			if end := parseDate(cell(row, columns, ColumnEnd), opts.BaseYear); end != nil {
				if diff, err := datecalc.DaysBetween(*start, *end); err == nil {
					d := max(diff+1, 1)
					duration = &d
				}
			}
		}
		if duration == nil && start != nil {
			one := 1
			duration = &one
		}

		res.Rows = append(res.Rows, dto.ImportRow{
			Category:  cell(row, columns, ColumnCategory),
			Item:      item,
			Owner:     optional(cell(row, columns, ColumnOwner)),
			StartDate: start,
			Duration:  duration,
		})
	}
	return res
}

// findHeader returns the first row naming an item column and either a start or a duration column
func findHeader(rows [][]string, limit int) (int, map[string]int) {
	for i := 0; i < len(rows) && i < limit; i++ {
		columns := map[string]int{}
		for idx, raw := range rows[i] {
			key := strings.ToLower(strings.TrimSpace(raw))
			if key == "" {
				continue
			}
			for column, names := range headerNames {
				if _, seen := columns[column]; seen {
					continue
				}
				for _, name := range names {
					if key == name {
						columns[column] = idx
						break
					}
				}
			}
		}
		_, hasItem := columns[ColumnItem]
		_, hasStart := columns[ColumnStart]
		_, hasDuration := columns[ColumnDuration]
		if hasItem && (hasStart || hasDuration) {
			return i, columns
		}
	}
	return -1, nil
}

func cell(row []string, columns map[string]int, column string) string {
	idx, ok := columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var (
	monthDay     = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
	yearMonthDay = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
	nonNumeric   = regexp.MustCompile(`[^\d.-]`)
)

// parseDate accepts Excel serial numbers, YYYY/M/D, YYYY-M-D and M/D
func parseDate(raw string, baseYear int) *string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ".", "/")
	if s == "" {
		return nil
	}

	var out string
	if m := monthDay.FindStringSubmatch(s); m != nil {
		out = fmt.Sprintf("%04d-%s-%s", baseYear, pad(m[1]), pad(m[2]))
	} else if m := yearMonthDay.FindStringSubmatch(s); m != nil {
		out = fmt.Sprintf("%s-%s-%s", m[1], pad(m[2]), pad(m[3]))
	} else if serial, err := strconv.ParseFloat(strings.ReplaceAll(s, "/", "."), 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		out = datecalc.Format(t)
	} else if t, err := time.Parse(time.RFC3339, s); err == nil {
		out = datecalc.Format(t)
	} else {
		return nil
	}

	if !datecalc.Valid(out) {
		return nil
	}
	return &out
}

func pad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// parseDuration truncates the numeric part of raw. Zero and unparseable values are absent.
func parseDuration(raw string) *int {
	s := nonNumeric.ReplaceAllString(raw, "")
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	d := int(math.Trunc(n))
	if d <= 0 {
		return nil
	}
	return &d
}
