// Package export serializes accumulated session data into downloadable
// artifacts: CSV files and a formatted PDF report.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/models"
)

// ErrNoData is returned when there is nothing to export. Callers treat it as
// "no file produced", not as a failure.
var ErrNoData = errors.New("export: no data")

// WriteAttacksCSV writes the attack history as CSV. An empty list writes
// nothing and returns ErrNoData.
func WriteAttacksCSV(w io.Writer, attacks []models.Attack) error {
	if len(attacks) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "severity", "types", "source_code", "source_name", "target_code", "target_name"}); err != nil {
		return err
	}
	for _, a := range attacks {
		record := []string{
			a.Timestamp.UTC().Format(time.RFC3339),
			string(a.Severity),
			strings.Join(a.Types, ";"),
			a.Source.Code,
			a.Source.Name,
			a.Target.Code,
			a.Target.Name,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNewsCSV writes the headline list as CSV. An empty list writes nothing
// and returns ErrNoData.
func WriteNewsCSV(w io.Writer, items []models.NewsItem) error {
	if len(items) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "link", "timestamp"}); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write([]string{item.Title, item.Link, item.Timestamp}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIPsCSV writes the malicious IP list as CSV. An empty list writes
// nothing and returns ErrNoData.
func WriteIPsCSV(w io.Writer, ips []models.MaliciousIP) error {
	if len(ips) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ip", "latitude", "longitude", "severity", "country_code"}); err != nil {
		return err
	}
	for _, ip := range ips {
		record := []string{
			ip.IP,
			strconv.FormatFloat(ip.Latitude, 'f', -1, 64),
			strconv.FormatFloat(ip.Longitude, 'f', -1, 64),
			string(ip.Severity),
			ip.CountryCode,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
