package geo

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hervehildenbrand/threatmap/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	refreshInterval = 15 * time.Minute // Refresh database-backed centroids every 15 minutes
)

// CountryResolver provides ISO-2 code to country lookups.
type CountryResolver interface {
	// Lookup returns the country for an ISO-2 code, or false if unknown.
	Lookup(code string) (models.Country, bool)
	// Count returns the number of countries loaded from the backing source.
	Count() int
	// Start begins any background refresh operations.
	Start()
	// Stop stops any background operations.
	Stop()
}

// StaticResolver serves the built-in centroid table.
type StaticResolver struct{}

// NewStaticResolver creates a resolver over the built-in table.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{}
}

func (r *StaticResolver) Lookup(code string) (models.Country, bool) {
	c, ok := builtinCountries[strings.ToUpper(code)]
	return c, ok
}

func (r *StaticResolver) Count() int { return len(builtinCountries) }
func (r *StaticResolver) Start()     {}
func (r *StaticResolver) Stop()      {}

// FileResolver loads country centroids from a CSV file, falling back to the
// built-in table for codes the file does not carry.
// Expected format: code,name,latitude,longitude (e.g., "US,United States,37.09,-95.71")
type FileResolver struct {
	filePath string
	mapping  map[string]models.Country
	mu       sync.RWMutex
}

// NewFileResolver creates a resolver that loads centroids from a CSV file.
func NewFileResolver(filePath string) (*FileResolver, error) {
	r := &FileResolver{
		filePath: filePath,
		mapping:  make(map[string]models.Country),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileResolver) load() error {
	file, err := os.Open(r.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1

	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		// Skip a header row: data rows have a numeric latitude column.
		if first {
			first = false
			if len(record) >= 3 {
				if _, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err != nil {
					continue
				}
			}
		}
		if c, ok := parseCountryRow(record); ok {
			r.mapping[c.Code] = c
		}
	}

	logrus.Infof("FileResolver: loaded %d country centroids from %s", len(r.mapping), r.filePath)
	return nil
}

func parseCountryRow(record []string) (models.Country, bool) {
	if len(record) < 4 {
		return models.Country{}, false
	}
	code := strings.ToUpper(strings.TrimSpace(record[0]))
	if len(code) != 2 {
		return models.Country{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return models.Country{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return models.Country{}, false
	}
	return models.Country{
		Code:      code,
		Name:      strings.TrimSpace(record[1]),
		Latitude:  lat,
		Longitude: lon,
	}, true
}

func (r *FileResolver) Lookup(code string) (models.Country, bool) {
	code = strings.ToUpper(code)
	r.mu.RLock()
	c, ok := r.mapping[code]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	c, ok = builtinCountries[code]
	return c, ok
}

func (r *FileResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

func (r *FileResolver) Start() {}
func (r *FileResolver) Stop()  {}

// DatabaseResolver loads country centroids from a database table.
// Uses a simple schema: SELECT code, name, latitude, longitude FROM country_centroids
type DatabaseResolver struct {
	db         *sql.DB
	tableName  string
	mapping    map[string]models.Country
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
	lastUpdate time.Time
}

// NewDatabaseResolver creates a resolver that loads centroids from a database.
// tableName defaults to "country_centroids" if empty.
func NewDatabaseResolver(db *sql.DB, tableName string) *DatabaseResolver {
	if tableName == "" {
		tableName = "country_centroids"
	}
	return &DatabaseResolver{
		db:        db,
		tableName: tableName,
		mapping:   make(map[string]models.Country),
		done:      make(chan struct{}),
	}
}

// Start loads the table immediately and begins periodic refresh.
func (r *DatabaseResolver) Start() {
	r.refresh()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.refresh()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop stops the resolver.
func (r *DatabaseResolver) Stop() {
	close(r.done)
	r.wg.Wait()
}

func (r *DatabaseResolver) Lookup(code string) (models.Country, bool) {
	code = strings.ToUpper(code)
	r.mu.RLock()
	c, ok := r.mapping[code]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	c, ok = builtinCountries[code]
	return c, ok
}

func (r *DatabaseResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mapping)
}

// refresh loads the centroid table from the database.
func (r *DatabaseResolver) refresh() {
	start := time.Now()

	query := "SELECT code, name, latitude, longitude FROM " + r.tableName + " WHERE code IS NOT NULL AND code != ''"
	rows, err := r.db.Query(query)
	if err != nil {
		logrus.Errorf("DatabaseResolver: failed to query %s: %v", r.tableName, err)
		return
	}
	defer rows.Close()

	newMapping := make(map[string]models.Country)
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.Code, &c.Name, &c.Latitude, &c.Longitude); err != nil {
			continue
		}
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if len(c.Code) == 2 {
			newMapping[c.Code] = c
		}
	}

	if err := rows.Err(); err != nil {
		logrus.Errorf("DatabaseResolver: row iteration error: %v", err)
		return
	}

	r.mu.Lock()
	r.mapping = newMapping
	r.lastUpdate = time.Now()
	r.mu.Unlock()

	logrus.Infof("DatabaseResolver: loaded %d country centroids in %v", len(newMapping), time.Since(start))
}
