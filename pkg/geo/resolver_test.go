package geo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()

	us, ok := r.Lookup("US")
	if !ok {
		t.Fatal("Expected built-in entry for US")
	}
	if us.Name != "United States" {
		t.Errorf("Lookup(US).Name = %q, want United States", us.Name)
	}
	if us.Latitude == 0 && us.Longitude == 0 {
		t.Error("Expected non-zero centroid for US")
	}

	if _, ok := r.Lookup("ZZ"); ok {
		t.Error("Expected ZZ to be unknown")
	}

	// Lowercase codes resolve too
	if _, ok := r.Lookup("de"); !ok {
		t.Error("Expected lowercase code to resolve")
	}

	if r.Count() == 0 {
		t.Error("Expected non-empty built-in table")
	}

	// These should not panic
	r.Start()
	r.Stop()
}

func TestFileResolver(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "countries.csv")

	csvContent := `code,name,latitude,longitude
US,United States of America,37.09,-95.71
xx,Testland,1.5,2.5
`
	if err := os.WriteFile(csvPath, []byte(csvContent), 0644); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}

	r, err := NewFileResolver(csvPath)
	if err != nil {
		t.Fatalf("NewFileResolver() error = %v", err)
	}

	if got := r.Count(); got != 2 {
		t.Errorf("FileResolver.Count() = %d, want 2", got)
	}

	// File entries override the built-in table
	us, ok := r.Lookup("US")
	if !ok || us.Name != "United States of America" {
		t.Errorf("Lookup(US) = %+v, want file override", us)
	}

	// Lowercase codes in the file are uppercased
	xx, ok := r.Lookup("XX")
	if !ok {
		t.Fatal("Expected XX from file")
	}
	if xx.Latitude != 1.5 || xx.Longitude != 2.5 {
		t.Errorf("Lookup(XX) centroid = (%v,%v), want (1.5,2.5)", xx.Latitude, xx.Longitude)
	}

	// Codes missing from the file fall back to the built-in table
	if _, ok := r.Lookup("DE"); !ok {
		t.Error("Expected built-in fallback for DE")
	}
}

func TestFileResolver_NoHeader(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "countries.csv")

	csvContent := `US,United States,37.09,-95.71
JP,Japan,36.20,138.25
`
	if err := os.WriteFile(csvPath, []byte(csvContent), 0644); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}

	r, err := NewFileResolver(csvPath)
	if err != nil {
		t.Fatalf("NewFileResolver() error = %v", err)
	}

	// First line is data (numeric latitude), not a header
	if got := r.Count(); got != 2 {
		t.Errorf("FileResolver.Count() = %d, want 2", got)
	}
}

func TestFileResolver_InvalidFile(t *testing.T) {
	_, err := NewFileResolver("/nonexistent/path/file.csv")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestFileResolver_SkipsBadRows(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "countries.csv")

	csvContent := `code,name,latitude,longitude
US,United States,37.09,-95.71
USA,Not ISO-2,1,2
FR,France,not-a-number,2.21
GB,United Kingdom,55.38,-3.44
`
	if err := os.WriteFile(csvPath, []byte(csvContent), 0644); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}

	r, err := NewFileResolver(csvPath)
	if err != nil {
		t.Fatalf("NewFileResolver() error = %v", err)
	}

	if got := r.Count(); got != 2 {
		t.Errorf("FileResolver.Count() = %d, want 2 (bad rows skipped)", got)
	}
}

func TestCountryResolverInterface(t *testing.T) {
	// Verify all resolvers implement the interface
	var _ CountryResolver = (*StaticResolver)(nil)
	var _ CountryResolver = (*FileResolver)(nil)
	var _ CountryResolver = (*DatabaseResolver)(nil)
}
