package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"genfity-analytics-service/internal/analytics"
)

// Record is one order of a JSON dump, tagged with its merchant.
type Record struct {
	MerchantID int64 `json:"merchantId"`
	analytics.Order
}

// JSONFile serves orders from a JSON dump on disk. The file is read once and
// kept in memory; Reload picks up a new dump.
type JSONFile struct {
	path string

	mu      sync.RWMutex
	records []Record
}

func NewJSONFile(path string) (*JSONFile, error) {
	f := &JSONFile{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *JSONFile) Reload() error {
	records, err := ReadRecords(f.path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.records = records
	f.mu.Unlock()
	return nil
}

func (f *JSONFile) ListOrders(_ context.Context, merchantID int64, window analytics.DateRange) ([]analytics.Order, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]analytics.Order, 0)
	for _, record := range f.records {
		if record.MerchantID != merchantID || !window.Contains(record.Timestamp) {
			continue
		}
		out = append(out, record.Order)
	}
	return out, nil
}

func (f *JSONFile) ActiveMerchantIDs(_ context.Context, window analytics.DateRange) ([]int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, record := range f.records {
		if window.Contains(record.Timestamp) {
			seen[record.MerchantID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ReadRecords decodes a JSON array of merchant-tagged orders.
func ReadRecords(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orders file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode orders file %s: %w", path, err)
	}
	return records, nil
}

// ReadOrders decodes a JSON array of orders, ignoring merchant tags.
func ReadOrders(path string) ([]analytics.Order, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}
	orders := make([]analytics.Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, record.Order)
	}
	return orders, nil
}

// WriteRecords writes records as indented JSON.
func WriteRecords(path string, records []Record) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write orders file: %w", err)
	}
	return nil
}
