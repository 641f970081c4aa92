package mock

import (
	"context"
	"sync"

	"github.com/m-mizutani/envlake/pkg/models"
)

// WarehouseMockDB is mock of WarehousePostgres
type WarehouseMockDB struct {
	AppendErr   error
	TruncateErr error
	InsertErr   error
	// CountOffset is added to result of CountRows to emulate concurrent writers
	CountOffset int64

	mutex     sync.Mutex
	tables    map[string][]models.Record
	truncated []string
}

// NewWarehouseMockDB is constructor of WarehouseMockDB
func NewWarehouseMockDB() *WarehouseMockDB {
	return &WarehouseMockDB{
		tables: map[string][]models.Record{},
	}
}

// AppendRecords appends rows to the table
func (x *WarehouseMockDB) AppendRecords(ctx context.Context, table string, records []models.Record) (int64, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.AppendErr != nil {
		return 0, x.AppendErr
	}
	x.tables[table] = append(x.tables[table], records...)
	return int64(len(records)), nil
}

// InsertStats appends stats to the table
func (x *WarehouseMockDB) InsertStats(ctx context.Context, table string, stats []models.Record) (int64, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.InsertErr != nil {
		return 0, x.InsertErr
	}
	x.tables[table] = append(x.tables[table], stats...)
	return int64(len(stats)), nil
}

// Truncate clears the table
func (x *WarehouseMockDB) Truncate(ctx context.Context, table string) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.TruncateErr != nil {
		return x.TruncateErr
	}
	delete(x.tables, table)
	x.truncated = append(x.truncated, table)
	return nil
}

// CountRows returns number of rows of the table
func (x *WarehouseMockDB) CountRows(ctx context.Context, table string) (int64, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return int64(len(x.tables[table])) + x.CountOffset, nil
}

// Rows returns copy of rows in the table
func (x *WarehouseMockDB) Rows(table string) []models.Record {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]models.Record{}, x.tables[table]...)
}

// Truncated returns names of truncated tables in order
func (x *WarehouseMockDB) Truncated() []string {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]string{}, x.truncated...)
}
