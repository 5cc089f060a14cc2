package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tanaw/internal/types"
)

// reportMockRows implements pgx.Rows for report list queries. Column order
// must match reportColumns.
type reportMockRows struct {
	data   []types.HazardReport
	idx    int
	closed bool
	errVal error
}

func (r *reportMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx <= len(r.data)
}

func (r *reportMockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	*dest[0].(*string) = row.ID
	*dest[1].(*string) = row.DeviceID
	*dest[2].(*string) = row.HazardType
	*dest[3].(*string) = row.Description
	if row.ImageURL != "" {
		url := row.ImageURL
		*dest[4].(**string) = &url
	} else {
		*dest[4].(**string) = nil
	}
	*dest[5].(*float64) = row.Latitude
	*dest[6].(*float64) = row.Longitude
	*dest[7].(*time.Time) = row.CreatedAt
	return nil
}

func (r *reportMockRows) Close()                                       { r.closed = true }
func (r *reportMockRows) Err() error                                   { return r.errVal }
func (r *reportMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *reportMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *reportMockRows) RawValues() [][]byte                          { return nil }
func (r *reportMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *reportMockRows) Conn() *pgx.Conn                              { return nil }

func TestReportRepo_Create_GeneratesIDAndTimestamp(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewReportRepo(dbMock)
	ctx := context.Background()

	dbMock.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	report := &types.HazardReport{
		DeviceID:   "d-1",
		HazardType: "flood",
		Latitude:   14.59,
		Longitude:  120.98,
	}
	require.NoError(t, repo.Create(ctx, report))

	assert.NotEmpty(t, report.ID)
	assert.False(t, report.CreatedAt.IsZero())
}

func TestReportRepo_Create_PreservesExplicitID(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewReportRepo(dbMock)
	ctx := context.Background()

	dbMock.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	report := &types.HazardReport{ID: "r-explicit", DeviceID: "d-1", HazardType: "fire"}
	require.NoError(t, repo.Create(ctx, report))
	assert.Equal(t, "r-explicit", report.ID)
}

func TestReportRepo_GetByID_NotFound(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewReportRepo(dbMock)
	ctx := context.Background()

	dbMock.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(ctx, "r-missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundReport, appErr.Code)
}

func TestReportRepo_GetByID_Success(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewReportRepo(dbMock)
	ctx := context.Background()

	created := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	dbMock.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "r-1"
			*dest[1].(*string) = "d-1"
			*dest[2].(*string) = "flood"
			*dest[3].(*string) = "Knee-deep water"
			url := "https://img.test/r-1.jpg"
			*dest[4].(**string) = &url
			*dest[5].(*float64) = 14.59
			*dest[6].(*float64) = 120.98
			*dest[7].(*time.Time) = created
			return nil
		}})

	report, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "flood", report.HazardType)
	assert.Equal(t, "https://img.test/r-1.jpg", report.ImageURL)
	assert.Equal(t, created, report.CreatedAt)
}

func TestReportRepo_ListRecent_DefaultsLimit(t *testing.T) {
	dbMock := new(mockDBTX)
	repo := NewReportRepo(dbMock)
	ctx := context.Background()

	rows := &reportMockRows{data: []types.HazardReport{
		{ID: "r-2", DeviceID: "d-2", HazardType: "fire", CreatedAt: time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC)},
		{ID: "r-1", DeviceID: "d-1", HazardType: "flood", ImageURL: "https://img.test/r-1.jpg", CreatedAt: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)},
	}}
	dbMock.On("Query", ctx, mock.AnythingOfType("string"), []any{50}).Return(rows, nil)

	results, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r-2", results[0].ID)
	assert.Empty(t, results[0].ImageURL)
	assert.Equal(t, "https://img.test/r-1.jpg", results[1].ImageURL)
	dbMock.AssertExpectations(t)
}
