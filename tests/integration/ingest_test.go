//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/fleet-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCSV(t *testing.T) {
	admin := adminClient(t)

	csv := "vehicle_id,driver_id,distance,duration,date\n" +
		"1,2,120.5,95,2026-08-01\n" +
		"3,4,88.0,61,2026-08-02\n"

	before := rawRecordCount(t, "CSV")

	resp, err := admin.UploadFile("/api/v1/import/csv", "file", "trips.csv", []byte(csv))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Imported int `json:"imported"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, 2, result.Data.Imported)

	assert.Equal(t, before+2, rawRecordCount(t, "CSV"))
}

func TestImportCSVHeaderNormalization(t *testing.T) {
	admin := adminClient(t)

	// Uppercase and padded headers are accepted.
	csv := " Vehicle_ID , DRIVER_ID ,Distance,Duration,Date\n" +
		"1,2,10.0,5,2026-08-01\n"

	resp, err := admin.UploadFile("/api/v1/import/csv", "file", "trips.csv", []byte(csv))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Imported int `json:"imported"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, 1, result.Data.Imported)
}

func TestImportCSVMissingColumns(t *testing.T) {
	admin := adminClient(t)

	csv := "vehicle_id,distance,date\n1,120.5,2026-08-01\n"

	resp, err := admin.UploadFile("/api/v1/import/csv", "file", "trips.csv", []byte(csv))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	msg := errorMessage(t, resp)
	assert.Contains(t, msg, "driver_id")
	assert.Contains(t, msg, "duration")
}

func TestImportCSVEmptyFile(t *testing.T) {
	admin := adminClient(t)

	resp, err := admin.UploadFile("/api/v1/import/csv", "file", "trips.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestImportCSVRequiresAdmin(t *testing.T) {
	owner, _ := registerOwner(t)

	csv := "vehicle_id,driver_id,distance,duration,date\n1,2,10.0,5,2026-08-01\n"

	resp, err := owner.UploadFile("/api/v1/import/csv", "file", "trips.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestIngestTrips(t *testing.T) {
	apiClient, _ := registerAccount(t, "api_client")

	before := rawRecordCount(t, "API")

	resp, err := apiClient.POST("/api/v1/ingest/trips", map[string]interface{}{
		"trips": []map[string]interface{}{
			{"vehicle_id": 1, "driver_id": 2, "distance": 120.5, "duration": 95, "date": "2026-08-01"},
			{"vehicle_id": 3, "driver_id": 4, "distance": 88.0, "duration": 61, "date": "2026-08-02"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result struct {
		Data struct {
			Accepted int `json:"accepted"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, 2, result.Data.Accepted)

	assert.Equal(t, before+2, rawRecordCount(t, "API"))
}

func TestIngestTripsEmpty(t *testing.T) {
	apiClient, _ := registerAccount(t, "api_client")

	resp, err := apiClient.POST("/api/v1/ingest/trips", map[string]interface{}{
		"trips": []map[string]interface{}{},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestIngestTripsRequiresAPIClient(t *testing.T) {
	owner, _ := registerOwner(t)

	resp, err := owner.POST("/api/v1/ingest/trips", map[string]interface{}{
		"trips": []map[string]interface{}{{"vehicle_id": 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

// rawRecordCount counts ingested records of a given source directly in the
// database.
func rawRecordCount(t *testing.T, source string) int {
	t.Helper()

	var count int
	err := testDB.QueryRow(t.Context(),
		`SELECT count(*) FROM raw_data WHERE source = $1`, source).Scan(&count)
	require.NoError(t, err)
	return count
}
