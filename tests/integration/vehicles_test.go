//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/fleet-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleCRUD(t *testing.T) {
	owner, _ := registerOwner(t)

	payload := vehiclePayload()
	resp, err := owner.POST("/api/v1/vehicles", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data struct {
			ID                 int64  `json:"id"`
			RegistrationNumber string `json:"registration_number"`
			Status             string `json:"status"`
			OwnerID            int64  `json:"owner_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &created)
	assert.Equal(t, payload["registration_number"], created.Data.RegistrationNumber)
	assert.Equal(t, "ACTIVE", created.Data.Status)

	id := itoa(created.Data.ID)

	resp, err = owner.GET("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	payload["brand"] = "Honda"
	payload["status"] = "MAINTENANCE"
	resp, err = owner.PUT("/api/v1/vehicles/"+id, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Data struct {
			Brand   string `json:"brand"`
			Status  string `json:"status"`
			OwnerID int64  `json:"owner_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &updated)
	assert.Equal(t, "Honda", updated.Data.Brand)
	assert.Equal(t, "MAINTENANCE", updated.Data.Status)
	assert.Equal(t, created.Data.OwnerID, updated.Data.OwnerID)

	resp, err = owner.DELETE("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = owner.GET("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestVehicleOwnerIsCaller(t *testing.T) {
	owner, acc := registerOwner(t)

	// A supplied owner_id is ignored for non-admin callers.
	payload := vehiclePayload()
	payload["owner_id"] = acc.ID + 999

	resp, err := owner.POST("/api/v1/vehicles", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data struct {
			OwnerID int64 `json:"owner_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &created)
	assert.Equal(t, acc.ID, created.Data.OwnerID)
}

func TestVehicleOwnershipScoping(t *testing.T) {
	ownerA, _ := registerOwner(t)
	ownerB, _ := registerOwner(t)
	admin := adminClient(t)

	vehicleID := createVehicle(t, ownerA)
	id := itoa(vehicleID)

	// The other owner cannot see, change or delete it.
	resp, err := ownerB.GET("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = ownerB.PUT("/api/v1/vehicles/"+id, vehiclePayload())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = ownerB.DELETE("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Its owner and the admin can.
	resp, err = ownerA.GET("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = admin.GET("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// List scoping: the vehicle shows up for its owner, not for the other one.
	assert.True(t, listContainsVehicle(t, ownerA, vehicleID))
	assert.False(t, listContainsVehicle(t, ownerB, vehicleID))
	assert.True(t, listContainsVehicle(t, admin, vehicleID))
}

func TestMyVehicles(t *testing.T) {
	owner, _ := registerOwner(t)
	vehicleID := createVehicle(t, owner)

	resp, err := owner.GET("/api/v1/vehicles/my")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.Len(t, result.Data, 1)
	assert.Equal(t, vehicleID, result.Data[0].ID)
}

func TestDuplicateRegistrationNumber(t *testing.T) {
	owner, _ := registerOwner(t)

	payload := vehiclePayload()
	resp, err := owner.POST("/api/v1/vehicles", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = owner.POST("/api/v1/vehicles", payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestDriverAssignment(t *testing.T) {
	owner, _ := registerOwner(t)
	driver, _, driverID := registerDriver(t)

	vehicleID := createVehicle(t, owner)
	id := itoa(vehicleID)

	resp, err := owner.POST("/api/v1/vehicles/"+id+"/driver/"+itoa(driverID), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var assigned struct {
		Data struct {
			DriverID *int64 `json:"driver_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &assigned)
	require.NotNil(t, assigned.Data.DriverID)
	assert.Equal(t, driverID, *assigned.Data.DriverID)

	// The assigned driver can read the vehicle but not change it.
	resp, err = driver.GET("/api/v1/vehicles/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = driver.PUT("/api/v1/vehicles/"+id, vehiclePayload())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	assert.True(t, listContainsVehicle(t, driver, vehicleID))

	// A driver drives at most one vehicle at a time.
	otherVehicle := createVehicle(t, owner)
	resp, err = owner.POST("/api/v1/vehicles/"+itoa(otherVehicle)+"/driver/"+itoa(driverID), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Removal frees the driver up again.
	resp, err = owner.DELETE("/api/v1/vehicles/" + id + "/driver")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var removed struct {
		Data struct {
			DriverID *int64 `json:"driver_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &removed)
	assert.Nil(t, removed.Data.DriverID)

	resp, err = owner.POST("/api/v1/vehicles/"+itoa(otherVehicle)+"/driver/"+itoa(driverID), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Unassigned vehicles are no longer visible to the driver.
	assert.False(t, listContainsVehicle(t, driver, vehicleID))
}

func TestAssignUnknownDriver(t *testing.T) {
	owner, _ := registerOwner(t)
	vehicleID := createVehicle(t, owner)

	resp, err := owner.POST("/api/v1/vehicles/"+itoa(vehicleID)+"/driver/999999", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAssignDriverToForeignVehicle(t *testing.T) {
	ownerA, _ := registerOwner(t)
	ownerB, _ := registerOwner(t)
	_, _, driverID := registerDriver(t)

	vehicleID := createVehicle(t, ownerA)

	resp, err := ownerB.POST("/api/v1/vehicles/"+itoa(vehicleID)+"/driver/"+itoa(driverID), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestDriverCannotCreateVehicle(t *testing.T) {
	driver, _, _ := registerDriver(t)

	resp, err := driver.POST("/api/v1/vehicles", vehiclePayload())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

// listContainsVehicle reports whether GET /vehicles for the client includes
// the given vehicle ID.
func listContainsVehicle(t *testing.T, client *testutil.Client, vehicleID int64) bool {
	t.Helper()

	resp, err := client.GET("/api/v1/vehicles")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	for _, v := range result.Data {
		if v.ID == vehicleID {
			return true
		}
	}
	return false
}
