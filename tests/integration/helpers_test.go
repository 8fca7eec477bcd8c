//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/bissquit/fleet-garden/internal/testutil"
	"github.com/stretchr/testify/require"
)

// account describes a registered test account.
type account struct {
	ID       int64
	Email    string
	Password string
}

// registerAccount registers a fresh account with the given role and returns
// an authenticated client for it. Registration logs the account in, so the
// returned client already carries a bearer token.
func registerAccount(t *testing.T, role string) (*testutil.Client, account) {
	t.Helper()

	payload := map[string]interface{}{
		"first_name": "Test",
		"last_name":  "User",
		"email":      testutil.RandomEmail(role),
		"password":   "test-password-1",
		"role":       role,
	}
	if role == "driver" {
		payload["license_number"] = testutil.RandomLicense()
	}

	client := newTestClient(t)
	resp, err := client.POST("/api/v1/auth/register", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			Token string `json:"token"`
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.Token)

	client.Token = result.Data.Token
	return client, account{
		ID:       result.Data.ID,
		Email:    result.Data.Email,
		Password: "test-password-1",
	}
}

// registerOwner registers an OWNER account.
func registerOwner(t *testing.T) (*testutil.Client, account) {
	t.Helper()
	return registerAccount(t, "owner")
}

// registerDriver registers a DRIVER account and returns its driver profile ID.
func registerDriver(t *testing.T) (*testutil.Client, account, int64) {
	t.Helper()
	client, acc := registerAccount(t, "driver")

	resp, err := client.GET("/api/v1/drivers/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return client, acc, result.Data.ID
}

// adminClient returns a client authenticated as the seeded admin.
func adminClient(t *testing.T) *testutil.Client {
	t.Helper()
	client := newTestClient(t)
	client.LoginAsAdmin(t)
	return client
}

// vehiclePayload builds a valid vehicle creation payload with a random
// registration number.
func vehiclePayload() map[string]interface{} {
	return map[string]interface{}{
		"registration_number": testutil.RandomRegistration(),
		"brand":               "Toyota",
		"model":               "Corolla",
		"year":                2021,
		"fuel_type":           "PETROL",
		"transmission":        "MANUAL",
		"mileage":             12000,
	}
}

// createVehicle creates a vehicle for the client's account and returns its ID.
func createVehicle(t *testing.T, client *testutil.Client) int64 {
	t.Helper()

	resp, err := client.POST("/api/v1/vehicles", vehiclePayload())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// createDriverProfile creates a standalone driver profile through the admin
// API and returns its ID.
func createDriverProfile(t *testing.T, admin *testutil.Client) int64 {
	t.Helper()

	resp, err := admin.POST("/api/v1/drivers", map[string]interface{}{
		"first_name":     "Fleet",
		"last_name":      "Driver",
		"email":          testutil.RandomEmail("profile"),
		"license_number": testutil.RandomLicense(),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// itoa formats an ID for use in request paths.
func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// errorMessage extracts the error envelope message from a response.
func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var result struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Error.Message
}
