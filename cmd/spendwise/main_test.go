package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/logger"
	"spendwise/internal/router"
	"spendwise/internal/services"
	"spendwise/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func startAPI(t *testing.T) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	server := httptest.NewServer(router.New(services.NewExpenseService(db), ""))
	t.Cleanup(server.Close)

	t.Setenv("SPENDWISE_API_URL", server.URL)
	t.Setenv("RETRY_BACKOFF", "1ms")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCLI_AddAndList(t *testing.T) {
	startAPI(t)

	out, err := runCLI(t, "add", "-amount", "12,50", "-category", "Food", "-date", "2024-01-15", "-description", "lunch")
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "12.50 Food on 2024-01-15")
	assert.NotContains(t, out, "not one of the standard categories")

	_, err = runCLI(t, "add", "-amount", "7.5", "-category", "Transport", "-date", "2024-01-16")
	require.NoError(t, err)

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "lunch")
	assert.Contains(t, out, "20.00")
	assert.Contains(t, out, "2 expense(s)")

	out, err = runCLI(t, "list", "-category", "Food")
	require.NoError(t, err)
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "1 expense(s)")
}

func TestCLI_AddCustomCategory(t *testing.T) {
	startAPI(t)

	out, err := runCLI(t, "add", "-amount", "4", "-category", "Test", "-date", "2024-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, `note: "Test" is not one of the standard categories`)
	assert.Contains(t, out, "created")
}

func TestCLI_Replay(t *testing.T) {
	startAPI(t)

	out, err := runCLI(t, "replay", "-n", "8", "-amount", "3", "-category", "Food", "-date", "2024-02-01")
	require.NoError(t, err)
	assert.Contains(t, out, "8 request(s), 1 created, 1 distinct id(s)")
}

func TestCLI_Errors(t *testing.T) {
	startAPI(t)

	t.Run("no command", func(t *testing.T) {
		_, err := runCLI(t)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "usage:"))
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := runCLI(t, "delete")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown command "delete"`)
	})

	t.Run("bad amount", func(t *testing.T) {
		_, err := runCLI(t, "add", "-amount", "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid -amount")
	})

	t.Run("server rejects the expense", func(t *testing.T) {
		_, err := runCLI(t, "add", "-amount", "5", "-date", "2024-02-30")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expense not saved")
		assert.Contains(t, err.Error(), "INVALID_INPUT")
	})
}
