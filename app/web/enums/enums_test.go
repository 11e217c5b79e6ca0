package enums

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme("Light")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, th)
	assert.Equal(t, "light", th.String())

	_, err = ParseTheme("blue")
	assert.EqualError(t, err, "invalid theme: blue")
	assert.Panics(t, func() { MustParseTheme("blue") })
}

func TestBatchStatus_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Status BatchStatus `json:"status"`
	}{Status: BatchStatusRunning})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"running"}`, string(data))

	var res struct {
		Status BatchStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"failed"}`), &res))
	assert.Equal(t, BatchStatusFailed, res.Status)
	assert.Error(t, json.Unmarshal([]byte(`{"status":"lost"}`), &res))
}

func TestBatchStatus_Scan(t *testing.T) {
	var st BatchStatus
	require.NoError(t, st.Scan([]byte("done")))
	assert.Equal(t, BatchStatusDone, st)
	require.NoError(t, st.Scan(nil))
	assert.Equal(t, BatchStatusIdle, st)
	assert.Error(t, st.Scan(42))

	v, err := BatchStatusRunning.Value()
	require.NoError(t, err)
	assert.Equal(t, "running", v)
}
