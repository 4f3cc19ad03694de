package es

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersion_json(t *testing.T) {
	data, err := json.Marshal(struct{ V Version }{V: 3})
	require.NoError(t, err)
	require.JSONEq(t, `{"V":3}`, string(data))

	var x Version
	require.NoError(t, json.Unmarshal([]byte("1234"), &x))
	require.Equal(t, Version(1234), x)
	require.EqualValues(t, 1234, x.Uint64())
}

func TestVersion_slog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	log.Info("saved", Version(7).SlogAttr(), Version(6).SlogAttrWithKey("expected_version"))
	require.Contains(t, buf.String(), "version=7")
	require.Contains(t, buf.String(), "expected_version=6")
}
