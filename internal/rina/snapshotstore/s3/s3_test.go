package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
}

func TestOpenDefaultsKey(t *testing.T) {
	cfg := Config{Bucket: "ipcpd-snapshots"}
	if cfg.Key == "" {
		cfg.Key = "rib.snapshot"
	}
	require.Equal(t, "rib.snapshot", cfg.Key)
}
