package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"microAMM/internal/model"
)

func TestObserveTransition(t *testing.T) {
	m := New()
	m.ObserveTransition(model.KindSwap, nil, time.Millisecond)
	m.ObserveTransition(model.KindSwap, nil, time.Millisecond)
	m.ObserveTransition(model.KindSwap, model.ErrEmptyReserve, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("swap", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("swap", "empty_reserve")))
	require.Equal(t, 1, testutil.CollectAndCount(m.TransitionLatency))
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.ObserveTransition(model.KindInitialize, nil, time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics", "amm.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `amm_pool_transitions_total{kind="initialize",outcome="ok"} 1`))
}
