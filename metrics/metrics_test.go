package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveLoad("pptx", StatusOK, 200*time.Millisecond, 3)
	c.ObserveLoad("pptx", StatusOK, time.Second, 1)
	c.ObserveLoad("docx", StatusError, time.Millisecond, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.loads.WithLabelValues("pptx", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues("docx", StatusError)))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.documents.WithLabelValues("pptx")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "mdloader_loads_total")
	assert.Contains(t, names, "mdloader_load_duration_seconds")
}

func TestObserveCaption(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.ObserveCaption(CaptionOK)
	c.ObserveCaption(CaptionOK)
	c.ObserveCaption(CaptionUnsupported)

	expected := `
# HELP mdloader_captions_total Total number of image caption attempts, by outcome
# TYPE mdloader_captions_total counter
mdloader_captions_total{status="captioned"} 2
mdloader_captions_total{status="unsupported"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c.captions, strings.NewReader(expected)))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveLoad("xlsx", StatusOK, time.Second, 2)
		c.ObserveCaption(CaptionFailed)
	})
}

func TestNewWithoutRegistry(t *testing.T) {
	c := New(nil)
	c.ObserveLoad("txt", StatusOK, time.Millisecond, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loads.WithLabelValues("txt", StatusOK)))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
