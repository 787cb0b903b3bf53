//go:build nopdf

package export_test

import (
	"errors"
	"testing"

	"github.com/nicolagi/shopping/export"
	"github.com/stretchr/testify/assert"
)

func TestPDFUnavailable(t *testing.T) {
	_, err := export.NewRenderer("pdf")
	assert.True(t, errors.Is(err, export.ErrUnavailable))
}
