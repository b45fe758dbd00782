package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stanse/fec-pipeline/internal/fec/model"
)

func TestRemoveString(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, removeString([]string{"a", "b", "c"}, "b"))
	assert.Equal(t, []string{"a"}, removeString([]string{"a"}, "missing"))
	assert.Empty(t, removeString([]string{"only"}, "only"))
}

func TestDisplayOrCanonical(t *testing.T) {
	assert.Equal(t, "Acme Corp", displayOrCanonical(model.VariantGroup{
		CanonicalName: "acme", DisplayName: "Acme Corp",
	}))
	assert.Equal(t, "acme", displayOrCanonical(model.VariantGroup{CanonicalName: "acme"}))
}
