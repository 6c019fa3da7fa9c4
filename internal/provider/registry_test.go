package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		path   string
		expect string
	}{
		{"/api/v1/callbacks/pragmaticplay", ProviderPragmatic},
		{"/api/v1/callbacks/PRAGMATIC", ProviderPragmatic},
		{"/api/v1/callbacks/pp-seamless", ProviderPragmatic},
		{"/api/v1/callbacks/gitslotpark", ProviderGitSlotPark},
		{"/api/v1/callbacks/gsp", ProviderGitSlotPark},
		{"/api/v1/callbacks/GSP-wallet/", ProviderGitSlotPark},
		{"/api/v1/callbacks/infinwin", ProviderGeneric},
		{"/api/v1/callbacks/unknown-aggregator", ProviderGeneric},
		{"/", ProviderGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expect, r.Resolve(tt.path).ProviderID())
		})
	}
}

func TestRegistry_ResolveMatchesTrailingSegmentOnly(t *testing.T) {
	r := NewRegistry()

	// A provider token earlier in the path must not influence resolution.
	assert.Equal(t, ProviderGeneric, r.Resolve("/pragmatic/callbacks/other").ProviderID())
}
