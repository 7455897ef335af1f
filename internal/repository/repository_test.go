package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListingFilterEmpty(t *testing.T) {
	require.True(t, ListingFilter{Collection: "GUARDIAN-3d6635"}.Empty())

	claimed := false
	require.False(t, ListingFilter{IsClaimed: &claimed}.Empty())
	require.False(t, ListingFilter{Traits: map[string]string{"eyes.name": "ice"}}.Empty())
	require.False(t, ListingFilter{IDPrefix: "12"}.Empty())
}

func TestIsTraitPath(t *testing.T) {
	require.True(t, IsTraitPath("hairstyle.color"))
	require.False(t, IsTraitPath("market.price"))
	require.False(t, IsTraitPath("background"))
}
