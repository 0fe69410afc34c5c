package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomID_IsZero(t *testing.T) {
	req := require.New(t)

	req.True(RoomID("").IsZero())
	req.True(RoomID("   ").IsZero())
	req.False(RoomID("lobby").IsZero())
	req.Equal("lobby", RoomID("lobby").String())
}

func TestSeverity_Rank(t *testing.T) {
	req := require.New(t)

	req.Greater(SeverityHigh.Rank(), SeverityMedium.Rank())
	req.Greater(SeverityMedium.Rank(), SeverityLow.Rank())
	req.Greater(SeverityLow.Rank(), Severity("unknown").Rank())
}

func TestLanguage_Name(t *testing.T) {
	req := require.New(t)

	req.Equal("Filipino", Filipino.Name())
	req.Equal("German", German.Name())
	req.Equal("pt", Language("pt").Name())
}
