package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal_BothKnown(t *testing.T) {
	e := DiyEstimate{
		Flights: FlightEstimate{PriceTotalForTwo: Float(1200.505)},
		Hotel:   HotelEstimate{PriceTotalForStay: Float(800.0)},
	}
	e.ComputeTotal()
	require.NotNil(t, e.DiyTotalForTwo)
	assert.Equal(t, 2000.51, *e.DiyTotalForTwo)
}

func TestComputeTotal_FlightOnly(t *testing.T) {
	e := DiyEstimate{Flights: FlightEstimate{PriceTotalForTwo: Float(999.99)}}
	e.ComputeTotal()
	require.NotNil(t, e.DiyTotalForTwo)
	assert.Equal(t, 999.99, *e.DiyTotalForTwo)
}

func TestComputeTotal_HotelOnly(t *testing.T) {
	e := DiyEstimate{Hotel: HotelEstimate{PriceTotalForStay: Float(450)}}
	e.ComputeTotal()
	require.NotNil(t, e.DiyTotalForTwo)
	assert.Equal(t, 450.0, *e.DiyTotalForTwo)
}

func TestComputeTotal_NothingKnown(t *testing.T) {
	e := DiyEstimate{}
	e.ComputeTotal()
	assert.Nil(t, e.DiyTotalForTwo)
}

func TestComputeTotal_Recompute(t *testing.T) {
	// ComputeTotal must clear a stale total when sub-totals become unknown.
	e := DiyEstimate{Flights: FlightEstimate{PriceTotalForTwo: Float(100)}}
	e.ComputeTotal()
	require.NotNil(t, e.DiyTotalForTwo)

	e.Flights.PriceTotalForTwo = nil
	e.ComputeTotal()
	assert.Nil(t, e.DiyTotalForTwo)
}
