package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDogAge(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	d := &Dog{Birthday: "2021-06-15"}
	assert.InDelta(t, 5.0, d.Age(now), 0.01)

	young := &Dog{Birthday: "2026-03-15"}
	assert.InDelta(t, 0.25, young.Age(now), 0.01)

	// unparseable birthdays read as age zero rather than failing the listing
	bad := &Dog{Birthday: "not-a-date"}
	assert.Zero(t, bad.Age(now))
}
