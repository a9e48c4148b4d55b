package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sensorgnome-org/tagdfa/tag"
)

func TestValidateAcceptsOrderedSchedule(t *testing.T) {
	tg := tag.New(1, 166.380, []float64{2.1, 2.3})
	s := Schedule{
		{Timestamp: 0, Kind: Add, Tag: tg},
		{Timestamp: 10, Kind: Remove, Tag: &tag.Tag{ID: 1}},
	}
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsOutOfOrder(t *testing.T) {
	s := Schedule{
		{Timestamp: 10, Kind: Remove},
		{Timestamp: 5, Kind: Remove},
	}
	assert.Error(t, s.Validate())
}

func TestValidateRejectsAddWithoutTag(t *testing.T) {
	s := Schedule{{Timestamp: 0, Kind: Add}}
	assert.Error(t, s.Validate())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "add", Add.String())
	assert.Equal(t, "remove", Remove.String())
}
