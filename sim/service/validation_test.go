package service_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

func TestParseQuery(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		params, err := service.ParseQuery(url.Values{
			"airports": {"3"},
			"clouds":   {" 4 "},
			"height":   {"10"},
			"width":    {"12"},
		})
		require.NoError(t, err)
		assert.Equal(t, engine.Params{Airports: 3, Clouds: 4, Height: 10, Width: 12}, params)
	})

	tests := []struct {
		name   string
		values url.Values
		want   string
	}{
		{"absent field", url.Values{"airports": {"3"}, "clouds": {"4"}, "height": {"10"}}, service.MsgMissingArgument},
		{"empty field", url.Values{"airports": {""}, "clouds": {"4"}, "height": {"10"}, "width": {"10"}}, service.MsgMissingArgument},
		{"blank airports", url.Values{"airports": {" "}, "clouds": {"4"}, "height": {"10"}, "width": {"10"}}, service.MsgInvalidAirports},
		{"blank clouds", url.Values{"airports": {"3"}, "clouds": {"\t"}, "height": {"10"}, "width": {"10"}}, service.MsgInvalidClouds},
		{"blank still counts as present", url.Values{"airports": {"1"}, "clouds": {"4"}, "height": {"10"}, "width": {" "}}, service.MsgInvalidAirports},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ParseQuery(tt.values)
			require.Error(t, err)
			assert.True(t, service.IsValidationError(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestValidateParams(t *testing.T) {
	valid := engine.Params{Airports: 3, Clouds: 4, Height: 10, Width: 10}
	assert.NoError(t, service.ValidateParams(valid))

	tests := []struct {
		name   string
		mutate func(p *engine.Params)
		want   string
	}{
		{"airports", func(p *engine.Params) { p.Airports = 2 }, service.MsgInvalidAirports},
		{"clouds", func(p *engine.Params) { p.Clouds = 3 }, service.MsgInvalidClouds},
		{"height", func(p *engine.Params) { p.Height = 9 }, service.MsgInvalidHeight},
		{"width", func(p *engine.Params) { p.Width = 0 }, service.MsgInvalidWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := service.ValidateParams(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidParameter)
			assert.Equal(t, tt.want, err.Error())

			var invalid *service.InvalidParamError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.name, invalid.Field)
		})
	}
}
