package reviews

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingUnmarshal(t *testing.T) {
	tests := []struct {
		body string
		want int
		ok   bool
	}{
		{`3`, 3, true},
		{`3.0`, 3, true},
		{`5e0`, 5, true},
		{`-0`, 0, true},
		{`3.5`, 0, false},
		{`"3"`, 0, false},
		{`true`, 0, false},
		{`1e20`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var r Rating
			err := json.Unmarshal([]byte(tt.body), &r)
			if !tt.ok {
				var typeErr *json.UnmarshalTypeError
				assert.ErrorAs(t, err, &typeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Rating(tt.want), r)
		})
	}
}

func TestRatingFieldErrors(t *testing.T) {
	var in CreateInput
	err := CreateBindError(json.Unmarshal([]byte(`{"autores":["A"],"titulo":"T","valoracion":2.5}`), &in))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "valoracion", verr.Field)
	assert.Equal(t, msgRatingRange, verr.Message)

	var up UpdateInput
	require.NoError(t, json.Unmarshal([]byte(`{"valoracion":null}`), &up))
	assert.Nil(t, up.Rating)
	assert.NoError(t, up.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"valoracion":4.0}`), &up))
	require.NotNil(t, up.Rating)
	assert.Equal(t, Rating(4), *up.Rating)
}
