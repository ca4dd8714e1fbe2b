package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestFlexListSingleObject(t *testing.T) {
	var list FlexList[item]
	require.NoError(t, json.Unmarshal([]byte(` {"name":"one"} `), &list))
	assert.True(t, list.Single)
	assert.Equal(t, []item{{Name: "one"}}, list.Slice())

	b, err := json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"one"}`, string(b))
}

func TestFlexListArray(t *testing.T) {
	var list FlexList[item]
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"one"},{"name":"two"}]`), &list))
	assert.False(t, list.Single)
	assert.Len(t, list.Items, 2)

	b, err := json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"one"},{"name":"two"}]`, string(b))
}

func TestFlexListRejectsScalars(t *testing.T) {
	for _, body := range []string{`"text"`, `42`, `null`, ``} {
		var list FlexList[item]
		err := list.UnmarshalJSON([]byte(body))
		assert.ErrorIs(t, err, ErrNotObject, "body %q", body)
	}

	var list FlexList[item]
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &list))
}

func TestFlexListEmptyMarshal(t *testing.T) {
	b, err := json.Marshal(FlexList[item]{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(b))
}
