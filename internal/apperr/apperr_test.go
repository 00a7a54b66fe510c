package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	in := Input("model is required")
	st := Storage("search error codes", errors.New("connection refused"))
	wrapped := fmt.Errorf("import: %w", st)

	assert.True(t, IsInput(in))
	assert.False(t, IsStorage(in))
	assert.True(t, IsStorage(wrapped))
	assert.False(t, IsInput(errors.New("plain")))
	assert.Equal(t, Kind(0), KindOf(nil))

	assert.Equal(t, "model is required", Message(in))
	assert.Equal(t, "storage failure", Message(wrapped))
	assert.Equal(t, "internal error", Message(errors.New("plain")))

	assert.Equal(t, "search error codes: connection refused", st.Error())
	assert.ErrorContains(t, wrapped, "connection refused")
}
