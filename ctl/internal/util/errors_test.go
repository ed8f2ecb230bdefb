package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	base := errors.New("one or more nodes failed")
	partial := NewCtlError(base, PartialSuccess)

	assert.Equal(t, Success, ExitCode(nil))
	assert.Equal(t, GeneralError, ExitCode(base))
	assert.Equal(t, PartialSuccess, ExitCode(partial))
	assert.Equal(t, PartialSuccess, ExitCode(fmt.Errorf("remove: %w", partial)))
	assert.ErrorIs(t, partial, base)
	assert.Equal(t, base.Error(), partial.Error())
}
