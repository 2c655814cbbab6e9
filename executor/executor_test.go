package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
)

func TestNoopClassifiesEverythingNonExecutable(t *testing.T) {
	var n Noop
	class, err := n.Classify(common.Txid{}, []byte("anything"))
	require.NoError(t, err)
	assert.False(t, class.Executable)
}

func TestNoopExecuteAlwaysFails(t *testing.T) {
	var n Noop
	outcome, err := n.Execute(common.Txid{}, []byte("anything"))
	require.NoError(t, err)
	assert.Equal(t, Failed, outcome.Kind)
}
