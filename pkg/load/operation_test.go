package load

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briannabrownOE/amaxa/pkg/rowfile"
	"github.com/briannabrownOE/amaxa/pkg/transport/transporttest"
)

type memBuffer struct {
	bytes.Buffer
}

func (*memBuffer) Close() error { return nil }

func TestRegisterNewID_AcceptsEitherIDForm(t *testing.T) {
	op := newTestOperation(transporttest.New())

	require.NoError(t, op.RegisterNewID("Account", "001000000000000", "001000000000002AAA"))

	newID, ok := op.GetNewID("001000000000000AAA")
	require.True(t, ok)
	assert.Equal(t, "001000000000002AAA", newID)

	newID, ok = op.GetNewID("001000000000000")
	require.True(t, ok)
	assert.Equal(t, "001000000000002AAA", newID)
}

func TestGetNewID_UnknownIDReportsNotFound(t *testing.T) {
	op := newTestOperation(transporttest.New())
	_, ok := op.GetNewID("001000000000099")
	assert.False(t, ok)
}

func TestRegisterNewID_WritesResultFile(t *testing.T) {
	op := newTestOperation(transporttest.New())
	buf := &memBuffer{}
	op.SetResultFile("Account", rowfile.NewResultWriter(buf))

	require.NoError(t, op.RegisterNewID("Account", "001000000000000", "001000000000002AAA"))
	require.NoError(t, op.CloseFiles())

	assert.Contains(t, buf.String(), "001000000000000AAA")
	assert.Contains(t, buf.String(), "001000000000002AAA")
}

func TestWriteErrors_WritesOneRowPerEntrySorted(t *testing.T) {
	op := newTestOperation(transporttest.New())
	buf := &memBuffer{}
	op.SetResultFile("Account", rowfile.NewResultWriter(buf))

	require.NoError(t, op.WriteErrors("Account", map[string]string{
		"001000000000001": "second failure",
		"001000000000000": "first failure",
	}))
	require.NoError(t, op.CloseFiles())

	out := buf.String()
	assert.Contains(t, out, "first failure")
	assert.Contains(t, out, "second failure")
	assert.Less(t, indexOf(out, "first failure"), indexOf(out, "second failure"))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
