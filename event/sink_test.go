package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gxplatform/txindexer/common"
)

type recordingSink struct {
	calls []string
}

func (r *recordingSink) OnReadyToExecute(common.Txid)    { r.calls = append(r.calls, "ready") }
func (r *recordingSink) OnAddTransaction(common.Txid)    { r.calls = append(r.calls, "add") }
func (r *recordingSink) OnDeleteTransaction(common.Txid) { r.calls = append(r.calls, "delete") }
func (r *recordingSink) OnTrustTransaction(common.Txid)  { r.calls = append(r.calls, "trust") }
func (r *recordingSink) OnUntrustTransaction(common.Txid) {
	r.calls = append(r.calls, "untrust")
}
func (r *recordingSink) OnBanTransaction(common.Txid)   { r.calls = append(r.calls, "ban") }
func (r *recordingSink) OnUnbanTransaction(common.Txid) { r.calls = append(r.calls, "unban") }
func (r *recordingSink) OnUnindexTransaction(common.Txid) {
	r.calls = append(r.calls, "unindex")
}

func TestMultiFansOutInOrder(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	m := Multi{first, second}

	var txid common.Txid
	m.OnReadyToExecute(txid)
	m.OnAddTransaction(txid)

	assert.Equal(t, []string{"ready", "add"}, first.calls)
	assert.Equal(t, []string{"ready", "add"}, second.calls)
}

func TestNopIsSilent(t *testing.T) {
	var txid common.Txid
	assert.NotPanics(t, func() {
		Nop{}.OnReadyToExecute(txid)
		Nop{}.OnAddTransaction(txid)
		Nop{}.OnDeleteTransaction(txid)
		Nop{}.OnTrustTransaction(txid)
		Nop{}.OnUntrustTransaction(txid)
		Nop{}.OnBanTransaction(txid)
		Nop{}.OnUnbanTransaction(txid)
		Nop{}.OnUnindexTransaction(txid)
	})
}
