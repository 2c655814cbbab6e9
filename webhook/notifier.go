// Copyright 2026 The txindexer Authors
// This file is part of the txindexer library.
//
// The txindexer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The txindexer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the txindexer library. If not, see <http://www.gnu.org/licenses/>.

// Package webhook is an event.Sink implementation (SPEC_FULL §4.H):
// it posts a JSON body per fired event to a configured URL using a
// connection-pooled fasthttp.Client, and appends every attempt —
// success or failure — to a delivery ledger so operators can replay
// missed webhooks.
package webhook

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/metrics"
)

var logger = log.NewModuleLogger("webhook")

type payload struct {
	Event string `json:"event"`
	Txid  string `json:"txid"`
}

// Notifier implements event.Sink. Each callback posts synchronously on
// the caller's goroutine (the core's, after the commit), so a slow
// endpoint delays the caller by up to the client's timeouts; it only
// reads committed state.
type Notifier struct {
	url    string
	client *fasthttp.Client
	ledger *Ledger
}

func New(url string, ledger *Ledger) *Notifier {
	return &Notifier{
		url: url,
		client: &fasthttp.Client{
			MaxConnsPerHost:     64,
			ReadTimeout:         5 * time.Second,
			WriteTimeout:        5 * time.Second,
			MaxIdleConnDuration: time.Minute,
		},
		ledger: ledger,
	}
}

func (n *Notifier) post(event string, txid common.Txid) {
	body, err := json.Marshal(payload{Event: event, Txid: txid.String()})
	if err != nil {
		logger.Error("failed to marshal webhook payload", "event", event, "txid", txid, "err", err)
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	status := "ok"
	attempt := 1
	if err := n.client.Do(req, resp); err != nil {
		status = "error:" + err.Error()
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		logger.Warn("webhook delivery failed", "event", event, "txid", txid, "err", err)
	} else if code := resp.StatusCode(); code >= 300 {
		status = "http:" + fasthttp.StatusMessage(code)
		metrics.WebhookDeliveries.WithLabelValues("http_error").Inc()
	} else {
		metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	}

	if n.ledger != nil {
		if err := n.ledger.Record(event, txid.String(), string(body), status, attempt); err != nil {
			logger.Error("failed to append delivery ledger row", "event", event, "txid", txid, "err", err)
		}
	}
}

func (n *Notifier) OnReadyToExecute(txid common.Txid)     { n.post("ready_to_execute", txid) }
func (n *Notifier) OnAddTransaction(txid common.Txid)     { n.post("add_transaction", txid) }
func (n *Notifier) OnDeleteTransaction(txid common.Txid)  { n.post("delete_transaction", txid) }
func (n *Notifier) OnTrustTransaction(txid common.Txid)   { n.post("trust_transaction", txid) }
func (n *Notifier) OnUntrustTransaction(txid common.Txid) { n.post("untrust_transaction", txid) }
func (n *Notifier) OnBanTransaction(txid common.Txid)     { n.post("ban_transaction", txid) }
func (n *Notifier) OnUnbanTransaction(txid common.Txid)   { n.post("unban_transaction", txid) }
func (n *Notifier) OnUnindexTransaction(txid common.Txid) { n.post("unindex_transaction", txid) }
