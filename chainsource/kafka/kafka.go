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

// Package kafka is a sample ChainSource (spec §6, SPEC_FULL §6.L): it
// consumes a block-group topic and a mempool topic produced upstream by
// a chain-data-fetcher-style process, the same role the teacher's own
// kafka_client/main.go plays against klaytn's chaindatafetcher output.
// The core never imports this package directly — it is one concrete,
// swappable chainsource.ChainSource.
package kafka

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/Shopify/sarama"

	"github.com/gxplatform/txindexer/chainsource"
	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
)

var logger = log.NewModuleLogger("chainsource/kafka")

// Config names the two topics and the broker/group coordinates, styled
// after the teacher's kafka.Config (TopicEnvironmentName/TopicResourceName
// pair, resolved to concrete topic names).
type Config struct {
	Brokers      []string
	GroupID      string
	BlockTopic   string
	MempoolTopic string
}

// blockMessage is the wire shape of one block-group record.
type blockMessage struct {
	Height   int64             `json:"height"`
	Hash     string            `json:"hash"`
	PrevHash string            `json:"prevHash"`
	Time     int64             `json:"time"`
	Txids    []string          `json:"txids"`
	RawTxns  map[string]string `json:"rawTxns"`
}

// mempoolMessage is the wire shape of one mempool-topic record.
type mempoolMessage struct {
	Txid string `json:"txid"`
	Raw  string `json:"raw"`
}

// Source implements chainsource.ChainSource over two Kafka topics
// consumed through a sarama.ConsumerGroup, matching the teacher's own
// consumer-group-per-process shape in kafka_client/main.go.
type Source struct {
	group sarama.ConsumerGroup

	blockTopic   string
	mempoolTopic string

	mu      sync.Mutex
	blocks  []blockMessage
	mempool chan chainsource.MempoolTx

	cancel context.CancelFunc
	done   chan struct{}
}

func Open(cfg Config) (*Source, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Version = sarama.V2_1_0_0

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		group:        group,
		blockTopic:   cfg.BlockTopic,
		mempoolTopic: cfg.MempoolTopic,
		mempool:      make(chan chainsource.MempoolTx, 1024),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go s.consumeLoop(ctx, []string{cfg.BlockTopic, cfg.MempoolTopic})
	return s, nil
}

func (s *Source) consumeLoop(ctx context.Context, topics []string) {
	defer close(s.done)
	for {
		if err := s.group.Consume(ctx, topics, s); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("consumer group session ended with error", "err", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Setup, Cleanup and ConsumeClaim implement sarama.ConsumerGroupHandler.
func (s *Source) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (s *Source) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (s *Source) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		switch msg.Topic {
		case s.blockTopic:
			s.handleBlock(msg.Value)
		case s.mempoolTopic:
			s.handleMempool(msg.Value)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (s *Source) handleBlock(raw []byte) {
	var m blockMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		logger.Warn("dropping malformed block message", "err", err)
		return
	}
	s.mu.Lock()
	s.blocks = append(s.blocks, m)
	s.mu.Unlock()
}

func (s *Source) handleMempool(raw []byte) {
	var m mempoolMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		logger.Warn("dropping malformed mempool message", "err", err)
		return
	}
	txid, err := common.ParseTxid(m.Txid)
	if err != nil {
		logger.Warn("dropping mempool message with bad txid", "txid", m.Txid, "err", err)
		return
	}
	rawBytes, err := hex.DecodeString(m.Raw)
	if err != nil {
		logger.Warn("dropping mempool message with bad raw hex", "txid", m.Txid, "err", err)
		return
	}
	s.mempool <- chainsource.MempoolTx{Txid: txid, Raw: rawBytes}
}

// GetNextBlock pops the oldest buffered block message, if any. A message
// that reveals a reorg stays buffered, so the caller's retry after its
// rewind gets the same block again.
func (s *Source) GetNextBlock(currHeight int64, currHash string) (chainsource.Block, bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return chainsource.Block{}, false, false, nil
	}
	m := s.blocks[0]

	if currHash != "" && m.PrevHash != currHash {
		// Surface PrevHash so the driver's rewind can retarget the tip at
		// the point this message's branch actually forked from, rather
		// than blindly stepping back one height.
		return chainsource.Block{Height: m.Height - 1, PrevHash: m.PrevHash}, true, true, nil
	}
	s.blocks = s.blocks[1:]

	block := chainsource.Block{
		Height:   m.Height,
		Hash:     m.Hash,
		PrevHash: m.PrevHash,
		Time:     m.Time,
		RawTxns:  make(map[common.Txid][]byte, len(m.RawTxns)),
	}
	for _, txidHex := range m.Txids {
		txid, err := common.ParseTxid(txidHex)
		if err != nil {
			return chainsource.Block{}, false, false, err
		}
		block.Txids = append(block.Txids, txid)
	}
	for txidHex, rawHex := range m.RawTxns {
		txid, err := common.ParseTxid(txidHex)
		if err != nil {
			return chainsource.Block{}, false, false, err
		}
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			return chainsource.Block{}, false, false, err
		}
		block.RawTxns[txid] = raw
	}
	return block, false, true, nil
}

func (s *Source) Mempool() <-chan chainsource.MempoolTx {
	return s.mempool
}

func (s *Source) Close() error {
	s.cancel()
	<-s.done
	close(s.mempool)
	return s.group.Close()
}
