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

package webhook

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	uuid "github.com/satori/go.uuid"

	"github.com/gxplatform/txindexer/log"
)

var ledgerLogger = log.NewModuleLogger("webhook/ledger")

// delivery is one row of the delivery ledger (SPEC_FULL §4.H): a record
// of a single webhook POST attempt, independent of the core's durable
// DAG state. The ledger lets an operator replay missed deliveries; it is
// never read by the core itself.
type delivery struct {
	DeliveryID string `gorm:"primary_key;type:char(36)"`
	EventKind  string `gorm:"index"`
	Txid       string `gorm:"index"`
	Payload    string `gorm:"type:text"`
	PostedAt   time.Time
	Status     string `gorm:"index"`
	Attempt    int
}

func (delivery) TableName() string { return "webhook_deliveries" }

// Ledger wraps a gorm/mysql connection dedicated to delivery bookkeeping
// — deliberately a separate store from the SQLite core (SPEC_FULL §4.H).
type Ledger struct {
	db *gorm.DB
}

func OpenLedger(dsn string) (*Ledger, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&delivery{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Record appends one delivery attempt, success or failure.
func (l *Ledger) Record(eventKind, txid, payload, status string, attempt int) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	row := delivery{
		DeliveryID: id.String(),
		EventKind:  eventKind,
		Txid:       txid,
		Payload:    payload,
		PostedAt:   time.Now(),
		Status:     status,
		Attempt:    attempt,
	}
	if err := l.db.Create(&row).Error; err != nil {
		ledgerLogger.Error("failed to record delivery attempt", "txid", txid, "eventKind", eventKind, "err", err)
		return err
	}
	return nil
}

// Failed returns every delivery last recorded with a non-"ok" status,
// for an operator-triggered replay sweep.
func (l *Ledger) Failed(limit int) ([]string, error) {
	var rows []delivery
	if err := l.db.Where("status <> ?", "ok").Order("posted_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.DeliveryID
	}
	return ids, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
