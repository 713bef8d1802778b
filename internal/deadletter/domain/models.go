// Package domain contains the dead-letter store for rejected events.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricingread/internal/contract"
	"gorm.io/datatypes"
)

const (
	EncodingIdentity = "identity"
	EncodingSnappy   = "snappy"

	UnknownEventID = "unknown"
)

// DeadLetter is an immutable record of an event that was rejected. It is never retried.
type DeadLetter struct {
	ID          snowflake.ID                             `gorm:"primaryKey"`
	EventID     string                                   `gorm:"size:191;not null;index"`
	EventType   string                                   `gorm:"type:text"`
	OrderID     string                                   `gorm:"size:191;index"`
	RawEvent    []byte                                   `gorm:"not null"`
	Encoding    string                                   `gorm:"type:text;not null"`
	RawSize     int                                      `gorm:"not null"`
	ErrorClass  string                                   `gorm:"size:64;not null"`
	ErrorKind   string                                   `gorm:"size:64;not null;index"`
	ErrorDetail string                                   `gorm:"type:text;not null"`
	Violations  datatypes.JSONType[[]contract.Violation]
	FailedAt    time.Time                                `gorm:"not null;index"`
}

func (DeadLetter) TableName() string { return "dead_letters" }
