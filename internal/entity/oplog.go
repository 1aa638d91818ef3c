package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// OpLog is one audit row per handled request, written by the access
// middleware after the response is sent.
type OpLog struct {
	bun.BaseModel `bun:"table:op_logs"`

	ID        int64  `bun:",pk,autoincrement"`
	IP        string `bun:"ip"`
	Method    string `bun:"method"`
	URL       string `bun:"url"`
	UserAgent string `bun:"user_agent"`
	LatencyMS int64  `bun:"latency_ms"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
