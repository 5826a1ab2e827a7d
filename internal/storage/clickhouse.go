package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ShieldAI/internal/config"
	"ShieldAI/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS scored_flows (
    ID          String,
    Domain      String,
    SrcIP       String,
    DstIP       String,
    DstPort     UInt16,
    Protocol    String,
    Packets     UInt64,
    Bytes       UInt64,
    Duration    Float64,
    Score       Float64,
    IsMalicious UInt8,
    Degraded    UInt8,
    Timestamp   DateTime
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Domain, Timestamp);
`

// ClickHouseWriter mirrors scored flows into ClickHouse for durable
// analytics. It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the table
// exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// WriteFlows inserts a batch of scored flows.
func (w *ClickHouseWriter) WriteFlows(flows []*model.ScoredFlow) error {
	if len(flows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO scored_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, f := range flows {
		err = batch.Append(
			f.ID,
			f.Domain,
			f.SrcIP,
			f.DstIP,
			f.DstPort,
			f.Protocol.String(),
			f.Packets,
			f.Bytes,
			f.Duration,
			f.Score,
			boolToUInt8(f.IsMalicious),
			boolToUInt8(f.Degraded),
			f.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to append flow to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Mirrored %d scored flow(s) to ClickHouse", len(flows))
	return nil
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
