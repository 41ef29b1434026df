// Package store persists save games in a local SQLite database,
// one JSON blob per named slot.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"git.fiblab.net/sim/transitgame/engine"
)

var (
	// 错误：存档槽不存在
	ErrSlotNotFound = errors.New("save slot not found")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS saves (
	slot TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

type SaveStore struct {
	conn *sql.DB
}

type SlotInfo struct {
	Slot      string    `json:"slot"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// 打开（必要时创建）存档数据库
// sqlite同时只支持一个写者，限制单连接即可避免事务冲突
func Open(path string) (*SaveStore, error) {
	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open save database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping save database: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to init save schema: %w", err)
	}
	return &SaveStore{conn: conn}, nil
}

func (s *SaveStore) Put(slot string, save engine.SaveGame) error {
	data, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("failed to encode save: %w", err)
	}
	_, err = s.conn.Exec(
		`INSERT INTO saves (slot, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		slot, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write save slot %q: %w", slot, err)
	}
	return nil
}

func (s *SaveStore) Get(slot string) (engine.SaveGame, error) {
	var data []byte
	err := s.conn.QueryRow(`SELECT data FROM saves WHERE slot = ?`, slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.SaveGame{}, fmt.Errorf("%w (slot=%s)", ErrSlotNotFound, slot)
	}
	if err != nil {
		return engine.SaveGame{}, fmt.Errorf("failed to read save slot %q: %w", slot, err)
	}
	var save engine.SaveGame
	if err := json.Unmarshal(data, &save); err != nil {
		return engine.SaveGame{}, fmt.Errorf("failed to decode save slot %q: %w", slot, err)
	}
	return save, nil
}

func (s *SaveStore) List() ([]SlotInfo, error) {
	rows, err := s.conn.Query(`SELECT slot, updated_at FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list save slots: %w", err)
	}
	defer rows.Close()
	slots := make([]SlotInfo, 0)
	for rows.Next() {
		var info SlotInfo
		var updatedAt int64
		if err := rows.Scan(&info.Slot, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save slot: %w", err)
		}
		info.UpdatedAt = time.Unix(updatedAt, 0)
		slots = append(slots, info)
	}
	return slots, rows.Err()
}

func (s *SaveStore) Delete(slot string) error {
	result, err := s.conn.Exec(`DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("failed to delete save slot %q: %w", slot, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w (slot=%s)", ErrSlotNotFound, slot)
	}
	return nil
}

func (s *SaveStore) Close() error {
	return s.conn.Close()
}
